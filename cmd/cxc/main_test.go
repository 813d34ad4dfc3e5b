package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/cxc/pkg/cli"
)

const winapiSource = `(const CallingConvention (enum default 0 c 1 stdcall 2))
(const WINAPI (if (== CPU .x86) (field CallingConvention .stdcall) .c))
(extern ExitProcess "kernel32" (proto (c-uint) WINAPI noreturn))
(proc RawEntryPoint () WINAPI noreturn (ExitProcess 0))
`

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	err = newApp(&out, &errOut).Run(args)
	return out.String(), errOut.String(), err
}

func TestCompileToStdout(t *testing.T) {
	path := writeSource(t, "winapi.cxs", winapiSource)
	stdout, stderr, err := run("--cpu", "x86", "-Fno-preamble", "-Fno-platform-block", path)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	want := "#define CallingConvention_default 0\n#define CallingConvention_c 1\n#define CallingConvention_stdcall 2\n" +
		"#define WINAPI CallingConvention_stdcall\n" +
		"Noreturn __stdcall \"ExitProcess\"(unsigned int);\n" +
		"Noreturn __stdcall RawEntryPoint(void) {\n\tExitProcess(0);\n}\n"
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileToFile(t *testing.T) {
	path := writeSource(t, "answer.cx", "Answer :: 42\n")
	outFile := filepath.Join(t.TempDir(), "answer.h")
	stdout, stderr, err := run("-v", "-o", outFile, path)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing", stdout)
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "#define Answer 42\n") {
		t.Errorf("output file = %q", data)
	}
	if !strings.Contains(stderr, "cxc: info: parsing") || !strings.Contains(stderr, "writing '"+outFile+"'") {
		t.Errorf("verbose log = %q", stderr)
	}
}

func TestSyntaxFlagOverridesExtension(t *testing.T) {
	path := writeSource(t, "forms.txt", "(const A 1)")
	stdout, stderr, err := run("--syntax", "sexpr", "-Fno-preamble", "-Fno-platform-block", path)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	if stdout != "#define A 1\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCompileErrorIsReported(t *testing.T) {
	path := writeSource(t, "bad.cx", "A :: 1\nB :: missing\n")
	stdout, stderr, err := run(path)
	if !errors.Is(err, errReported) {
		t.Fatalf("err = %v, want errReported", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing on failure", stdout)
	}
	if !strings.HasPrefix(stderr, path+":2:6: ") || !strings.Contains(stderr, "[UndefinedSymbol]") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestUsageErrors(t *testing.T) {
	path := writeSource(t, "a.cx", "A :: 1")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", nil, "expected exactly one input file, got 0"},
		{"two inputs", []string{path, path}, "expected exactly one input file, got 2"},
		{"bad syntax", []string{"--syntax", "yaml", path}, "unsupported syntax 'yaml'"},
		{"bad cpu", []string{"--cpu", "z80", path}, "unknown cpu 'z80'"},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.cx")}, "could not read file"},
		{"unknown flag", []string{"--frobnicate"}, "unknown flag: --frobnicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := run(tt.args...)
			if err == nil {
				t.Fatal("run succeeded")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr = %q, want it to mention %q", stderr, tt.want)
			}
		})
	}
}

func TestPedanticRejectsStructs(t *testing.T) {
	path := writeSource(t, "s.cx", "P :: struct { x : c_uint }")
	_, stderr, err := run("--pedantic", path)
	if !errors.Is(err, errReported) || !strings.Contains(stderr, "[UnsupportedForm]") {
		t.Errorf("err = %v, stderr = %q", err, stderr)
	}
}

func TestWarningFlags(t *testing.T) {
	path := writeSource(t, "w.cxs", "(const E (enum))")
	_, stderr, err := run("-Wno-empty-enum", path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stderr != "" {
		t.Errorf("disabled warning printed %q", stderr)
	}

	_, stderr, err = run(path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr, "[-Wempty-enum]") {
		t.Errorf("stderr = %q, want the empty-enum warning", stderr)
	}
}

func TestHelp(t *testing.T) {
	stdout, _, err := run("--help")
	if !errors.Is(err, cli.ErrHelp) {
		t.Fatalf("err = %v, want cli.ErrHelp", err)
	}
	for _, want := range []string{"Warning Flags", "Feature Flags", "--dump-env", "-o, --output=<file>", "include-guard"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help lacks %q", want)
		}
	}
}
