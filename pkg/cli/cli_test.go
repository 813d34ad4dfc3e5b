package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type parsed struct {
	Output  string
	Verbose bool
	Libs    []string
	Args    []string
}

func newTestSet() (*FlagSet, *parsed) {
	p := &parsed{}
	fs := NewFlagSet("test")
	fs.String(&p.Output, "output", "o", "a.out", "Output file.", "file")
	fs.Bool(&p.Verbose, "verbose", "v", false, "Verbose.")
	fs.List(&p.Libs, "lib", "l", nil, "Library.", "name")
	return fs, p
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want parsed
	}{
		{"defaults", []string{"in.cx"}, parsed{Output: "a.out", Args: []string{"in.cx"}}},
		{"long with space", []string{"--output", "x.h", "in.cx"}, parsed{Output: "x.h", Args: []string{"in.cx"}}},
		{"long with equals", []string{"--output=x.h"}, parsed{Output: "x.h", Args: []string{}}},
		{"single dash long", []string{"-output", "x.h"}, parsed{Output: "x.h", Args: []string{}}},
		{"shorthand", []string{"-o", "x.h", "-v"}, parsed{Output: "x.h", Verbose: true, Args: []string{}}},
		{"attached shorthand", []string{"-ox.h"}, parsed{Output: "x.h", Args: []string{}}},
		{"repeated list", []string{"-l", "a", "--lib=b"}, parsed{Output: "a.out", Libs: []string{"a", "b"}, Args: []string{}}},
		{"explicit bool", []string{"--verbose=false"}, parsed{Output: "a.out", Args: []string{}}},
		{"terminator", []string{"--", "-v", "x"}, parsed{Output: "a.out", Args: []string{"-v", "x"}}},
		{"lone dash", []string{"-"}, parsed{Output: "a.out", Args: []string{"-"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, p := newTestSet()
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse(%v): %v", tt.args, err)
			}
			p.Args = fs.Args()
			if diff := cmp.Diff(tt.want, *p); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--nope"},
		{"-x"},
		{"--output"},
		{"--verbose=maybe"},
	} {
		fs, _ := newTestSet()
		if err := fs.Parse(args); err == nil {
			t.Errorf("Parse(%v) succeeded", args)
		}
	}
}

func TestFlagGroup(t *testing.T) {
	fs := NewFlagSet("test")
	on, off := new(bool), new(bool)
	fs.AddFlagGroup("Warning Flags", "W", "warning", []FlagGroupEntry{{Name: "thing", Usage: "Warn about things.", Enabled: on, Disabled: off}})
	if err := fs.Parse([]string{"-Wthing", "-Wno-thing"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !*on || !*off {
		t.Errorf("Enabled, Disabled = %v, %v; want true, true", *on, *off)
	}
	if fs.Lookup("Wthing") == nil || fs.Lookup("Wno-thing") == nil {
		t.Error("group flags were not registered")
	}
}

func TestRedefinitionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("redefining a flag did not panic")
		}
	}()
	fs, _ := newTestSet()
	var s string
	fs.String(&s, "output", "", "", "again", "")
}

func TestAppRun(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := NewApp("cxc")
	app.Synopsis = "[options] <input>"
	app.Description = "Lowers compile-time declarations to C."
	app.Stdout, app.Stderr = &stdout, &stderr
	var out string
	app.FlagSet.String(&out, "output", "o", "", "Place the output into <file>.", "file")
	on, off := new(bool), new(bool)
	app.FlagSet.AddFlagGroup("Feature Flags", "F", "feature", []FlagGroupEntry{{Name: "preamble", Usage: "Emit the preamble.", Enabled: on, Disabled: off}})

	var got []string
	app.Action = func(args []string) error {
		got = args
		return nil
	}
	if err := app.Run([]string{"-o", "x.h", "in.cx"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "x.h" || len(got) != 1 || got[0] != "in.cx" {
		t.Errorf("out, args = %q, %v", out, got)
	}

	if err := app.Run([]string{"--help"}); !errors.Is(err, ErrHelp) {
		t.Fatalf("Run(--help) = %v, want ErrHelp", err)
	}
	help := stdout.String()
	for _, want := range []string{"Synopsis", "cxc [options] <input>", "-o, --output=<file>", "Feature Flags", "-Fno-<feature>", "preamble"} {
		if !strings.Contains(help, want) {
			t.Errorf("help page lacks %q:\n%s", want, help)
		}
	}
	if strings.Contains(help, "--Fpreamble") {
		t.Error("group entries were listed among the options")
	}

	if err := app.Run([]string{"--bogus"}); err == nil {
		t.Error("Run(--bogus) succeeded")
	}
	if !strings.Contains(stderr.String(), "unknown flag: --bogus") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrapText mismatch (-want +got):\n%s", diff)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty text should be nil")
	}
}
