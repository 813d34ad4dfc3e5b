package comptime

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
	"github.com/xplshn/cxc/pkg/sexp"
)

const winapiForms = `
(const CallingConvention (enum default 0 c 1 stdcall 2))
(const WINAPI (if (== CPU .x86) (field CallingConvention .stdcall) .c))
(extern ExitProcess "kernel32" (proto (c-uint) WINAPI noreturn))
(proc RawEntryPoint () WINAPI noreturn (ExitProcess 0))
`

func evalForms(t *testing.T, src string, cfg *config.Config, rep *diag.Reporter) (*Env, error) {
	t.Helper()
	forms, err := sexp.ReadAll([]byte(src))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	env := NewEnv(cfg)
	return env, NewEvaluator(env, cfg, rep).EvalAll(forms)
}

func mustGet(t *testing.T, env *Env, name string) Value {
	t.Helper()
	v, err := env.Get(name, 0, len(name))
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return v
}

func TestEvalWinapiPerCPU(t *testing.T) {
	tests := []struct {
		cpu  string
		want string
	}{
		{"x86", "(field CallingConvention stdcall)"},
		{"x86_64", ".c"},
		{"aarch64", ".c"},
	}
	for _, tt := range tests {
		t.Run(tt.cpu, func(t *testing.T) {
			cfg := config.NewConfig()
			if err := cfg.SetCPU(tt.cpu); err != nil {
				t.Fatal(err)
			}
			env, err := evalForms(t, winapiForms, cfg, nil)
			if err != nil {
				t.Fatalf("EvalAll: %v", err)
			}
			if got := mustGet(t, env, "WINAPI").String(); got != tt.want {
				t.Errorf("WINAPI = %s, want %s", got, tt.want)
			}

			exit := mustGet(t, env, "ExitProcess").(*Procedure)
			if !exit.Foreign || exit.Library != "kernel32" || exit.Name != "ExitProcess" {
				t.Errorf("ExitProcess = %+v", exit)
			}
			if len(exit.Params) != 1 || exit.Params[0].Type != (CUint{}) {
				t.Errorf("ExitProcess params = %v", exit.Params)
			}

			entry := mustGet(t, env, "RawEntryPoint").(*Procedure)
			if !entry.Defined || len(entry.Body) != 1 || entry.Body[0].String() != "(ExitProcess 0)" {
				t.Errorf("RawEntryPoint = %s", entry)
			}
		})
	}
}

func TestEvalScalarsAndFields(t *testing.T) {
	env, err := evalForms(t, `
(const X (enum a 0 b 1))
(const Y (field X b))
(const Z (field X "a"))
(const N 42)
(const S "text")
(const Same (== Y .b))
(const Inline (field (enum p 5) p))`, nil, nil)
	if err != nil {
		t.Fatalf("EvalAll: %v", err)
	}
	checks := map[string]string{
		"X":      "(enum a 0 b 1)",
		"Y":      "(field X b)",
		"Z":      "(field X a)",
		"N":      "42",
		"S":      `"text"`,
		"Same":   "true",
		"Inline": "(field (enum p 5) p)",
	}
	for name, want := range checks {
		if got := mustGet(t, env, name).String(); got != want {
			t.Errorf("%s = %s, want %s", name, got, want)
		}
	}
}

func TestIfIsLazy(t *testing.T) {
	env, err := evalForms(t, `(const A (if 1 10 nowhere)) (const B (if (== 1 2) nowhere 20))`, nil, nil)
	if err != nil {
		t.Fatalf("untaken branch was evaluated: %v", err)
	}
	if a, b := mustGet(t, env, "A"), mustGet(t, env, "B"); a != Int(10) || b != Int(20) {
		t.Errorf("A, B = %v, %v; want 10, 20", a, b)
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
	}{
		{"undefined symbol", "(const A B)", diag.UndefinedSymbol},
		{"redefinition", "(const A 1) (const A 2)", diag.Redefinition},
		{"builtin redefinition", "(const CPU 1)", diag.Redefinition},
		{"duplicate enum member", "(enum a 0 a 1)", diag.TypeMismatch},
		{"non-integer enum value", `(enum a "x")`, diag.TypeMismatch},
		{"odd enum operands", "(enum a)", diag.SyntaxError},
		{"field of non-enum", "(const A 1) (field A x)", diag.TypeMismatch},
		{"non-boolean test", `(if "s" 1 2)`, diag.TypeMismatch},
		{"comparison with missing member", "(const CC (enum c 1)) (const W (if (== (field CC zz) .zz) 1 2))", diag.InvalidReference},
		{"missing member on the right", "(const CC (enum c 1)) (== .c (field CC zz))", diag.InvalidReference},
		{"const arity", "(const A)", diag.SyntaxError},
		{"const name", "(const 1 2)", diag.SyntaxError},
		{"unknown form", "(frobnicate 1)", diag.UnsupportedForm},
		{"empty list", "()", diag.UnsupportedForm},
		{"call outside body", "(extern F (proto () .c noreturn)) (F)", diag.UnsupportedForm},
		{"extern of defined proc", "(proc P () .c noreturn) (extern Q P)", diag.TypeMismatch},
		{"extern library", "(extern F 3 (proto () .c noreturn))", diag.TypeMismatch},
		{"call of non-procedure", "(const N 1) (proc P () .c noreturn (N))", diag.TypeMismatch},
		{"call of bare signature", "(const S (proto () .c noreturn)) (proc P () .c noreturn (S))", diag.TypeMismatch},
		{"call arity", "(extern F (proto (c_uint) .c noreturn)) (proc P () .c noreturn (F))", diag.TypeMismatch},
		{"duplicate struct field", "(struct S (x c_uint) (x c_uint))", diag.Redefinition},
		{"struct field shape", "(struct S x)", diag.SyntaxError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalForms(t, tt.src, nil, nil)
			if !diag.IsKind(err, tt.kind) {
				t.Errorf("%s = %v, want %s", tt.src, err, tt.kind)
			}
		})
	}
}

func TestFailedBindingLeavesNameFree(t *testing.T) {
	forms, err := sexp.ReadAll([]byte("(const A missing) (const A 1)"))
	if err != nil {
		t.Fatal(err)
	}
	env := NewEnv(nil)
	ev := NewEvaluator(env, nil, nil)
	if _, err := ev.Eval(forms[0]); !diag.IsKind(err, diag.UndefinedSymbol) {
		t.Fatalf("first form = %v", err)
	}
	if _, err := ev.Eval(forms[1]); err != nil {
		t.Errorf("second form = %v, want success", err)
	}
}

func TestEvalStruct(t *testing.T) {
	env, err := evalForms(t, "(struct Point (x c_uint) (y c-uint)) (const Alias Point)", nil, nil)
	if err != nil {
		t.Fatalf("EvalAll: %v", err)
	}
	s := mustGet(t, env, "Alias").(*Struct)
	if s.Name != "Point" || len(s.Fields) != 2 {
		t.Errorf("Alias = %s, want the Point struct", s)
	}
}

func TestFeatureGates(t *testing.T) {
	tests := []struct {
		feature config.Feature
		src     string
	}{
		{config.FeatEnums, "(enum a 0)"},
		{config.FeatConditionals, "(if 1 2 3)"},
		{config.FeatStructs, "(struct S)"},
	}
	for _, tt := range tests {
		cfg := config.NewConfig()
		cfg.SetFeature(tt.feature, false)
		if _, err := evalForms(t, tt.src, cfg, nil); !diag.IsKind(err, diag.UnsupportedForm) {
			t.Errorf("%s with -Fno-%s = %v, want UnsupportedForm", tt.src, cfg.Features[tt.feature].Name, err)
		}
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		warning config.Warning
		flag    string
	}{
		{"empty enum", "(const E (enum))", config.WarnEmptyEnum, "[-Wempty-enum]"},
		{"empty body", "(proc P () .c noreturn)", config.WarnEmptyBody, "[-Wempty-body]"},
		{"default callconv", "(const P (proto () .default noreturn))", config.WarnDefaultCallconv, "[-Wdefault-callconv]"},
		{"comptime only", "(const CC .stdcall)", config.WarnComptimeOnly, "[-Wcomptime-only]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			file := &diag.File{Name: "w.cxs", Content: []byte(tt.src)}

			var quiet bytes.Buffer
			cfg.SetWarning(tt.warning, false)
			rep := diag.NewReporter(cfg, file, &quiet)
			if _, err := evalForms(t, tt.src, cfg, rep); err != nil {
				t.Fatalf("EvalAll: %v", err)
			}
			if quiet.Len() != 0 || rep.Count() != 0 {
				t.Errorf("disabled warning printed %q", quiet.String())
			}

			var out bytes.Buffer
			cfg.SetWarning(tt.warning, true)
			rep = diag.NewReporter(cfg, file, &out)
			if _, err := evalForms(t, tt.src, cfg, rep); err != nil {
				t.Fatalf("EvalAll: %v", err)
			}
			if !strings.Contains(out.String(), tt.flag) || !strings.HasPrefix(out.String(), "w.cxs:1:") {
				t.Errorf("warning output = %q, want a w.cxs:1: line tagged %s", out.String(), tt.flag)
			}
			if rep.Count() != 1 {
				t.Errorf("Count() = %d, want 1", rep.Count())
			}
		})
	}
}
