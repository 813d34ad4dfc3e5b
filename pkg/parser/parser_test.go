package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/cxc/pkg/ast"
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
)

func parseString(t *testing.T, src string, cfg *config.Config) []string {
	t.Helper()
	module, err := NewParser([]byte(src), cfg).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	var out []string
	for _, n := range module {
		out = append(out, ast.Sprint(n))
	}
	return out
}

func TestParseDeclarations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "enum literal constant",
			src:  "WINAPI :: .stdcall",
			want: []string{"(const WINAPI _ .stdcall)"},
		},
		{
			name: "foreign prototype",
			src:  `ExitProcess :: foreign "kernel32" proc (c_uint) callconv(WINAPI) noreturn`,
			want: []string{`(const ExitProcess _ (foreign "kernel32" (proc (c_uint) WINAPI noreturn)))`},
		},
		{
			name: "foreign without library",
			src:  "F :: foreign proc () noreturn",
			want: []string{"(const F _ (foreign (proc () _ noreturn)))"},
		},
		{
			name: "defined procedure",
			src:  "Entry :: proc () callconv(WINAPI) noreturn { ExitProcess(0) }",
			want: []string{"(const Entry _ (proc () WINAPI noreturn {(call ExitProcess 0)}))"},
		},
		{
			name: "named parameters",
			src:  "H :: proc (code: c_uint, msg: c_uint) callconv(.c) noreturn",
			want: []string{"(const H _ (proc (code:c_uint msg:c_uint) .c noreturn))"},
		},
		{
			name: "enum and field",
			src:  "X :: enum { a = 0, b = 1, }\nY :: X.b",
			want: []string{"(const X _ (enum a 0 b 1))", "(const Y _ (field X b))"},
		},
		{
			name: "conditional with equality",
			src:  `Name :: if (CPU == CPU_Arch.x86) "x86" else "other"`,
			want: []string{`(const Name _ (if (== CPU (field CPU_Arch x86)) "x86" "other"))`},
		},
		{
			name: "typed and mutable",
			src:  "count : c_uint = 3\nlimit : c_uint : 4\nslot : c_uint",
			want: []string{"(var count c_uint 3)", "(const limit c_uint 4)", "(var slot c_uint _)"},
		},
		{
			name: "struct",
			src:  "Point :: struct { x : c_uint\n y : c_uint }",
			want: []string{"(const Point _ (struct (var x c_uint _) (var y c_uint _)))"},
		},
		{
			name: "grouping and comments",
			src:  "; leading comment\nA :: (B).c ; trailing\n",
			want: []string{"(const A _ (field B c))"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseString(t, tt.src, config.NewConfig())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AST mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCallOfFieldIsCall(t *testing.T) {
	module, err := NewParser([]byte("R :: proc () noreturn { a.b(c) }"), nil).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body := module[0].Data.(ast.DeclarationNode).Value.Data.(ast.ProcedureBodyNode)
	stmt := body.Stmts[0]
	if stmt.Type != ast.Call {
		t.Fatalf("statement is %s, want Call", stmt.Type)
	}
	if callee := stmt.Data.(ast.CallNode).Callee; callee.Type != ast.Field {
		t.Errorf("callee is %s, want Field", callee.Type)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
	}{
		{"mixed parameter naming", "P :: proc (a: c_uint, c_uint) noreturn", diag.SyntaxError},
		{"missing value", "X :", diag.SyntaxError},
		{"missing else", "X :: if (A) B", diag.SyntaxError},
		{"stray character", "X :: @", diag.LexicalError},
		{"unterminated string", `X :: "abc`, diag.LexicalError},
		{"unterminated body", "P :: proc () noreturn { f()", diag.SyntaxError},
		{"number overflow", "X :: 99999999999999999999", diag.LexicalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser([]byte(tt.src), config.NewConfig()).Parse()
			if !diag.IsKind(err, tt.kind) {
				t.Errorf("Parse(%q) = %v, want %s", tt.src, err, tt.kind)
			}
		})
	}
}

func TestFeatureGating(t *testing.T) {
	tests := []struct {
		feature config.Feature
		src     string
	}{
		{config.FeatEnums, "X :: enum { a = 0 }"},
		{config.FeatConditionals, "X :: if (A) B else C"},
		{config.FeatStructs, "X :: struct { a : c_uint }"},
	}
	for _, tt := range tests {
		cfg := config.NewConfig()
		cfg.SetFeature(tt.feature, false)
		_, err := NewParser([]byte(tt.src), cfg).Parse()
		if !diag.IsKind(err, diag.UnsupportedForm) {
			t.Errorf("%s with %s disabled = %v, want UnsupportedForm", tt.src, cfg.Features[tt.feature].Name, err)
		}
	}
}

func TestErrorOffset(t *testing.T) {
	_, err := NewParser([]byte("X :: proc ( ] noreturn"), nil).Parse()
	de, ok := err.(*diag.Error)
	if !ok {
		t.Fatalf("err = %v, want *diag.Error", err)
	}
	if de.Offset != 12 {
		t.Errorf("Offset = %d, want 12", de.Offset)
	}
}
