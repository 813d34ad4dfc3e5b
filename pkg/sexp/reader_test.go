package sexp

import (
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/cxc/pkg/diag"
)

func TestReadAll(t *testing.T) {
	src := `; header
(const X (enum a 0 b 1))
(extern ExitProcess "kernel32" (proto (c_uint) .stdcall noreturn))`

	forms, err := ReadAll([]byte(src))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	var got []string
	for _, f := range forms {
		got = append(got, f.String())
	}
	want := []string{
		"(const X (enum a 0 b 1))",
		`(extern ExitProcess "kernel32" (proto (c_uint) .stdcall noreturn))`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("forms mismatch (-want +got):\n%s", diff)
	}
}

func TestAtoms(t *testing.T) {
	forms, err := ReadAll([]byte(`(== .c "a\"b" 42 c-uint)`))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	list := forms[0].(*List)
	want := []Exp{
		Symbol{Name: "==", Offset: 1},
		EnumLiteral{Name: "c", Offset: 4},
		String{Value: `a"b`, Offset: 7, Length: 6},
		Int{Value: 42, Offset: 14, Length: 2},
		Symbol{Name: "c-uint", Offset: 17},
	}
	if diff := cmp.Diff(want, list.Items); diff != "" {
		t.Errorf("atoms mismatch (-want +got):\n%s", diff)
	}
	if list.Pos() != 0 || list.Len() != 24 {
		t.Errorf("list span = [%d,+%d), want [0,+24)", list.Pos(), list.Len())
	}
	if head, ok := list.Head(); !ok || head.Name != "==" {
		t.Errorf("Head() = %v, %v", head, ok)
	}
	if got := (EnumLiteral{Name: "c"}).Len(); got != 2 {
		t.Errorf("EnumLiteral.Len() = %d, want 2", got)
	}
}

func TestEmptyListHead(t *testing.T) {
	forms, err := ReadAll([]byte("()"))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if _, ok := forms[0].(*List).Head(); ok {
		t.Error("empty list reported a head")
	}
}

func TestReaderNext(t *testing.T) {
	r := NewReader([]byte("a (b) "))
	for _, want := range []string{"a", "(b)"} {
		x, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if x.String() != want {
			t.Errorf("Next = %s, want %s", x, want)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next at end = %v, want io.EOF", err)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		kind   diag.Kind
		offset int
	}{
		{"unbalanced close", "(a))", diag.SyntaxError, 3},
		{"unterminated list", "(a (b)", diag.SyntaxError, 0},
		{"unterminated string", `(a "bc`, diag.LexicalError, 3},
		{"bare dot", "(. a)", diag.LexicalError, 1},
		{"overflow", "99999999999999999999", diag.LexicalError, 0},
		{"stray character", "(a #)", diag.LexicalError, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAll([]byte(tt.src))
			de, ok := err.(*diag.Error)
			if !ok {
				t.Fatalf("ReadAll(%q) = %v, want a *diag.Error", tt.src, err)
			}
			if de.Kind != tt.kind || de.Offset != tt.offset {
				t.Errorf("got %s at %d, want %s at %d", de.Kind, de.Offset, tt.kind, tt.offset)
			}
		})
	}
}
