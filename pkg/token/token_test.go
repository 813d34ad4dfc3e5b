package token

import "testing"

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{EOF, "end of file"},
		{Ident, "identifier"},
		{TypeName, "type name"},
		{Proc, "'proc'"},
		{Callconv, "'callconv'"},
		{LParen, "'('"},
		{Comma, "','"},
		{Type(999), "Type(999)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", int(tt.typ), got, tt.want)
		}
	}
}

func TestPunct(t *testing.T) {
	for r, want := range punctMap {
		got, ok := Punct(r)
		if !ok || got != want {
			t.Errorf("Punct(%q) = %v, %v; want %v, true", r, got, ok, want)
		}
		if !want.IsPunct() {
			t.Errorf("%v.IsPunct() = false", want)
		}
	}
	if _, ok := Punct('@'); ok {
		t.Error("Punct('@') reported a punctuation kind")
	}
	if Ident.IsPunct() {
		t.Error("Ident.IsPunct() = true")
	}
}

func TestTokenText(t *testing.T) {
	src := []byte("foo :: bar")
	tok := Token{Type: Ident, Offset: 7, Len: 3}
	if got := tok.Text(src); got != "bar" {
		t.Errorf("Text = %q, want %q", got, "bar")
	}
	if got := tok.End(); got != 10 {
		t.Errorf("End = %d, want 10", got)
	}
	if got := (Token{Offset: 8, Len: 5}).Text(src); got != "" {
		t.Errorf("out of range Text = %q, want empty", got)
	}
}
