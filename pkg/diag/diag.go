// Package diag holds the compiler's error taxonomy and renders errors and
// warnings against the source they came from.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xplshn/cxc/pkg/token"
)

// Kind classifies a compilation failure
type Kind int

const (
	LexicalError Kind = iota
	SyntaxError
	UndefinedSymbol
	Redefinition
	TypeMismatch
	InvalidReference
	UnsupportedValue
	UnsupportedForm
)

var kindNames = map[Kind]string{
	LexicalError:     "LexicalError",
	SyntaxError:      "SyntaxError",
	UndefinedSymbol:  "UndefinedSymbol",
	Redefinition:     "Redefinition",
	TypeMismatch:     "TypeMismatch",
	InvalidReference: "InvalidReference",
	UnsupportedValue: "UnsupportedValue",
	UnsupportedForm:  "UnsupportedForm",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a failure at a byte range of the unit being compiled. Offset is -1
// when no source location applies.
type Error struct {
	Kind     Kind
	Offset   int
	Len      int
	Msg      string
	Got      string
	Expected []string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if e.Got != "" || len(e.Expected) > 0 {
		fmt.Fprintf(&sb, " (got %s", e.Got)
		if len(e.Expected) > 0 {
			fmt.Fprintf(&sb, ", expected %s", strings.Join(e.Expected, " or "))
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Errorf builds an Error of the given kind covering src[off:off+length].
func Errorf(kind Kind, off, length int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: off, Len: length, Msg: fmt.Sprintf(format, args...)}
}

// At is Errorf positioned on a token.
func At(kind Kind, tok token.Token, format string, args ...interface{}) *Error {
	return Errorf(kind, tok.Offset, tok.Len, format, args...)
}

// Unexpected reports tok where one of the expected kinds was required. An
// invalid token is reported as a lexical error rather than a syntax error.
func Unexpected(tok token.Token, expected ...token.Type) *Error {
	kind := SyntaxError
	msg := "unexpected " + tok.Type.String()
	if tok.Type == token.Error {
		kind = LexicalError
		msg = "unrecognized or unterminated token"
	}
	e := At(kind, tok, "%s", msg)
	e.Got = tok.Type.String()
	for _, t := range expected {
		e.Expected = append(e.Expected, t.String())
	}
	return e
}

// IsKind reports whether err wraps a diag.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// KindOf returns the kind of the diag.Error wrapped by err.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
