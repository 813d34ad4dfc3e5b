// Package sexp reads the parenthesized surface syntax into nested lists and
// atoms.
package sexp

import (
	"strconv"
	"strings"
)

// Exp is a symbolic expression: Symbol, String, EnumLiteral, Int or List.
type Exp interface {
	Pos() int
	Len() int
	String() string
	exp()
}

type Symbol struct {
	Name   string
	Offset int
}

type String struct {
	Value  string
	Offset int
	Length int
}

// EnumLiteral is a dotted literal such as `.stdcall`; Name excludes the dot.
type EnumLiteral struct {
	Name   string
	Offset int
}

type Int struct {
	Value  int64
	Offset int
	Length int
}

type List struct {
	Items  []Exp
	Offset int
	End    int
}

func (Symbol) exp()      {}
func (String) exp()      {}
func (EnumLiteral) exp() {}
func (Int) exp()         {}
func (*List) exp()       {}

func (s Symbol) Pos() int      { return s.Offset }
func (s String) Pos() int      { return s.Offset }
func (e EnumLiteral) Pos() int { return e.Offset }
func (i Int) Pos() int         { return i.Offset }
func (l *List) Pos() int       { return l.Offset }

func (s Symbol) Len() int      { return len(s.Name) }
func (s String) Len() int      { return s.Length }
func (e EnumLiteral) Len() int { return len(e.Name) + 1 }
func (i Int) Len() int         { return i.Length }
func (l *List) Len() int       { return l.End - l.Offset }

func (s Symbol) String() string      { return s.Name }
func (s String) String() string      { return strconv.Quote(s.Value) }
func (e EnumLiteral) String() string { return "." + e.Name }
func (i Int) String() string         { return strconv.FormatInt(i.Value, 10) }
func (l *List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Head returns the list's leading symbol, if it has one.
func (l *List) Head() (Symbol, bool) {
	if len(l.Items) == 0 {
		return Symbol{}, false
	}
	sym, ok := l.Items[0].(Symbol)
	return sym, ok
}
