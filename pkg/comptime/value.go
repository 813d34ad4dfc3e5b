// Package comptime resolves declarations into compile-time values against a
// single ordered global environment.
package comptime

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is the closed set of things a compile-time expression can resolve to.
type Value interface {
	String() string
	value()
}

type Int int64

type String string

// EnumLiteral is a dotted literal such as `.stdcall`, stored without the dot.
type EnumLiteral string

type Bool bool

type Noreturn struct{}

type CUint struct{}

// Enum keeps its members in declaration order. Names and Values always have
// the same length and Names holds no duplicates.
type Enum struct {
	Names  []string
	Values []int64
}

// EnumField projects a member out of an enum. Membership is only checked
// when the field is emitted. Container is the name the enum was reached
// through, empty for an inline enum.
type EnumField struct {
	Container string
	Enum      *Enum
	Name      string
	Pos       int
}

type Param struct {
	Name string
	Type Value
}

// Stmt is a call statement inside a procedure body.
type Stmt struct {
	Callee string
	Args   []Value
	Pos    int
}

// Procedure is a signature, optionally foreign or carrying a body. A nil
// CallConv means no convention was given.
type Procedure struct {
	Name     string
	Params   []Param
	Named    bool
	CallConv Value
	Return   Value
	Foreign  bool
	Library  string
	Body     []Stmt
	Defined  bool
	Pos      int
}

type StructField struct {
	Name string
	Type Value
}

type Struct struct {
	Name   string
	Fields []StructField
}

func (Int) value()         {}
func (String) value()      {}
func (EnumLiteral) value() {}
func (Bool) value()        {}
func (Noreturn) value()    {}
func (CUint) value()       {}
func (*Enum) value()       {}
func (*EnumField) value()  {}
func (*Procedure) value()  {}
func (*Struct) value()     {}

func (v Int) String() string         { return strconv.FormatInt(int64(v), 10) }
func (v String) String() string      { return strconv.Quote(string(v)) }
func (v EnumLiteral) String() string { return "." + string(v) }
func (v Bool) String() string        { return strconv.FormatBool(bool(v)) }
func (Noreturn) String() string      { return "noreturn" }
func (CUint) String() string         { return "c_uint" }

func (e *Enum) String() string {
	var sb strings.Builder
	sb.WriteString("(enum")
	for i, name := range e.Names {
		fmt.Fprintf(&sb, " %s %d", name, e.Values[i])
	}
	sb.WriteString(")")
	return sb.String()
}

// Lookup returns the value of the member called name.
func (e *Enum) Lookup(name string) (int64, bool) {
	for i, n := range e.Names {
		if n == name {
			return e.Values[i], true
		}
	}
	return 0, false
}

func (f *EnumField) String() string {
	container := f.Container
	if container == "" {
		container = f.Enum.String()
	}
	return fmt.Sprintf("(field %s %s)", container, f.Name)
}

func (p *Procedure) String() string {
	var sb strings.Builder
	switch {
	case p.Foreign && p.Library != "":
		fmt.Fprintf(&sb, "(foreign %q ", p.Library)
	case p.Foreign:
		sb.WriteString("(foreign ")
	}
	sb.WriteString("(proc (")
	for i, param := range p.Params {
		if i > 0 {
			sb.WriteString(" ")
		}
		if param.Name != "" {
			sb.WriteString(param.Name + ":")
		}
		sb.WriteString(param.Type.String())
	}
	sb.WriteString(") ")
	if p.CallConv == nil {
		sb.WriteString("_")
	} else {
		sb.WriteString(p.CallConv.String())
	}
	sb.WriteString(" " + p.Return.String())
	if p.Defined {
		sb.WriteString(" {")
		for i, stmt := range p.Body {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(stmt.String())
		}
		sb.WriteString("}")
	}
	sb.WriteString(")")
	if p.Foreign {
		sb.WriteString(")")
	}
	return sb.String()
}

func (s Stmt) String() string {
	parts := []string{s.Callee}
	for _, arg := range s.Args {
		parts = append(parts, arg.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (s *Struct) String() string {
	var sb strings.Builder
	sb.WriteString("(struct")
	if s.Name != "" {
		sb.WriteString(" " + s.Name)
	}
	for _, f := range s.Fields {
		fmt.Fprintf(&sb, " (%s %s)", f.Name, f.Type)
	}
	sb.WriteString(")")
	return sb.String()
}

// CallConvName reduces a calling convention value to its member name, so
// both `.stdcall` and `CallingConvention.stdcall` yield "stdcall".
func CallConvName(v Value) (string, bool) {
	switch v := v.(type) {
	case EnumLiteral:
		return string(v), true
	case *EnumField:
		return v.Name, true
	case String:
		return string(v), true
	}
	return "", false
}

// Equal compares two values the way `==` does: integers by value, names by
// name, and an enum field against a literal of the same member name.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Int:
		b, ok := b.(Int)
		return ok && a == b
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Noreturn:
		_, ok := b.(Noreturn)
		return ok
	case CUint:
		_, ok := b.(CUint)
		return ok
	case EnumLiteral:
		switch b := b.(type) {
		case EnumLiteral:
			return a == b
		case *EnumField:
			return string(a) == b.Name
		}
	case *EnumField:
		switch b := b.(type) {
		case EnumLiteral:
			return a.Name == string(b)
		case *EnumField:
			return a.Name == b.Name && (a.Container == b.Container || a.Enum == b.Enum)
		}
	case *Enum, *Procedure, *Struct:
		return a == b
	}
	return false
}

// Truthy interprets the test of an `if`.
func Truthy(v Value) (bool, bool) {
	switch v := v.(type) {
	case Bool:
		return bool(v), true
	case Int:
		return v != 0, true
	}
	return false, false
}
