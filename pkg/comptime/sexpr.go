package comptime

import (
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
	"github.com/xplshn/cxc/pkg/sexp"
)

// Eval evaluates one symbolic expression. Binding forms (const, extern, proc,
// struct) return the value they bound.
func (ev *Evaluator) Eval(x sexp.Exp) (Value, error) {
	switch x := x.(type) {
	case sexp.Int:
		return Int(x.Value), nil
	case sexp.String:
		return String(x.Value), nil
	case sexp.EnumLiteral:
		return EnumLiteral(x.Name), nil
	case sexp.Symbol:
		return ev.Env.Get(x.Name, x.Offset, x.Len())
	case *sexp.List:
		return ev.evalList(x)
	}
	return nil, diag.Errorf(diag.UnsupportedForm, x.Pos(), x.Len(), "unsupported expression %s", x)
}

// EvalAll evaluates top-level forms in order, stopping at the first error.
func (ev *Evaluator) EvalAll(exps []sexp.Exp) error {
	for _, x := range exps {
		if _, err := ev.Eval(x); err != nil {
			return err
		}
	}
	return nil
}

func arity(l *sexp.List, form string, n int) error {
	if len(l.Items)-1 != n {
		return diag.Errorf(diag.SyntaxError, l.Pos(), l.Len(), "'%s' expects %d operand(s), got %d", form, n, len(l.Items)-1)
	}
	return nil
}

func symbolAt(x sexp.Exp, what string) (sexp.Symbol, error) {
	sym, ok := x.(sexp.Symbol)
	if !ok {
		return sym, diag.Errorf(diag.SyntaxError, x.Pos(), x.Len(), "%s must be a symbol, got %s", what, x)
	}
	return sym, nil
}

func (ev *Evaluator) evalList(l *sexp.List) (Value, error) {
	head, ok := l.Head()
	if !ok {
		return nil, diag.Errorf(diag.UnsupportedForm, l.Pos(), l.Len(), "cannot evaluate %s", l)
	}
	args := l.Items[1:]

	switch head.Name {
	case "const":
		if err := arity(l, "const", 2); err != nil {
			return nil, err
		}
		name, err := symbolAt(args[0], "constant name")
		if err != nil {
			return nil, err
		}
		if err := ev.Env.CheckFree(name.Name, name.Offset); err != nil {
			return nil, err
		}
		val, err := ev.Eval(args[1])
		if err != nil {
			return nil, err
		}
		return val, ev.bind(name.Name, name.Offset, val, nil, false)

	case "if":
		if err := ev.requireFeature(config.FeatConditionals, l.Pos(), l.Len(), "if"); err != nil {
			return nil, err
		}
		if err := arity(l, "if", 3); err != nil {
			return nil, err
		}
		test, err := ev.Eval(args[0])
		if err != nil {
			return nil, err
		}
		taken, ok := Truthy(test)
		if !ok {
			return nil, diag.Errorf(diag.TypeMismatch, args[0].Pos(), args[0].Len(), "condition must be a boolean or integer, got %s", test)
		}
		if taken {
			return ev.Eval(args[1])
		}
		return ev.Eval(args[2])

	case "enum":
		if err := ev.requireFeature(config.FeatEnums, l.Pos(), l.Len(), "enum"); err != nil {
			return nil, err
		}
		if len(args)%2 != 0 {
			return nil, diag.Errorf(diag.SyntaxError, l.Pos(), l.Len(), "'enum' expects name/value pairs")
		}
		var members []enumMember
		for i := 0; i < len(args); i += 2 {
			name, ok := args[i].(sexp.Symbol)
			if !ok {
				return nil, diag.Errorf(diag.TypeMismatch, args[i].Pos(), args[i].Len(), "enum member name must be a symbol, got %s", args[i])
			}
			val, err := ev.Eval(args[i+1])
			if err != nil {
				return nil, err
			}
			members = append(members, enumMember{name: name.Name, off: name.Offset, length: name.Len(), value: val})
		}
		return ev.makeEnum(members, head.Offset, head.Len())

	case "field":
		if err := arity(l, "field", 2); err != nil {
			return nil, err
		}
		container, err := ev.Eval(args[0])
		if err != nil {
			return nil, err
		}
		containerName := ""
		if sym, ok := args[0].(sexp.Symbol); ok {
			containerName = sym.Name
		}
		var member string
		switch n := args[1].(type) {
		case sexp.Symbol:
			member = n.Name
		case sexp.EnumLiteral:
			member = n.Name
		case sexp.String:
			member = n.Value
		default:
			return nil, diag.Errorf(diag.TypeMismatch, n.Pos(), n.Len(), "field name must be a symbol, enum literal or string, got %s", n)
		}
		return makeField(container, containerName, member, l.Pos(), l.Len())

	case "==":
		if err := arity(l, "==", 2); err != nil {
			return nil, err
		}
		lhs, err := ev.Eval(args[0])
		if err != nil {
			return nil, err
		}
		rhs, err := ev.Eval(args[1])
		if err != nil {
			return nil, err
		}
		return ev.equal(lhs, rhs)

	case "proto":
		if err := arity(l, "proto", 3); err != nil {
			return nil, err
		}
		return ev.evalSignature(args[0], args[1], args[2], head.Offset)

	case "extern":
		if len(args) != 2 && len(args) != 3 {
			return nil, diag.Errorf(diag.SyntaxError, l.Pos(), l.Len(), "'extern' expects NAME [LIBRARY] PROTO")
		}
		name, err := symbolAt(args[0], "extern name")
		if err != nil {
			return nil, err
		}
		if err := ev.Env.CheckFree(name.Name, name.Offset); err != nil {
			return nil, err
		}
		lib := ""
		if len(args) == 3 {
			s, ok := args[1].(sexp.String)
			if !ok {
				return nil, diag.Errorf(diag.TypeMismatch, args[1].Pos(), args[1].Len(), "library name must be a string, got %s", args[1])
			}
			lib = s.Value
		}
		protoExp := args[len(args)-1]
		proto, err := ev.Eval(protoExp)
		if err != nil {
			return nil, err
		}
		p, err := foreignOf(proto, lib, protoExp.Pos(), protoExp.Len())
		if err != nil {
			return nil, err
		}
		return p, ev.bind(name.Name, name.Offset, p, nil, false)

	case "proc":
		if len(args) < 4 {
			return nil, diag.Errorf(diag.SyntaxError, l.Pos(), l.Len(), "'proc' expects NAME (PARAMS) CALLCONV RET STMT...")
		}
		name, err := symbolAt(args[0], "procedure name")
		if err != nil {
			return nil, err
		}
		if err := ev.Env.CheckFree(name.Name, name.Offset); err != nil {
			return nil, err
		}
		p, err := ev.evalSignature(args[1], args[2], args[3], head.Offset)
		if err != nil {
			return nil, err
		}
		var body []Stmt
		for _, s := range args[4:] {
			stmt, err := ev.evalStmt(s)
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)
		}
		ev.finishBody(p, body)
		return p, ev.bind(name.Name, name.Offset, p, nil, false)

	case "struct":
		if err := ev.requireFeature(config.FeatStructs, l.Pos(), l.Len(), "struct"); err != nil {
			return nil, err
		}
		if len(args) < 1 {
			return nil, diag.Errorf(diag.SyntaxError, l.Pos(), l.Len(), "'struct' expects NAME (FIELD TYPE)...")
		}
		name, err := symbolAt(args[0], "struct name")
		if err != nil {
			return nil, err
		}
		if err := ev.Env.CheckFree(name.Name, name.Offset); err != nil {
			return nil, err
		}
		s := &Struct{Name: name.Name}
		seen := make(map[string]bool)
		for _, f := range args[1:] {
			pair, ok := f.(*sexp.List)
			if !ok || len(pair.Items) != 2 {
				return nil, diag.Errorf(diag.SyntaxError, f.Pos(), f.Len(), "struct field must be (NAME TYPE), got %s", f)
			}
			fname, err := symbolAt(pair.Items[0], "field name")
			if err != nil {
				return nil, err
			}
			if seen[fname.Name] {
				return nil, diag.Errorf(diag.Redefinition, fname.Offset, fname.Len(), "duplicate field '%s'", fname.Name)
			}
			seen[fname.Name] = true
			typ, err := ev.Eval(pair.Items[1])
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, StructField{Name: fname.Name, Type: typ})
		}
		return s, ev.bind(name.Name, name.Offset, s, nil, false)
	}

	if b, ok := ev.Env.Lookup(head.Name); ok {
		if _, isProc := b.Value.(*Procedure); isProc {
			return nil, diag.Errorf(diag.UnsupportedForm, l.Pos(), l.Len(), "call to '%s' outside of a procedure body", head.Name)
		}
	}
	return nil, diag.Errorf(diag.UnsupportedForm, head.Offset, head.Len(), "unknown form '%s'", head.Name)
}

func (ev *Evaluator) evalSignature(paramsExp, ccExp, retExp sexp.Exp, off int) (*Procedure, error) {
	list, ok := paramsExp.(*sexp.List)
	if !ok {
		return nil, diag.Errorf(diag.SyntaxError, paramsExp.Pos(), paramsExp.Len(), "parameter list must be a list, got %s", paramsExp)
	}
	var params []Param
	for _, x := range list.Items {
		typ, err := ev.Eval(x)
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Type: typ})
	}
	cc, err := ev.Eval(ccExp)
	if err != nil {
		return nil, err
	}
	ret, err := ev.Eval(retExp)
	if err != nil {
		return nil, err
	}
	return ev.makeProc(params, false, cc, ret, off), nil
}

func (ev *Evaluator) evalStmt(x sexp.Exp) (Stmt, error) {
	l, ok := x.(*sexp.List)
	if !ok {
		return Stmt{}, diag.Errorf(diag.UnsupportedForm, x.Pos(), x.Len(), "procedure body statements must be calls, got %s", x)
	}
	head, ok := l.Head()
	if !ok {
		return Stmt{}, diag.Errorf(diag.UnsupportedForm, l.Pos(), l.Len(), "procedure body statements must be calls, got %s", l)
	}
	var args []Value
	for _, a := range l.Items[1:] {
		v, err := ev.Eval(a)
		if err != nil {
			return Stmt{}, err
		}
		args = append(args, v)
	}
	return ev.call(head.Name, args, head.Offset, head.Len())
}
