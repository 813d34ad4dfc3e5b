package comptime

import (
	"github.com/xplshn/cxc/pkg/ast"
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
)

// EvalModule binds every top-level declaration in source order.
func (ev *Evaluator) EvalModule(module []*ast.Node) error {
	for _, decl := range module {
		if _, err := ev.Declare(decl); err != nil {
			return err
		}
	}
	return nil
}

// Declare evaluates a Declaration node and binds its name. `::` binds a
// constant; `:` with `=` or without a value declares a mutable global.
func (ev *Evaluator) Declare(n *ast.Node) (Value, error) {
	d, ok := n.Data.(ast.DeclarationNode)
	if !ok {
		return nil, diag.At(diag.UnsupportedForm, n.Tok, "expected a declaration, got %s", n.Type)
	}
	off := d.NameTok.Offset
	if err := ev.Env.CheckFree(d.Name, off); err != nil {
		return nil, err
	}
	if !d.Constant {
		if err := ev.requireFeature(config.FeatGlobals, off, len(d.Name), "mutable global"); err != nil {
			return nil, err
		}
	}

	var typ, val Value
	var err error
	if d.TypeExpr != nil {
		if typ, err = ev.EvalNode(d.TypeExpr); err != nil {
			return nil, err
		}
	}
	if d.Value != nil {
		if val, err = ev.EvalNode(d.Value); err != nil {
			return nil, err
		}
	}
	if d.Constant && val == nil {
		return nil, diag.At(diag.SyntaxError, d.NameTok, "constant '%s' has no value", d.Name)
	}
	if err := ev.bind(d.Name, off, val, typ, !d.Constant); err != nil {
		return nil, err
	}
	return val, nil
}

func nodeName(n *ast.Node) string {
	switch d := n.Data.(type) {
	case ast.IdentNode:
		return d.Name
	case ast.TypeNode:
		return d.Name
	}
	return ""
}

// EvalNode evaluates an expression node of the declaration syntax.
func (ev *Evaluator) EvalNode(n *ast.Node) (Value, error) {
	switch d := n.Data.(type) {
	case ast.NumberNode:
		return Int(d.Value), nil
	case ast.StringNode:
		return String(d.Value), nil
	case ast.EnumLiteralNode:
		return EnumLiteral(d.Name), nil
	case ast.IdentNode:
		return ev.Env.Get(d.Name, n.Tok.Offset, n.Tok.Len)
	case ast.TypeNode:
		return ev.Env.Get(d.Name, n.Tok.Offset, n.Tok.Len)

	case ast.ForeignNode:
		inner, err := ev.EvalNode(d.Expr)
		if err != nil {
			return nil, err
		}
		return foreignOf(inner, d.Library, n.Tok.Offset, n.Tok.Len)

	case ast.ProcedureHeaderNode:
		return ev.evalHeader(d, n.Tok.Offset)

	case ast.ProcedureBodyNode:
		p, err := ev.evalHeader(d.Header, n.Tok.Offset)
		if err != nil {
			return nil, err
		}
		var body []Stmt
		for _, s := range d.Stmts {
			stmt, err := ev.evalCallStmt(s)
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)
		}
		ev.finishBody(p, body)
		return p, nil

	case ast.StructNode:
		if err := ev.requireFeature(config.FeatStructs, n.Tok.Offset, n.Tok.Len, "struct"); err != nil {
			return nil, err
		}
		s := &Struct{}
		seen := make(map[string]bool)
		for _, f := range d.Fields {
			fd := f.Data.(ast.DeclarationNode)
			if fd.TypeExpr == nil || fd.Value != nil {
				return nil, diag.At(diag.UnsupportedForm, fd.NameTok, "struct field '%s' must have a type and no value", fd.Name)
			}
			if seen[fd.Name] {
				return nil, diag.At(diag.Redefinition, fd.NameTok, "duplicate field '%s'", fd.Name)
			}
			seen[fd.Name] = true
			typ, err := ev.EvalNode(fd.TypeExpr)
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, StructField{Name: fd.Name, Type: typ})
		}
		return s, nil

	case ast.EnumNode:
		var members []enumMember
		for _, m := range d.Members {
			val, err := ev.EvalNode(m.Value)
			if err != nil {
				return nil, err
			}
			members = append(members, enumMember{name: m.Name, off: m.NameTok.Offset, length: m.NameTok.Len, value: val})
		}
		return ev.makeEnum(members, n.Tok.Offset, n.Tok.Len)

	case ast.FieldNode:
		container, err := ev.EvalNode(d.Expr)
		if err != nil {
			return nil, err
		}
		return makeField(container, nodeName(d.Expr), d.Name, d.NameTok.Offset, d.NameTok.Len)

	case ast.IfNode:
		test, err := ev.EvalNode(d.Cond)
		if err != nil {
			return nil, err
		}
		taken, ok := Truthy(test)
		if !ok {
			return nil, diag.At(diag.TypeMismatch, d.Cond.Tok, "condition must be a boolean or integer, got %s", test)
		}
		if taken {
			return ev.EvalNode(d.Then)
		}
		return ev.EvalNode(d.Else)

	case ast.EqualNode:
		lhs, err := ev.EvalNode(d.Left)
		if err != nil {
			return nil, err
		}
		rhs, err := ev.EvalNode(d.Right)
		if err != nil {
			return nil, err
		}
		return ev.equal(lhs, rhs)

	case ast.CallNode:
		return nil, diag.At(diag.UnsupportedForm, n.Tok, "calls are only allowed as procedure body statements")
	}
	return nil, diag.At(diag.UnsupportedForm, n.Tok, "cannot evaluate %s", n.Type)
}

func (ev *Evaluator) evalHeader(h ast.ProcedureHeaderNode, off int) (*Procedure, error) {
	var params []Param
	for _, p := range h.Params {
		typ, err := ev.EvalNode(p.Type)
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: p.Name, Type: typ})
	}
	var cc Value
	if h.CallConv != nil {
		var err error
		if cc, err = ev.EvalNode(h.CallConv); err != nil {
			return nil, err
		}
	}
	ret, err := ev.EvalNode(h.Return)
	if err != nil {
		return nil, err
	}
	return ev.makeProc(params, h.Named, cc, ret, off), nil
}

func (ev *Evaluator) evalCallStmt(n *ast.Node) (Stmt, error) {
	c, ok := n.Data.(ast.CallNode)
	if !ok {
		return Stmt{}, diag.At(diag.UnsupportedForm, n.Tok, "procedure body statements must be calls, got %s", n.Type)
	}
	callee, ok := c.Callee.Data.(ast.IdentNode)
	if !ok {
		return Stmt{}, diag.At(diag.UnsupportedForm, c.Callee.Tok, "callee must be a procedure name")
	}
	var args []Value
	for _, a := range c.Args {
		v, err := ev.EvalNode(a)
		if err != nil {
			return Stmt{}, err
		}
		args = append(args, v)
	}
	return ev.call(callee.Name, args, c.Callee.Tok.Offset, c.Callee.Tok.Len)
}
