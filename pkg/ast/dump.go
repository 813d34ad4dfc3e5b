package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sprint renders n as a compact parenthesized form, e.g. `(call (field a b) c)`.
func Sprint(n *Node) string {
	var sb strings.Builder
	write(&sb, n)
	return sb.String()
}

// Dump writes one line per top-level declaration.
func Dump(w io.Writer, module []*Node) {
	for _, n := range module {
		fmt.Fprintln(w, Sprint(n))
	}
}

func writeOpt(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("_")
		return
	}
	write(sb, n)
}

func writeHeader(sb *strings.Builder, h ProcedureHeaderNode) {
	sb.WriteString("(proc (")
	for i, p := range h.Params {
		if i > 0 {
			sb.WriteString(" ")
		}
		if p.Name != "" {
			sb.WriteString(p.Name + ":")
		}
		write(sb, p.Type)
	}
	sb.WriteString(") ")
	writeOpt(sb, h.CallConv)
	sb.WriteString(" ")
	write(sb, h.Return)
}

func write(sb *strings.Builder, n *Node) {
	switch d := n.Data.(type) {
	case DeclarationNode:
		kind := "var"
		if d.Constant {
			kind = "const"
		}
		fmt.Fprintf(sb, "(%s %s ", kind, d.Name)
		writeOpt(sb, d.TypeExpr)
		sb.WriteString(" ")
		writeOpt(sb, d.Value)
		sb.WriteString(")")
	case ForeignNode:
		sb.WriteString("(foreign ")
		if d.HasLib {
			sb.WriteString(strconv.Quote(d.Library) + " ")
		}
		write(sb, d.Expr)
		sb.WriteString(")")
	case StructNode:
		sb.WriteString("(struct")
		for _, f := range d.Fields {
			sb.WriteString(" ")
			write(sb, f)
		}
		sb.WriteString(")")
	case ProcedureHeaderNode:
		writeHeader(sb, d)
		sb.WriteString(")")
	case ProcedureBodyNode:
		writeHeader(sb, d.Header)
		sb.WriteString(" {")
		for i, s := range d.Stmts {
			if i > 0 {
				sb.WriteString(" ")
			}
			write(sb, s)
		}
		sb.WriteString("})")
	case TypeNode:
		sb.WriteString(d.Name)
	case IdentNode:
		sb.WriteString(d.Name)
	case CallNode:
		sb.WriteString("(call ")
		write(sb, d.Callee)
		for _, a := range d.Args {
			sb.WriteString(" ")
			write(sb, a)
		}
		sb.WriteString(")")
	case NumberNode:
		sb.WriteString(strconv.FormatInt(d.Value, 10))
	case FieldNode:
		sb.WriteString("(field ")
		write(sb, d.Expr)
		sb.WriteString(" " + d.Name + ")")
	case StringNode:
		sb.WriteString(strconv.Quote(d.Value))
	case EnumLiteralNode:
		sb.WriteString("." + d.Name)
	case EnumNode:
		sb.WriteString("(enum")
		for _, m := range d.Members {
			sb.WriteString(" " + m.Name + " ")
			write(sb, m.Value)
		}
		sb.WriteString(")")
	case IfNode:
		sb.WriteString("(if ")
		write(sb, d.Cond)
		sb.WriteString(" ")
		write(sb, d.Then)
		sb.WriteString(" ")
		write(sb, d.Else)
		sb.WriteString(")")
	case EqualNode:
		sb.WriteString("(== ")
		write(sb, d.Left)
		sb.WriteString(" ")
		write(sb, d.Right)
		sb.WriteString(")")
	default:
		fmt.Fprintf(sb, "<%s>", n.Type)
	}
}
