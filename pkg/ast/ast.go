// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/cxc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	Declaration NodeType = iota
	Foreign
	Struct
	ProcedureHeader
	ProcedureBody
	Type
	Ident
	Call
	Number
	Field

	String
	EnumLiteral
	Enum
	If
	Equal
)

var nodeTypeNames = [...]string{
	Declaration:     "Declaration",
	Foreign:         "Foreign",
	Struct:          "Struct",
	ProcedureHeader: "ProcedureHeader",
	ProcedureBody:   "ProcedureBody",
	Type:            "Type",
	Ident:           "Ident",
	Call:            "Call",
	Number:          "Number",
	Field:           "Field",
	String:          "String",
	EnumLiteral:     "EnumLiteral",
	Enum:            "Enum",
	If:              "If",
	Equal:           "Equal",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Unknown"
}

// Node represents a node in the Abstract Syntax Tree. Every node owns its
// children; nothing is shared between two parents.
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

// --- Node Data Structs ---
type DeclarationNode struct {
	Name     string
	NameTok  token.Token
	TypeExpr *Node
	Value    *Node
	Constant bool
}
type ForeignNode struct {
	Library string
	HasLib  bool
	Expr    *Node
}
type StructNode struct{ Fields []*Node }
type ParamNode struct {
	Name    string
	NameTok token.Token
	Type    *Node
}
type ProcedureHeaderNode struct {
	Params   []ParamNode
	Named    bool
	CallConv *Node
	Return   *Node
}
type ProcedureBodyNode struct {
	Header ProcedureHeaderNode
	Stmts  []*Node
}
type TypeNode struct{ Name string }
type IdentNode struct{ Name string }
type CallNode struct {
	Callee *Node
	Args   []*Node
}
type NumberNode struct{ Value int64 }
type FieldNode struct {
	Expr    *Node
	Name    string
	NameTok token.Token
}
type StringNode struct{ Value string }
type EnumLiteralNode struct{ Name string }
type EnumMember struct {
	Name    string
	NameTok token.Token
	Value   *Node
}
type EnumNode struct{ Members []EnumMember }
type IfNode struct{ Cond, Then, Else *Node }
type EqualNode struct{ Left, Right *Node }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewDeclaration(nameTok token.Token, name string, typeExpr, value *Node, constant bool) *Node {
	return newNode(nameTok, Declaration, DeclarationNode{
		Name: name, NameTok: nameTok, TypeExpr: typeExpr, Value: value, Constant: constant,
	})
}
func NewForeign(tok token.Token, library string, hasLib bool, expr *Node) *Node {
	return newNode(tok, Foreign, ForeignNode{Library: library, HasLib: hasLib, Expr: expr})
}
func NewStruct(tok token.Token, fields []*Node) *Node {
	return newNode(tok, Struct, StructNode{Fields: fields})
}
func NewProcedureHeader(tok token.Token, params []ParamNode, named bool, callConv, ret *Node) *Node {
	return newNode(tok, ProcedureHeader, ProcedureHeaderNode{Params: params, Named: named, CallConv: callConv, Return: ret})
}
func NewProcedureBody(tok token.Token, header ProcedureHeaderNode, stmts []*Node) *Node {
	return newNode(tok, ProcedureBody, ProcedureBodyNode{Header: header, Stmts: stmts})
}
func NewType(tok token.Token, name string) *Node {
	return newNode(tok, Type, TypeNode{Name: name})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewCall(tok token.Token, callee *Node, args []*Node) *Node {
	return newNode(tok, Call, CallNode{Callee: callee, Args: args})
}
func NewNumber(tok token.Token, value int64) *Node {
	return newNode(tok, Number, NumberNode{Value: value})
}
func NewField(tok token.Token, expr *Node, name string, nameTok token.Token) *Node {
	return newNode(tok, Field, FieldNode{Expr: expr, Name: name, NameTok: nameTok})
}
func NewString(tok token.Token, value string) *Node {
	return newNode(tok, String, StringNode{Value: value})
}
func NewEnumLiteral(tok token.Token, name string) *Node {
	return newNode(tok, EnumLiteral, EnumLiteralNode{Name: name})
}
func NewEnum(tok token.Token, members []EnumMember) *Node {
	return newNode(tok, Enum, EnumNode{Members: members})
}
func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: then, Else: els})
}
func NewEqual(tok token.Token, left, right *Node) *Node {
	return newNode(tok, Equal, EqualNode{Left: left, Right: right})
}
