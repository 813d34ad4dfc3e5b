package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Error
	Ident
	Number
	String
	TypeName
	Struct
	Foreign
	Proc
	Callconv
	Enum
	If
	Else
	Dot
	Colon
	Eq
	Plus
	Minus
	Star
	Slash
	Lt
	Gt
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
)

var KeywordMap = map[string]Type{
	"struct":   Struct,
	"foreign":  Foreign,
	"proc":     Proc,
	"callconv": Callconv,
	"enum":     Enum,
	"if":       If,
	"else":     Else,
}

// TypeNames lists the built-in type names lexed as TypeName instead of Ident.
var TypeNames = map[string]bool{
	"noreturn": true,
	"c_uint":   true,
}

var punctMap = map[rune]Type{
	'.': Dot, ':': Colon, '=': Eq, '+': Plus, '-': Minus, '*': Star, '/': Slash,
	'<': Lt, '>': Gt, '(': LParen, ')': RParen, '{': LBrace, '}': RBrace,
	'[': LBracket, ']': RBracket, ',': Comma,
}

// Reverse mappings used for diagnostics
var (
	TypeStrings  = make(map[Type]string)
	punctStrings = make(map[Type]rune)
)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for r, typ := range punctMap {
		punctStrings[typ] = r
	}
}

// Punct returns the punctuation kind keyed by codepoint r.
func Punct(r rune) (Type, bool) {
	t, ok := punctMap[r]
	return t, ok
}

func (t Type) String() string {
	switch t {
	case EOF:
		return "end of file"
	case Error:
		return "invalid token"
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case TypeName:
		return "type name"
	}
	if kw, ok := TypeStrings[t]; ok {
		return "'" + kw + "'"
	}
	if r, ok := punctStrings[t]; ok {
		return "'" + string(r) + "'"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func (t Type) IsPunct() bool {
	_, ok := punctStrings[t]
	return ok
}

type Token struct {
	Type   Type
	Offset int
	Len    int
}

// End is the offset of the first byte after the token.
func (t Token) End() int { return t.Offset + t.Len }

// Text returns the token's lexeme within src.
func (t Token) Text(src []byte) string {
	if t.Offset < 0 || t.End() > len(src) {
		return ""
	}
	return string(src[t.Offset:t.End()])
}
