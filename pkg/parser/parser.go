package parser

import (
	"strconv"

	"github.com/xplshn/cxc/pkg/ast"
	"github.com/xplshn/cxc/pkg/config"
	"github.com/xplshn/cxc/pkg/diag"
	"github.com/xplshn/cxc/pkg/lexer"
	"github.com/xplshn/cxc/pkg/token"
)

// Parser holds the state for the parsing process
type Parser struct {
	lx  *lexer.Lexer
	cfg *config.Config
}

// NewParser creates a Parser reading tokens from src
func NewParser(src []byte, cfg *config.Config) *Parser {
	return &Parser{lx: lexer.NewLexer(src), cfg: cfg}
}

var primaryStarts = []token.Type{
	token.Foreign, token.Proc, token.Struct, token.Enum, token.If,
	token.TypeName, token.Ident, token.Number, token.String, token.Dot, token.LParen,
}

// Parser helpers
func (p *Parser) current() token.Token { return p.lx.Peek(0) }

func (p *Parser) check(tokType token.Type) bool {
	return p.current().Type == tokType
}

func (p *Parser) match(tokType token.Type) (token.Token, bool) {
	if !p.check(tokType) {
		return token.Token{}, false
	}
	return p.lx.Next(), true
}

func (p *Parser) expect(tokType token.Type) (token.Token, error) {
	return p.lx.Eat(tokType)
}

func (p *Parser) requireFeature(ft config.Feature, tok token.Token) error {
	if p.cfg == nil || p.cfg.IsFeatureEnabled(ft) {
		return nil
	}
	info := p.cfg.Features[ft]
	return diag.At(diag.UnsupportedForm, tok, "%s is disabled by the current feature set (-Fno-%s)", tok.Type, info.Name)
}

// Parse reads declarations until end of file. The first error aborts the
// whole unit.
func (p *Parser) Parse() ([]*ast.Node, error) {
	var decls []*ast.Node
	for !p.check(token.EOF) {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// declaration := IDENT ':' [type_expr] [(':' | '=') value_expr]
func (p *Parser) parseDeclaration() (*ast.Node, error) {
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}

	var typeExpr, value *ast.Node
	if !p.check(token.Colon) && !p.check(token.Eq) {
		if typeExpr, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	constant := false
	if _, ok := p.match(token.Colon); ok {
		constant = true
		if value, err = p.parseExpr(); err != nil {
			return nil, err
		}
	} else if _, ok := p.match(token.Eq); ok {
		if value, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	if typeExpr == nil && value == nil {
		return nil, diag.Unexpected(p.current(), token.Colon, token.Eq)
	}
	return ast.NewDeclaration(nameTok, p.lx.Text(nameTok), typeExpr, value, constant), nil
}

// expression := primary { '.' IDENT | '(' args ')' }
func (p *Parser) parseExpr() (*ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if dotTok, ok := p.match(token.Dot); ok {
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = ast.NewField(dotTok, expr, p.lx.Text(nameTok), nameTok)
		} else if parenTok, ok := p.match(token.LParen); ok {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = ast.NewCall(parenTok, expr, args)
		} else {
			return expr, nil
		}
	}
}

func (p *Parser) parseArgs() ([]*ast.Node, error) {
	var args []*ast.Node
	if !p.check(token.RParen) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (*ast.Node, error) {
	tok := p.current()
	switch tok.Type {
	case token.Foreign:
		return p.parseForeign()
	case token.Proc:
		return p.parseProc()
	case token.Struct:
		return p.parseStruct()
	case token.Enum:
		return p.parseEnum()
	case token.If:
		return p.parseIf()
	case token.TypeName:
		p.lx.Next()
		return ast.NewType(tok, p.lx.Text(tok)), nil
	case token.Ident:
		p.lx.Next()
		return ast.NewIdent(tok, p.lx.Text(tok)), nil
	case token.Number:
		p.lx.Next()
		val, err := strconv.ParseInt(p.lx.Text(tok), 10, 64)
		if err != nil {
			return nil, diag.At(diag.LexicalError, tok, "integer literal out of range: %s", p.lx.Text(tok))
		}
		return ast.NewNumber(tok, val), nil
	case token.String:
		p.lx.Next()
		return ast.NewString(tok, lexer.StringValue(p.lx.Text(tok))), nil
	case token.Dot:
		p.lx.Next()
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		lit := token.Token{Type: token.Dot, Offset: tok.Offset, Len: nameTok.End() - tok.Offset}
		return ast.NewEnumLiteral(lit, p.lx.Text(nameTok)), nil
	case token.LParen:
		p.lx.Next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, diag.Unexpected(tok, primaryStarts...)
}

// foreign_expr := 'foreign' [STRING] expression
func (p *Parser) parseForeign() (*ast.Node, error) {
	tok := p.lx.Next()
	lib, hasLib := "", false
	if libTok, ok := p.match(token.String); ok {
		lib, hasLib = lexer.StringValue(p.lx.Text(libTok)), true
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewForeign(tok, lib, hasLib, expr), nil
}

// proc_expr := 'proc' '(' params ')' ['callconv' '(' expression ')'] expression ['{' expression* '}']
func (p *Parser) parseProc() (*ast.Node, error) {
	tok := p.lx.Next()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	var params []ast.ParamNode
	named := false
	if !p.check(token.RParen) {
		for {
			var param ast.ParamNode
			isNamed := p.check(token.Ident) && p.lx.Peek(1).Type == token.Colon
			if isNamed {
				param.NameTok = p.lx.Next()
				param.Name = p.lx.Text(param.NameTok)
				p.lx.Next()
			}
			if len(params) == 0 {
				named = isNamed
			} else if isNamed != named {
				return nil, diag.At(diag.SyntaxError, p.current(), "either all or none of the parameters must be named")
			}
			typ, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			param.Type = typ
			params = append(params, param)
			if _, ok := p.match(token.Comma); !ok {
				break
			}
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	var callConv *ast.Node
	if _, ok := p.match(token.Callconv); ok {
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		cc, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		callConv = cc
	}

	ret, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	header := ast.ProcedureHeaderNode{Params: params, Named: named, CallConv: callConv, Return: ret}
	if _, ok := p.match(token.LBrace); !ok {
		return ast.NewProcedureHeader(tok, params, named, callConv, ret), nil
	}

	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		stmt, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return ast.NewProcedureBody(tok, header, stmts), nil
}

// struct_expr := 'struct' '{' declaration* '}'
func (p *Parser) parseStruct() (*ast.Node, error) {
	tok := p.current()
	if err := p.requireFeature(config.FeatStructs, tok); err != nil {
		return nil, err
	}
	p.lx.Next()
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var fields []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		field, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return ast.NewStruct(tok, fields), nil
}

// enum_expr := 'enum' '{' [IDENT '=' expression {',' IDENT '=' expression} [',']] '}'
func (p *Parser) parseEnum() (*ast.Node, error) {
	tok := p.current()
	if err := p.requireFeature(config.FeatEnums, tok); err != nil {
		return nil, err
	}
	p.lx.Next()
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var members []ast.EnumMember
	for !p.check(token.RBrace) {
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Eq); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		members = append(members, ast.EnumMember{Name: p.lx.Text(nameTok), NameTok: nameTok, Value: value})
		if _, ok := p.match(token.Comma); !ok {
			break
		}
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return ast.NewEnum(tok, members), nil
}

// if_expr := 'if' '(' expression ['=' '=' expression] ')' expression 'else' expression
func (p *Parser) parseIf() (*ast.Node, error) {
	tok := p.current()
	if err := p.requireFeature(config.FeatConditionals, tok); err != nil {
		return nil, err
	}
	p.lx.Next()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if eqTok, ok := p.match(token.Eq); ok {
		if _, err := p.expect(token.Eq); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = ast.NewEqual(eqTok, cond, rhs)
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Else); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewIf(tok, cond, then, els), nil
}
