package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/xplshn/cxc/pkg/diag"
	"github.com/xplshn/cxc/pkg/token"
)

// TokenAt classifies the token starting at or after off. It has no side
// effects, so calling it twice with the same offset yields the same token.
func TokenAt(src []byte, off int) token.Token {
	pos := skipWhitespaceAndComments(src, off)
	if pos >= len(src) {
		return token.Token{Type: token.EOF, Offset: len(src)}
	}

	ch, size := utf8.DecodeRune(src[pos:])
	switch {
	case unicode.IsLetter(ch) || ch == '_':
		return identifierOrKeyword(src, pos)
	case isDigit(ch):
		end := pos
		for end < len(src) && isDigit(rune(src[end])) {
			end++
		}
		return makeToken(token.Number, pos, end)
	case ch == '"':
		return stringLiteral(src, pos)
	}

	if typ, ok := token.Punct(ch); ok {
		return makeToken(typ, pos, pos+size)
	}
	return makeToken(token.Error, pos, pos+size)
}

func makeToken(typ token.Type, start, end int) token.Token {
	return token.Token{Type: typ, Offset: start, Len: end - start}
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func skipWhitespaceAndComments(src []byte, pos int) int {
	for pos < len(src) {
		switch src[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		case ';':
			for pos < len(src) && src[pos] != '\n' {
				pos++
			}
		default:
			return pos
		}
	}
	return pos
}

func identifierOrKeyword(src []byte, start int) token.Token {
	end := start
	for end < len(src) {
		ch, size := utf8.DecodeRune(src[end:])
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' {
			break
		}
		end += size
	}
	tok := makeToken(token.Ident, start, end)
	word := string(src[start:end])
	if typ, isKeyword := token.KeywordMap[word]; isKeyword {
		tok.Type = typ
	} else if token.TypeNames[word] {
		tok.Type = token.TypeName
	}
	return tok
}

func stringLiteral(src []byte, start int) token.Token {
	pos := start + 1
	for pos < len(src) {
		switch src[pos] {
		case '"':
			return makeToken(token.String, start, pos+1)
		case '\\':
			pos += 2
		default:
			pos++
		}
	}
	return makeToken(token.Error, start, len(src))
}

// Lexer is a cursor over a source buffer. Tokens are produced lazily by
// TokenAt, so lookahead of any depth costs nothing but rescanning.
type Lexer struct {
	src []byte
	pos int
}

func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src}
}

func (l *Lexer) Source() []byte { return l.src }

// Offset is the position the next token is scanned from.
func (l *Lexer) Offset() int { return l.pos }

// Peek returns the n-th upcoming token without consuming anything. Peek(0)
// is the current token.
func (l *Lexer) Peek(n int) token.Token {
	off := l.pos
	tok := TokenAt(l.src, off)
	for i := 0; i < n && tok.Type != token.EOF; i++ {
		off = tok.End()
		tok = TokenAt(l.src, off)
	}
	return tok
}

// Next consumes and returns the current token. EOF is never consumed.
func (l *Lexer) Next() token.Token {
	tok := TokenAt(l.src, l.pos)
	if tok.Type != token.EOF {
		l.pos = tok.End()
	}
	return tok
}

// Eat consumes the current token if it has kind typ.
func (l *Lexer) Eat(typ token.Type) (token.Token, error) {
	tok := TokenAt(l.src, l.pos)
	if tok.Type != typ {
		return tok, diag.Unexpected(tok, typ)
	}
	l.pos = tok.End()
	return tok, nil
}

// Text returns the lexeme of tok.
func (l *Lexer) Text(tok token.Token) string { return tok.Text(l.src) }

// StringValue strips the quotes from a string lexeme and decodes its
// backslash escapes.
func StringValue(lexeme string) string {
	if len(lexeme) >= 2 && lexeme[0] == '"' && lexeme[len(lexeme)-1] == '"' {
		lexeme = lexeme[1 : len(lexeme)-1]
	}
	escapes := map[byte]byte{'n': '\n', 't': '\t', 'r': '\r', '0': 0, '\\': '\\', '"': '"'}
	out := make([]byte, 0, len(lexeme))
	for i := 0; i < len(lexeme); i++ {
		c := lexeme[i]
		if c == '\\' && i+1 < len(lexeme) {
			i++
			if e, ok := escapes[lexeme[i]]; ok {
				out = append(out, e)
			} else {
				out = append(out, lexeme[i])
			}
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
