package sexp

import (
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xplshn/cxc/pkg/diag"
	"github.com/xplshn/cxc/pkg/lexer"
)

const symbolPunct = "+-*/_=<>!"

// Reader yields one top-level expression at a time from a source buffer.
type Reader struct {
	src []byte
	pos int
}

func NewReader(src []byte) *Reader {
	return &Reader{src: src}
}

// ReadAll reads every top-level expression in src.
func ReadAll(src []byte) ([]Exp, error) {
	r := NewReader(src)
	var out []Exp
	for {
		x, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
}

// Next returns the next top-level expression, or io.EOF once the input is
// exhausted.
func (r *Reader) Next() (Exp, error) {
	r.skipWhitespaceAndComments()
	if r.isAtEnd() {
		return nil, io.EOF
	}
	return r.read()
}

func (r *Reader) isAtEnd() bool { return r.pos >= len(r.src) }

func (r *Reader) peek() rune {
	if r.isAtEnd() {
		return 0
	}
	ch, _ := utf8.DecodeRune(r.src[r.pos:])
	return ch
}

func (r *Reader) advance() rune {
	ch, size := utf8.DecodeRune(r.src[r.pos:])
	r.pos += size
	return ch
}

func (r *Reader) skipWhitespaceAndComments() {
	for !r.isAtEnd() {
		ch := r.peek()
		switch {
		case unicode.IsSpace(ch):
			r.advance()
		case ch == ';':
			for !r.isAtEnd() && r.peek() != '\n' {
				r.advance()
			}
		default:
			return
		}
	}
}

func isSymbolStart(ch rune) bool {
	return unicode.IsLetter(ch) || strings.ContainsRune(symbolPunct, ch)
}

func isSymbolChar(ch rune) bool {
	return isSymbolStart(ch) || unicode.IsDigit(ch)
}

func (r *Reader) symbolRun() string {
	start := r.pos
	for !r.isAtEnd() && isSymbolChar(r.peek()) {
		r.advance()
	}
	return string(r.src[start:r.pos])
}

func (r *Reader) read() (Exp, error) {
	start := r.pos
	ch := r.peek()
	switch {
	case ch == '(':
		return r.readList()
	case ch == ')':
		return nil, diag.Errorf(diag.SyntaxError, start, 1, "unbalanced ')'")
	case ch == '.':
		r.advance()
		name := r.symbolRun()
		if name == "" {
			return nil, diag.Errorf(diag.LexicalError, start, 1, "'.' must be followed by a name")
		}
		return EnumLiteral{Name: name, Offset: start}, nil
	case ch >= '0' && ch <= '9':
		for !r.isAtEnd() && r.peek() >= '0' && r.peek() <= '9' {
			r.advance()
		}
		text := string(r.src[start:r.pos])
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, diag.Errorf(diag.LexicalError, start, r.pos-start, "integer literal out of range: %s", text)
		}
		return Int{Value: val, Offset: start, Length: r.pos - start}, nil
	case ch == '"':
		return r.readString()
	case isSymbolStart(ch):
		return Symbol{Name: r.symbolRun(), Offset: start}, nil
	}
	_, size := utf8.DecodeRune(r.src[r.pos:])
	return nil, diag.Errorf(diag.LexicalError, start, size, "unexpected character '%c'", ch)
}

func (r *Reader) readList() (Exp, error) {
	list := &List{Offset: r.pos}
	r.advance()
	for {
		r.skipWhitespaceAndComments()
		if r.isAtEnd() {
			return nil, diag.Errorf(diag.SyntaxError, list.Offset, 1, "unterminated list")
		}
		if r.peek() == ')' {
			r.advance()
			list.End = r.pos
			return list, nil
		}
		item, err := r.read()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}
}

func (r *Reader) readString() (Exp, error) {
	start := r.pos
	r.pos++
	for !r.isAtEnd() {
		switch r.src[r.pos] {
		case '"':
			r.pos++
			return String{Value: lexer.StringValue(string(r.src[start:r.pos])), Offset: start, Length: r.pos - start}, nil
		case '\\':
			r.pos += 2
		default:
			r.pos++
		}
	}
	r.pos = len(r.src)
	return nil, diag.Errorf(diag.LexicalError, start, r.pos-start, "unterminated string literal")
}
