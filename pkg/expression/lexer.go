// Package expression implements the restricted template expression language used
// inside node configurations. Expressions support property access, arithmetic,
// comparisons, boolean logic and the ternary operator, evaluated against a
// read-only scope of $node, $input and $vars. Nothing else is reachable: the
// interpreter never touches process state and never executes host code.
package expression

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenIdent  // bare identifier, only valid after '.'
	tokenScope  // $node, $input, $vars
	tokenLParen // (
	tokenRParen // )
	tokenLBracket
	tokenRBracket
	tokenDot
	tokenQuestion
	tokenColon
	tokenOp // operator: + - * / % == != < <= > >= && || !
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d in %q: %s", e.Pos, e.Expr, e.Msg)
}

type lexer struct {
	input  string
	pos    int
	tokens []token
}

var twoCharOps = []string{"==", "!=", "<=", ">=", "&&", "||"}

func lex(input string) ([]token, error) {
	l := &lexer{input: input}

	for l.pos < len(l.input) {
		c := l.input[l.pos]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c >= '0' && c <= '9':
			l.lexNumber()
		case c == '\'' || c == '"':
			if err := l.lexString(c); err != nil {
				return nil, err
			}
		case c == '$':
			if err := l.lexScope(); err != nil {
				return nil, err
			}
		case isIdentStart(rune(c)):
			l.lexIdent()
		default:
			if err := l.lexSymbol(); err != nil {
				return nil, err
			}
		}
	}

	l.tokens = append(l.tokens, token{kind: tokenEOF, pos: l.pos})

	return l.tokens, nil
}

func (l *lexer) lexNumber() {
	start := l.pos
	seenDot := false

	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '.' && !seenDot && l.pos+1 < len(l.input) && l.input[l.pos+1] >= '0' && l.input[l.pos+1] <= '9' {
			seenDot = true
			l.pos++

			continue
		}

		if c < '0' || c > '9' {
			break
		}

		l.pos++
	}

	l.tokens = append(l.tokens, token{kind: tokenNumber, text: l.input[start:l.pos], pos: start})
}

func (l *lexer) lexString(quote byte) error {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder

	for l.pos < len(l.input) {
		c := l.input[l.pos]

		if c == '\\' && l.pos+1 < len(l.input) {
			next := l.input[l.pos+1]
			switch next {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(next)
			}

			l.pos += 2

			continue
		}

		if c == quote {
			l.pos++
			l.tokens = append(l.tokens, token{kind: tokenString, text: sb.String(), pos: start})

			return nil
		}

		sb.WriteByte(c)
		l.pos++
	}

	return &SyntaxError{Expr: l.input, Pos: start, Msg: "unterminated string"}
}

func (l *lexer) lexScope() error {
	start := l.pos
	l.pos++ // '$'

	identStart := l.pos
	for l.pos < len(l.input) && isIdentPart(rune(l.input[l.pos])) {
		l.pos++
	}

	if l.pos == identStart {
		return &SyntaxError{Expr: l.input, Pos: start, Msg: "expected scope name after '$'"}
	}

	l.tokens = append(l.tokens, token{kind: tokenScope, text: "$" + l.input[identStart:l.pos], pos: start})

	return nil
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(rune(l.input[l.pos])) {
		l.pos++
	}

	l.tokens = append(l.tokens, token{kind: tokenIdent, text: l.input[start:l.pos], pos: start})
}

func (l *lexer) lexSymbol() error {
	if l.pos+1 < len(l.input) {
		two := l.input[l.pos : l.pos+2]
		for _, op := range twoCharOps {
			if two == op {
				l.tokens = append(l.tokens, token{kind: tokenOp, text: op, pos: l.pos})
				l.pos += 2

				return nil
			}
		}
	}

	pos := l.pos
	c := l.input[l.pos]
	l.pos++

	switch c {
	case '(':
		l.tokens = append(l.tokens, token{kind: tokenLParen, text: "(", pos: pos})
	case ')':
		l.tokens = append(l.tokens, token{kind: tokenRParen, text: ")", pos: pos})
	case '[':
		l.tokens = append(l.tokens, token{kind: tokenLBracket, text: "[", pos: pos})
	case ']':
		l.tokens = append(l.tokens, token{kind: tokenRBracket, text: "]", pos: pos})
	case '.':
		l.tokens = append(l.tokens, token{kind: tokenDot, text: ".", pos: pos})
	case '?':
		l.tokens = append(l.tokens, token{kind: tokenQuestion, text: "?", pos: pos})
	case ':':
		l.tokens = append(l.tokens, token{kind: tokenColon, text: ":", pos: pos})
	case '+', '-', '*', '/', '%', '<', '>', '!':
		l.tokens = append(l.tokens, token{kind: tokenOp, text: string(c), pos: pos})
	default:
		return &SyntaxError{Expr: l.input, Pos: pos, Msg: fmt.Sprintf("unexpected character %q", c)}
	}

	return nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
