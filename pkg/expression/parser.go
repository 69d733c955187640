package expression

import (
	"fmt"
	"strconv"
)

// AST node kinds. The tree is small enough that a closed set of structs is
// clearer than an interface-per-operator design.
type exprNode interface{ node() }

type literalNode struct {
	value any
}

type scopeNode struct {
	name string // "$node", "$input", "$vars"
}

type propertyNode struct {
	target exprNode
	name   string
}

type indexNode struct {
	target exprNode
	index  exprNode
}

type unaryNode struct {
	op      string
	operand exprNode
}

type binaryNode struct {
	op          string
	left, right exprNode
}

type ternaryNode struct {
	cond, then, otherwise exprNode
}

func (literalNode) node()  {}
func (scopeNode) node()    {}
func (propertyNode) node() {}
func (indexNode) node()    {}
func (unaryNode) node()    {}
func (binaryNode) node()   {}
func (ternaryNode) node()  {}

type parser struct {
	expr   string
	tokens []token
	pos    int
}

// parse compiles the expression source into an AST.
func parse(expr string) (exprNode, error) {
	tokens, err := lex(expr)
	if err != nil {
		return nil, err
	}

	p := &parser{expr: expr, tokens: tokens}

	node, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	if p.peek().kind != tokenEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}

	return node, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++

	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Expr: p.expr, Pos: p.peek().pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokenOp {
		return "", false
	}

	for _, op := range ops {
		if t.text == op {
			p.pos++

			return op, true
		}
	}

	return "", false
}

func (p *parser) parseTernary() (exprNode, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.peek().kind != tokenQuestion {
		return cond, nil
	}

	p.next() // '?'

	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	if p.peek().kind != tokenColon {
		return nil, p.errorf("expected ':' in ternary expression")
	}

	p.next() // ':'

	otherwise, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	return ternaryNode{cond: cond, then: then, otherwise: otherwise}, nil
}

func (p *parser) parseOr() (exprNode, error) {
	return p.parseBinary([]string{"||"}, p.parseAnd)
}

func (p *parser) parseAnd() (exprNode, error) {
	return p.parseBinary([]string{"&&"}, p.parseEquality)
}

func (p *parser) parseEquality() (exprNode, error) {
	return p.parseBinary([]string{"==", "!="}, p.parseComparison)
}

func (p *parser) parseComparison() (exprNode, error) {
	return p.parseBinary([]string{"<=", ">=", "<", ">"}, p.parseAdditive)
}

func (p *parser) parseAdditive() (exprNode, error) {
	return p.parseBinary([]string{"+", "-"}, p.parseMultiplicative)
}

func (p *parser) parseMultiplicative() (exprNode, error) {
	return p.parseBinary([]string{"*", "/", "%"}, p.parseUnary)
}

func (p *parser) parseBinary(ops []string, next func() (exprNode, error)) (exprNode, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.acceptOp(ops...)
		if !ok {
			return left, nil
		}

		right, err := next()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (exprNode, error) {
	if op, ok := p.acceptOp("!", "-"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return unaryNode{op: op, operand: operand}, nil
	}

	return p.parsePostfix()
}

func (p *parser) parsePostfix() (exprNode, error) {
	target, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.peek().kind {
		case tokenDot:
			p.next()

			name := p.next()
			if name.kind != tokenIdent {
				return nil, p.errorf("expected property name after '.'")
			}

			target = propertyNode{target: target, name: name.text}
		case tokenLBracket:
			p.next()

			index, err := p.parseTernary()
			if err != nil {
				return nil, err
			}

			if p.peek().kind != tokenRBracket {
				return nil, p.errorf("expected ']'")
			}

			p.next()
			target = indexNode{target: target, index: index}
		default:
			return target, nil
		}
	}
}

func (p *parser) parsePrimary() (exprNode, error) {
	t := p.peek()

	switch t.kind {
	case tokenNumber:
		p.next()

		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", t.text)
		}

		return literalNode{value: n}, nil
	case tokenString:
		p.next()

		return literalNode{value: t.text}, nil
	case tokenScope:
		p.next()

		switch t.text {
		case ScopeNode, ScopeInput, ScopeVars:
			return scopeNode{name: t.text}, nil
		default:
			return nil, &SyntaxError{Expr: p.expr, Pos: t.pos, Msg: "unknown scope " + t.text}
		}
	case tokenIdent:
		p.next()

		switch t.text {
		case "true":
			return literalNode{value: true}, nil
		case "false":
			return literalNode{value: false}, nil
		case "null":
			return literalNode{value: nil}, nil
		default:
			return nil, &SyntaxError{Expr: p.expr, Pos: t.pos, Msg: "unknown identifier " + t.text}
		}
	case tokenLParen:
		p.next()

		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}

		if p.peek().kind != tokenRParen {
			return nil, p.errorf("expected ')'")
		}

		p.next()

		return inner, nil
	default:
		return nil, p.errorf("unexpected %q", t.text)
	}
}
