package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDepth bounds expression nesting so hostile input cannot exhaust the stack.
const MaxDepth = 64

// node is one vertex of the compiled expression tree. The set of node types
// is closed: literal, variable, unary, binary and call.
type node interface {
	eval(scope Scope) (Value, error)
}

type literal struct{ val Value }

type variable struct{ name string }

type unary struct {
	op      string
	operand node
}

type binary struct {
	op          string
	left, right node
}

type call struct {
	name string
	fn   builtin
	args []node
}

type parser struct {
	toks  []token
	pos   int
	depth int
	vars  map[string]bool
	order []string
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// isOp reports whether the current token is one of ops, treating the word
// forms and/or/not as their symbolic operators.
func (p *parser) isOp(ops ...string) (string, bool) {
	t := p.peek()
	text := t.text
	if t.kind == tokIdent {
		switch strings.ToLower(t.text) {
		case "and":
			text = "&&"
		case "or":
			text = "||"
		case "not":
			text = "!"
		default:
			return "", false
		}
	} else if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if text == op {
			return op, true
		}
	}
	return "", false
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return p.errorf(p.peek(), "expression nested deeper than %d levels", MaxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseExpr() (node, error) {
	return p.parseBinary(0)
}

// precedence lists binary operator tiers from loosest to tightest.
var precedence = [][]string{
	{"||"},
	{"&&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int) (node, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp(precedence[level]...)
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &binary{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if op, ok := p.isOp("-", "+", "!"); ok {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unary{op: op, operand: operand}, nil
	}
	return p.parsePower()
}

// parsePower handles '^', which is right-associative and binds tighter than
// unary minus: -2^2 is -4.
func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.isOp("^"); ok {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &binary{op: "^", left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	t := p.next()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number %q", t.text)
		}
		return &literal{val: Number(f)}, nil

	case tokString:
		return &literal{val: String(t.text)}, nil

	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected ')'")
		}
		return inner, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		switch strings.ToLower(t.text) {
		case "true":
			return &literal{val: Bool(true)}, nil
		case "false":
			return &literal{val: Bool(false)}, nil
		case "null":
			return &literal{val: Null()}, nil
		case "and", "or", "not":
			return nil, p.errorf(t, "unexpected %q", t.text)
		}
		if !p.vars[t.text] {
			p.vars[t.text] = true
			p.order = append(p.order, t.text)
		}
		return &variable{name: t.text}, nil

	case tokEOF:
		return nil, p.errorf(t, "unexpected end of formula")
	default:
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := builtins[strings.ToLower(name.text)]
	if !ok {
		return nil, p.errorf(name, "unknown function %q", name.text)
	}
	p.next() // '('

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if closing := p.next(); closing.kind != tokRParen {
		return nil, p.errorf(closing, "expected ')' after arguments to %s", name.text)
	}
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, p.errorf(name, "%s takes %s, got %d", name.text, fn.arity(), len(args))
	}
	return &call{name: strings.ToLower(name.text), fn: fn, args: args}, nil
}
