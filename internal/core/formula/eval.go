package formula

import (
	"cmp"
	"fmt"
	"math"
	"strings"
)

// constants are resolved only when the scope has no variable of that name.
var constants = map[string]Value{
	"pi": Number(math.Pi),
	"e":  Number(math.E),
}

func (n *literal) eval(Scope) (Value, error) { return n.val, nil }

func (n *variable) eval(scope Scope) (Value, error) {
	if v, ok := scope[n.name]; ok {
		return v, nil
	}
	if v, ok := constants[n.name]; ok {
		return v, nil
	}
	return Null(), fmt.Errorf("%w: %s", ErrUnknownVariable, n.name)
}

func (n *unary) eval(scope Scope) (Value, error) {
	v, err := n.operand.eval(scope)
	if err != nil {
		return Null(), err
	}
	switch n.op {
	case "!":
		return Bool(!v.truthy()), nil
	case "+":
		f, err := operand(v, n.op)
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	default:
		f, err := operand(v, n.op)
		if err != nil {
			return Null(), err
		}
		return Number(-f), nil
	}
}

func (n *binary) eval(scope Scope) (Value, error) {
	// Logical operators short-circuit.
	switch n.op {
	case "&&", "||":
		l, err := n.left.eval(scope)
		if err != nil {
			return Null(), err
		}
		if n.op == "&&" && !l.truthy() {
			return Bool(false), nil
		}
		if n.op == "||" && l.truthy() {
			return Bool(true), nil
		}
		r, err := n.right.eval(scope)
		if err != nil {
			return Null(), err
		}
		return Bool(r.truthy()), nil
	}

	l, err := n.left.eval(scope)
	if err != nil {
		return Null(), err
	}
	r, err := n.right.eval(scope)
	if err != nil {
		return Null(), err
	}

	switch n.op {
	case "==":
		return Bool(equal(l, r)), nil
	case "!=":
		return Bool(!equal(l, r)), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, l, r)
	case "+":
		if lf, lok := l.number(); lok {
			if rf, rok := r.number(); rok {
				return finite(lf + rf)
			}
		}
		if l.kind == KindString && r.kind == KindString {
			return String(l.str + r.str), nil
		}
		return Null(), fmt.Errorf("%w: cannot add %s and %s", ErrTypeMismatch, l.kind, r.kind)
	}

	lf, err := operand(l, n.op)
	if err != nil {
		return Null(), err
	}
	rf, err := operand(r, n.op)
	if err != nil {
		return Null(), err
	}
	switch n.op {
	case "-":
		return finite(lf - rf)
	case "*":
		return finite(lf * rf)
	case "/":
		if rf == 0 {
			return Null(), ErrDivisionByZero
		}
		return finite(lf / rf)
	case "%":
		if rf == 0 {
			return Null(), ErrDivisionByZero
		}
		return finite(math.Mod(lf, rf))
	case "^":
		return finite(math.Pow(lf, rf))
	}
	return Null(), fmt.Errorf("unsupported operator %q", n.op)
}

func (n *call) eval(scope Scope) (Value, error) {
	// if() only evaluates the branch it takes.
	if n.name == "if" {
		cond, err := n.args[0].eval(scope)
		if err != nil {
			return Null(), err
		}
		if cond.truthy() {
			return n.args[1].eval(scope)
		}
		return n.args[2].eval(scope)
	}

	args := make([]Value, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(scope)
		if err != nil {
			return Null(), err
		}
		args[i] = v
	}
	return n.fn.call(args)
}

// operand coerces v to a number for an arithmetic operator.
func operand(v Value, op string) (float64, error) {
	f, ok := v.number()
	if !ok {
		return 0, fmt.Errorf("%w: operator %s needs a number, got %s", ErrTypeMismatch, op, v.kind)
	}
	return f, nil
}

func finite(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null(), ErrNotFinite
	}
	return Number(f), nil
}

func equal(l, r Value) bool {
	if l.kind == KindNull || r.kind == KindNull {
		return l.kind == r.kind
	}
	if l.kind == r.kind {
		switch l.kind {
		case KindNumber:
			return l.num == r.num
		case KindString:
			return l.str == r.str
		case KindBool:
			return l.b == r.b
		}
	}
	lf, lok := l.number()
	rf, rok := r.number()
	return lok && rok && lf == rf
}

func compare(op string, l, r Value) (Value, error) {
	lf, lok := l.number()
	rf, rok := r.number()

	var c int
	switch {
	case lok && rok:
		c = cmp.Compare(lf, rf)
	case l.kind == KindString && r.kind == KindString:
		c = strings.Compare(l.str, r.str)
	default:
		return Null(), fmt.Errorf("%w: cannot compare %s with %s", ErrTypeMismatch, l.kind, r.kind)
	}

	switch op {
	case "<":
		return Bool(c < 0), nil
	case "<=":
		return Bool(c <= 0), nil
	case ">":
		return Bool(c > 0), nil
	default:
		return Bool(c >= 0), nil
	}
}
