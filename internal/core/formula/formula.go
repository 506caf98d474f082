// Package formula implements the small expression language used by Custom
// operations.
//
// A formula is compiled once into an immutable tree and then evaluated per
// row against a Scope of column values. The language only knows arithmetic,
// comparison, logic and a fixed set of built-in functions; there is no
// assignment, no loops and no access to anything outside the scope.
//
//	expr, err := formula.Compile("round(price * qty, 2)")
//	if err != nil {
//	    return err
//	}
//	v, err := expr.Eval(formula.Scope{"price": formula.Number(9.99), "qty": formula.Number(3)})
//
// Column names that are not plain identifiers can be written in back-quotes:
// `unit price` * qty.
package formula

import (
	"errors"
	"fmt"
	"strings"
)

// Evaluation errors. Eval wraps one of these with detail.
var (
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrNotFinite       = errors.New("result is not a finite number")
)

// SyntaxError reports why a formula failed to compile.
type SyntaxError struct {
	Pos int    // byte offset into the source
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// Expr is a compiled formula. It is safe for concurrent use.
type Expr struct {
	src  string
	root node
	vars []string
}

// Compile parses src into an Expr.
func Compile(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &SyntaxError{Pos: 0, Msg: "formula is empty"}
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, vars: make(map[string]bool)}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return &Expr{src: src, root: root, vars: p.order}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level formulas.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval evaluates the formula against scope.
func (e *Expr) Eval(scope Scope) (Value, error) {
	return e.root.eval(scope)
}

// Variables returns the identifiers the formula reads, in first-use order.
func (e *Expr) Variables() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

func (e *Expr) String() string { return e.src }
