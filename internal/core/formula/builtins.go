package formula

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

type builtin struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(args []Value) (Value, error)
}

func (b builtin) arity() string {
	switch {
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", b.minArgs)
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d arguments", b.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
	}
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"abs":   numeric1(math.Abs),
		"floor": numeric1(math.Floor),
		"ceil":  numeric1(math.Ceil),
		"sqrt":  numeric1(math.Sqrt),
		"round": {1, 2, round},
		"pow": {2, 2, func(args []Value) (Value, error) {
			x, err := operand(args[0], "pow")
			if err != nil {
				return Null(), err
			}
			y, err := operand(args[1], "pow")
			if err != nil {
				return Null(), err
			}
			return finite(math.Pow(x, y))
		}},
		"min": {1, -1, extreme(func(a, b float64) bool { return a < b })},
		"max": {1, -1, extreme(func(a, b float64) bool { return a > b })},
		// Evaluated lazily in call.eval; this entry only carries the arity.
		"if": {3, 3, nil},
		"concat": {1, -1, func(args []Value) (Value, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(a.String())
			}
			return String(b.String()), nil
		}},
		"upper": text1(strings.ToUpper),
		"lower": text1(strings.ToLower),
		"trim":  text1(strings.TrimSpace),
		"len": {1, 1, func(args []Value) (Value, error) {
			if args[0].IsNull() {
				return Number(0), nil
			}
			return Number(float64(utf8.RuneCountInString(args[0].String()))), nil
		}},
		"number": {1, 1, func(args []Value) (Value, error) {
			f, err := operand(args[0], "number")
			if err != nil {
				return Null(), err
			}
			return Number(f), nil
		}},
		"text": {1, 1, func(args []Value) (Value, error) {
			if args[0].IsNull() {
				return Null(), nil
			}
			return String(args[0].String()), nil
		}},
	}
}

func numeric1(fn func(float64) float64) builtin {
	return builtin{1, 1, func(args []Value) (Value, error) {
		x, err := operand(args[0], "function")
		if err != nil {
			return Null(), err
		}
		return finite(fn(x))
	}}
}

func text1(fn func(string) string) builtin {
	return builtin{1, 1, func(args []Value) (Value, error) {
		if args[0].IsNull() {
			return Null(), nil
		}
		return String(fn(args[0].String())), nil
	}}
}

// round rounds half away from zero to the given number of decimal places.
func round(args []Value) (Value, error) {
	x, err := operand(args[0], "round")
	if err != nil {
		return Null(), err
	}
	digits := 0.0
	if len(args) == 2 {
		if digits, err = operand(args[1], "round"); err != nil {
			return Null(), err
		}
	}
	scale := math.Pow(10, math.Trunc(digits))
	return finite(math.Round(x*scale) / scale)
}

func extreme(better func(a, b float64) bool) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		best, err := operand(args[0], "min/max")
		if err != nil {
			return Null(), err
		}
		for _, a := range args[1:] {
			f, err := operand(a, "min/max")
			if err != nil {
				return Null(), err
			}
			if better(f, best) {
				best = f
			}
		}
		return Number(best), nil
	}
}
