package formula

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalArithmetic(t *testing.T) {
	scope := Scope{"x": Number(2), "y": Number(3), "s": String("4")}

	tests := []struct {
		src  string
		want float64
	}{
		{"x + y", 5},
		{"x - y", -1},
		{"x * y + 1", 7},
		{"1 + x * y", 7},
		{"(1 + x) * y", 9},
		{"y / x", 1.5},
		{"7 % 4", 3},
		{"2 ^ 3 ^ 2", 512},
		{"-2 ^ 2", -4},
		{"2 ^ -1", 0.5},
		{"-x", -2},
		{"+x", 2},
		{"x + s", 6},
		{"1.5e2", 150},
		{".5 * 4", 2},
		{"abs(-3)", 3},
		{"round(2.346, 2)", 2.35},
		{"round(2.5)", 3},
		{"floor(2.7) + ceil(2.1)", 5},
		{"sqrt(16)", 4},
		{"pow(2, 10)", 1024},
		{"min(3, x, y)", 2},
		{"max(x, y, 1)", 3},
		{"len('hello')", 5},
		{"number('12')", 12},
		{"if(x > y, 1, 0)", 0},
		{"round(pi, 2)", 3.14},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr, err := Compile(tt.src)
			require.NoError(t, err)
			got, err := expr.Eval(scope)
			require.NoError(t, err)
			require.Equal(t, KindNumber, got.Kind())
			require.InDelta(t, tt.want, got.Interface().(float64), 1e-9)
		})
	}
}

func TestEvalStringsAndLogic(t *testing.T) {
	scope := Scope{
		"first": String("Ada"),
		"last":  String("Lovelace"),
		"unit price": Number(10),
		"active":     Bool(true),
		"missing":    Null(),
	}

	tests := []struct {
		src  string
		want any
	}{
		{`first + " " + last`, "Ada Lovelace"},
		{`concat(first, "-", 1)`, "Ada-1"},
		{`upper(first)`, "ADA"},
		{`lower("ABC")`, "abc"},
		{`trim("  x ")`, "x"},
		{`text(12.5)`, "12.5"},
		{"`unit price` * 2", 20.0},
		{`first == "Ada"`, true},
		{`first != last`, true},
		{`"a" < "b"`, true},
		{`"10" > 9`, true},
		{`active and not false`, true},
		{`active && missing`, false},
		{`false or 1`, true},
		{`!active`, false},
		{`missing == null`, true},
		{`1 == "1"`, true},
		{`if(active, "yes", 1 / 0)`, "yes"},
		{`upper(missing)`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr, err := Compile(tt.src)
			require.NoError(t, err)
			got, err := expr.Eval(scope)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestEvalErrors(t *testing.T) {
	scope := Scope{"x": Number(1), "zero": Number(0), "name": String("abc"), "n": Null()}

	tests := []struct {
		src  string
		want error
	}{
		{"x / zero", ErrDivisionByZero},
		{"x % 0", ErrDivisionByZero},
		{"x + name", ErrTypeMismatch},
		{"name * 2", ErrTypeMismatch},
		{"n + 1", ErrTypeMismatch},
		{"-name", ErrTypeMismatch},
		{"x < name", ErrTypeMismatch},
		{"y + 1", ErrUnknownVariable},
		{"sqrt(-1)", ErrNotFinite},
		{"10 ^ 400", ErrNotFinite},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr, err := Compile(tt.src)
			require.NoError(t, err)
			_, err = expr.Eval(scope)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"x +",
		"(x + y",
		"x y",
		"x = 1",
		"foo(1)",
		"round()",
		"if(1, 2)",
		`"unterminated`,
		"`unterminated",
		"x # y",
		"and",
		")",
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "want *SyntaxError, got %T", err)
		})
	}
}

func TestCompileDepthLimit(t *testing.T) {
	src := strings.Repeat("(", MaxDepth) + "1" + strings.Repeat(")", MaxDepth)
	_, err := Compile(src)
	require.Error(t, err)

	_, err = Compile("((((1))))")
	require.NoError(t, err)
}

func TestVariables(t *testing.T) {
	expr := MustCompile("a + b * a + `c d` + abs(e)")
	require.Equal(t, []string{"a", "b", "c d", "e"}, expr.Variables())
	require.Equal(t, "a + b * a + `c d` + abs(e)", expr.String())
}

func TestScopeShadowsConstants(t *testing.T) {
	expr := MustCompile("e * 2")
	got, err := expr.Eval(Scope{"e": Number(5)})
	require.NoError(t, err)
	require.Equal(t, 10.0, got.Interface())
}

func TestFromAny(t *testing.T) {
	require.Equal(t, KindNull, FromAny(nil).Kind())
	require.Equal(t, KindNumber, FromAny(3).Kind())
	require.Equal(t, KindNumber, FromAny(int64(3)).Kind())
	require.Equal(t, KindBool, FromAny(true).Kind())
	require.Equal(t, KindString, FromAny("x").Kind())
	require.Equal(t, 2.5, FromAny(2.5).Interface())
}
