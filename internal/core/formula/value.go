package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is the closed set of values a formula can see or produce.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number wraps a float64.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// FromAny converts a canonical cell value into a formula Value.
func FromAny(x any) Value {
	switch v := x.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case uint:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case uint32:
		return Number(float64(v))
	case bool:
		return Bool(v)
	case string:
		return String(v)
	case time.Time:
		return String(v.UTC().Format(time.RFC3339Nano))
	default:
		return String(fmt.Sprint(v))
	}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns v as a plain Go value: nil, float64, string or bool.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// String renders v the way concat and text() see it.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// number coerces v to a float64. Numeric strings and bools convert; null
// and other strings do not.
func (v Value) number() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// truthy reports whether v counts as true in a logical context.
func (v Value) truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindString:
		return v.str != ""
	default:
		return false
	}
}

// Scope maps variable names to values for one evaluation.
type Scope map[string]Value
