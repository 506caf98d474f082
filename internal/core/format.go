package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Render returns the display text for a cell of col. The value is cast to
// the column type first; nil renders as the empty string.
func Render(v any, col Column) string {
	v = Cast(v, col.DataType)
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return renderNumber(x, FormatFor(col.DataType, col.Format))
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	}
	return ""
}

func renderNumber(f float64, format DisplayFormat) string {
	d := decimal.NewFromFloat(f)
	switch format {
	case FormatCurrencyUSD:
		s := groupThousands(d.Abs().StringFixed(2))
		if d.IsNegative() && s != "0.00" {
			return "-$" + s
		}
		return "$" + s
	case FormatPercentage:
		return d.String() + "%"
	default:
		return d.String()
	}
}

// groupThousands inserts commas into the integer part of a non-negative
// decimal string.
func groupThousands(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
