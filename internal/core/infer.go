package core

// infer.go derives a (type, format) pair from a single raw cell value.
//
// Rules are tried in a fixed order and the first match wins:
//  1. empty            -> Text
//  2. native bool      -> Boolean
//  3. native number    -> Number
//  4. plain decimal    -> Number
//  5. "12.5%"          -> Number, Percentage
//  6. "$1,200.50"      -> Number, Currency (USD)
//  7. true/false/yes/no -> Boolean
//  8. ISO-like date    -> Date
//  9. anything else    -> Text
//
// Plain numbers are checked before the decorated formats, so "1200" is a
// plain Number while "1,200" and "$1200" are currency.

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	percentRegex = regexp.MustCompile(`^-?\d+(\.\d+)?\s*%$`)

	// Either grouped thousands or an ungrouped run of digits, each with an
	// optional two-digit fraction.
	currencyRegex = regexp.MustCompile(`^\$?\d{1,3}(,\d{3})*(\.\d{2})?$|^\$?\d+(\.\d{2})?$`)

	isoDateRegex = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)
)

// Infer returns the data type and display format suggested by one raw value.
// It never fails; unrecognized input is Text with no format.
func Infer(raw any) (DataType, DisplayFormat) {
	switch v := raw.(type) {
	case nil:
		return TypeText, FormatNone
	case bool:
		return TypeBoolean, FormatNone
	case float64:
		return inferFloat(v)
	case float32:
		return inferFloat(float64(v))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeNumber, FormatNone
	case time.Time:
		if v.IsZero() {
			return TypeText, FormatNone
		}
		return TypeDate, FormatNone
	case string:
		return inferString(v)
	default:
		return TypeText, FormatNone
	}
}

func inferFloat(f float64) (DataType, DisplayFormat) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return TypeText, FormatNone
	}
	return TypeNumber, FormatNone
}

func inferString(raw string) (DataType, DisplayFormat) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TypeText, FormatNone
	}

	if numericRegex.MatchString(s) {
		if _, ok := ToNumber(s); ok {
			return TypeNumber, FormatNone
		}
	}

	if percentRegex.MatchString(s) {
		if _, ok := ToNumber(s); ok {
			return TypeNumber, FormatPercentage
		}
	}

	if currencyRegex.MatchString(s) {
		if _, ok := ToNumber(s); ok {
			return TypeNumber, FormatCurrencyUSD
		}
	}

	switch strings.ToLower(s) {
	case "true", "false", "yes", "no":
		return TypeBoolean, FormatNone
	}

	if isoDateRegex.MatchString(s) {
		if _, ok := parseDate(s); ok {
			return TypeDate, FormatNone
		}
	}

	return TypeText, FormatNone
}

// InferColumns builds a column catalog from a record, one column per field in
// order. When fields is empty the record's keys are used in sorted order.
func InferColumns(fields []string, first map[string]any) []Column {
	if len(fields) == 0 {
		fields = sortedKeys(first)
	}
	columns := make([]Column, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, name := range fields {
		if seen[name] {
			continue
		}
		seen[name] = true
		t, f := Infer(first[name])
		columns = append(columns, Column{Name: name, DataType: t, Format: FormatFor(t, f)})
	}
	return columns
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
