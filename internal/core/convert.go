package core

// convert.go casts raw cell values to the canonical representation of a
// semantic data type.
//
// Raw values come from CSV text, JSON bodies, or earlier operations, so the
// caster has to accept the usual mess:
//   - Currency symbols, thousands separators and percent signs in numbers
//   - Several boolean spellings (yes/no, true/false, 1/0)
//   - Many date layouts (ISO, US, named months)
//   - Native Go numbers, bools and times
//
// CastValue reports a *CastError for input it cannot represent; Cast folds
// that into nil so a bad cell becomes missing data instead of failing the
// whole operation.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a plain numeric literal after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// dateLayouts are tried in order when casting text to a date. Four-digit
// years only; two-digit years are too ambiguous to guess.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "01.02.2006",
	"2006.01.02",
	"Jan 2, 2006", "January 2, 2006", "2 Jan 2006",
}

// CastError reports that a value could not be represented in a data type.
type CastError struct {
	Value  any
	Target DataType
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cannot cast %v (%T) to %s", e.Value, e.Value, e.Target)
}

// Cast converts raw to the canonical representation of t. Values that cannot
// be converted become nil.
func Cast(raw any, t DataType) any {
	v, err := CastValue(raw, t)
	if err != nil {
		return nil
	}
	return v
}

// CastValue converts raw to the canonical representation of t.
// nil always casts to nil without error.
func CastValue(raw any, t DataType) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch t {
	case TypeNumber:
		if f, ok := ToNumber(raw); ok {
			return f, nil
		}
	case TypeBoolean:
		if b, ok := ToBool(raw); ok {
			return b, nil
		}
		if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
			return nil, nil
		}
	case TypeDate:
		if d, ok := ToDate(raw); ok {
			return d, nil
		}
	case TypeText:
		return ToText(raw), nil
	}
	return nil, &CastError{Value: raw, Target: t}
}

// ToNumber converts a value to a finite float64.
// Strings have "$", "," and "%" removed before parsing.
func ToNumber(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.NewReplacer("$", "", ",", "", "%", "").Replace(v)
		s = strings.TrimSpace(s)
		if !numericRegex.MatchString(s) {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToBool converts a value to a bool.
//
// Recognized spellings are true/1/yes and false/0/no (case-insensitive).
// Any other non-empty string counts as true: only an explicit falsy spelling
// yields false. Empty strings are not convertible.
func ToBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		switch s {
		case "":
			return false, false
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return true, true
		}
	}
	if f, ok := ToNumber(raw); ok {
		return f != 0, true
	}
	return false, false
}

// ToDate converts a value to a canonical RFC 3339 UTC timestamp string.
func ToDate(raw any) (string, bool) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return formatDate(v), true
	case string:
		t, ok := parseDate(v)
		if !ok {
			return "", false
		}
		return formatDate(t), true
	}
	return "", false
}

// parseDate tries each known layout against a trimmed string.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ToText converts a value to its string form. Numbers use the shortest
// representation that round-trips.
func ToText(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return formatDate(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// CleanCell removes common CSV artifacts from a cell value:
//   - Trims whitespace
//   - Removes Excel formula prefix (="...")
//   - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
