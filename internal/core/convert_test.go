package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCastNumber(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"plain integer", "123", 123.0},
		{"negative decimal", "-45.5", -45.5},
		{"currency", "$1,200.50", 1200.5},
		{"percent", "12.5%", 12.5},
		{"padded", "  7 ", 7.0},
		{"scientific", "1e3", 1000.0},
		{"leading point", ".5", 0.5},
		{"native int", 42, 42.0},
		{"native float32", float32(1.5), 1.5},
		{"native uint8", uint8(3), 3.0},
		{"bool true", true, 1.0},
		{"bool false", false, 0.0},
		{"nil", nil, nil},
		{"empty", "", nil},
		{"letters", "abc", nil},
		{"mixed", "12abc", nil},
		{"NaN string", "NaN", nil},
		{"Inf string", "Inf", nil},
		{"NaN float", math.NaN(), nil},
		{"Inf float", math.Inf(1), nil},
		{"unsupported type", []int{1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cast(tt.input, TypeNumber); got != tt.want {
				t.Errorf("Cast(%v, Number) = %v (%T), want %v", tt.input, got, got, tt.want)
			}
		})
	}
}

func TestCastBoolean(t *testing.T) {
	tests := []struct {
		input any
		want  any
	}{
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"1", true},
		{"false", false},
		{" No ", false},
		{"0", false},
		// Anything that is not an explicit falsy spelling is true.
		{"maybe", true},
		{"n/a", true},
		{"", nil},
		{"   ", nil},
		{nil, nil},
		{true, true},
		{false, false},
		{2.5, true},
		{0, false},
	}

	for _, tt := range tests {
		if got := Cast(tt.input, TypeBoolean); got != tt.want {
			t.Errorf("Cast(%#v, Boolean) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCastDate(t *testing.T) {
	tests := []struct {
		input any
		want  any
	}{
		{"2024-01-15", "2024-01-15T00:00:00Z"},
		{"2024/01/15", "2024-01-15T00:00:00Z"},
		{"2024-01-15T10:30:00Z", "2024-01-15T10:30:00Z"},
		{"2024-01-15T10:30:00+02:00", "2024-01-15T08:30:00Z"},
		{"2024-01-15 10:30:00", "2024-01-15T10:30:00Z"},
		{"2024-01-15T10:30:00.25Z", "2024-01-15T10:30:00.25Z"},
		{"1/15/2024", "2024-01-15T00:00:00Z"},
		{"Jan 15, 2024", "2024-01-15T00:00:00Z"},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "2024-01-15T00:00:00Z"},
		{"2024-02-30", nil},
		{"not a date", nil},
		{"", nil},
		{nil, nil},
		{42, nil},
		{time.Time{}, nil},
	}

	for _, tt := range tests {
		if got := Cast(tt.input, TypeDate); got != tt.want {
			t.Errorf("Cast(%#v, Date) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCastText(t *testing.T) {
	tests := []struct {
		input any
		want  any
	}{
		{"hello", "hello"},
		{"", ""},
		{nil, nil},
		{1200.5, "1200.5"},
		{3.0, "3"},
		{true, "true"},
		{42, "42"},
		{time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), "2024-01-15T10:00:00Z"},
	}

	for _, tt := range tests {
		if got := Cast(tt.input, TypeText); got != tt.want {
			t.Errorf("Cast(%#v, Text) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestCastValueReportsFailure(t *testing.T) {
	_, err := CastValue("abc", TypeNumber)
	var castErr *CastError
	if !errors.As(err, &castErr) {
		t.Fatalf("CastValue error = %v, want *CastError", err)
	}
	if castErr.Target != TypeNumber || castErr.Value != "abc" {
		t.Errorf("CastError = %+v", castErr)
	}

	if v, err := CastValue(nil, TypeDate); v != nil || err != nil {
		t.Errorf("CastValue(nil) = %v, %v; want nil, nil", v, err)
	}
	if _, err := CastValue("x", DataType("Blob")); err == nil {
		t.Error("CastValue to unknown type succeeded")
	}
}

func TestCastIdempotent(t *testing.T) {
	inputs := []any{
		nil, "", "  ", "abc", "123", "$1,200.50", "12.5%", "-0.5", "1e3",
		"true", "no", "maybe", "2024-01-15", "2024/01/15 10:30", "Jan 2, 2006",
		3, 2.5, math.NaN(), true, false,
		time.Date(2024, 1, 15, 10, 0, 0, 0, time.FixedZone("x", 3600)),
	}
	types := []DataType{TypeText, TypeNumber, TypeBoolean, TypeDate}

	for _, typ := range types {
		for _, in := range inputs {
			once := Cast(in, typ)
			twice := Cast(once, typ)
			if once != twice {
				t.Errorf("Cast not idempotent for %#v as %s: %#v then %#v", in, typ, once, twice)
			}
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello", "hello"},
		{"  hello  ", "hello"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
