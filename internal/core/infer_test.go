package core

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name       string
		input      any
		wantType   DataType
		wantFormat DisplayFormat
	}{
		{"nil", nil, TypeText, FormatNone},
		{"empty", "", TypeText, FormatNone},
		{"whitespace", "   ", TypeText, FormatNone},
		{"native bool", true, TypeBoolean, FormatNone},
		{"native int", 7, TypeNumber, FormatNone},
		{"native float", 2.5, TypeNumber, FormatNone},
		{"NaN", math.NaN(), TypeText, FormatNone},
		{"plain integer", "1200", TypeNumber, FormatNone},
		{"plain decimal", " -3.25 ", TypeNumber, FormatNone},
		{"scientific", "6.02e23", TypeNumber, FormatNone},
		{"percent", "12.5%", TypeNumber, FormatPercentage},
		{"percent with space", "40 %", TypeNumber, FormatPercentage},
		{"negative percent", "-3%", TypeNumber, FormatPercentage},
		{"currency grouped", "$1,200.50", TypeNumber, FormatCurrencyUSD},
		{"currency zero", "$0.00", TypeNumber, FormatCurrencyUSD},
		{"currency no symbol", "1,200", TypeNumber, FormatCurrencyUSD},
		{"currency ungrouped", "$1200", TypeNumber, FormatCurrencyUSD},
		{"currency bad fraction", "$1.5", TypeText, FormatNone},
		{"currency bad grouping", "$12,00", TypeText, FormatNone},
		{"true", "TRUE", TypeBoolean, FormatNone},
		{"no", "no", TypeBoolean, FormatNone},
		{"one is a number", "1", TypeNumber, FormatNone},
		{"iso date", "2024-01-15", TypeDate, FormatNone},
		{"slash date", "2024/01/15", TypeDate, FormatNone},
		{"date time", "2024-01-15T10:30:00Z", TypeDate, FormatNone},
		{"date time space", "2024-01-15 10:30", TypeDate, FormatNone},
		{"invalid calendar date", "2024-13-01", TypeText, FormatNone},
		{"US date stays text", "1/15/2024", TypeText, FormatNone},
		{"time value", time.Now(), TypeDate, FormatNone},
		{"word", "maybe", TypeText, FormatNone},
		{"struct", struct{}{}, TypeText, FormatNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotFormat := Infer(tt.input)
			if gotType != tt.wantType || gotFormat != tt.wantFormat {
				t.Errorf("Infer(%#v) = (%s, %s), want (%s, %s)",
					tt.input, gotType, gotFormat, tt.wantType, tt.wantFormat)
			}
		})
	}
}

func TestInferDeterministic(t *testing.T) {
	inputs := []any{"$1,200.50", "12%", "2024-01-15", "yes", "x", nil, 3}
	for _, in := range inputs {
		t1, f1 := Infer(in)
		for i := 0; i < 5; i++ {
			t2, f2 := Infer(in)
			if t1 != t2 || f1 != f2 {
				t.Fatalf("Infer(%#v) not deterministic", in)
			}
		}
		if !t1.Valid() || !f1.Valid() {
			t.Errorf("Infer(%#v) = (%q, %q), want valid values", in, t1, f1)
		}
	}
}

func TestInferColumns(t *testing.T) {
	first := map[string]any{"amt": "$1,200.50", "name": "Ada", "active": "yes", "when": "2024-01-15"}

	got := InferColumns([]string{"name", "amt", "active", "when", "amt"}, first)
	want := []Column{
		{Name: "name", DataType: TypeText, Format: FormatNone},
		{Name: "amt", DataType: TypeNumber, Format: FormatCurrencyUSD},
		{Name: "active", DataType: TypeBoolean, Format: FormatNone},
		{Name: "when", DataType: TypeDate, Format: FormatNone},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InferColumns = %+v, want %+v", got, want)
	}

	// Without fields the keys are used in sorted order.
	got = InferColumns(nil, first)
	names := make([]string, len(got))
	for i, c := range got {
		names[i] = c.Name
	}
	if !reflect.DeepEqual(names, []string{"active", "amt", "name", "when"}) {
		t.Errorf("InferColumns(nil) names = %v", names)
	}
}
