package core

import "testing"

func TestRender(t *testing.T) {
	currency := Column{Name: "amt", DataType: TypeNumber, Format: FormatCurrencyUSD}
	percent := Column{Name: "rate", DataType: TypeNumber, Format: FormatPercentage}
	number := Column{Name: "n", DataType: TypeNumber, Format: FormatNone}
	boolean := Column{Name: "b", DataType: TypeBoolean, Format: FormatNone}
	text := Column{Name: "t", DataType: TypeText, Format: FormatNone}
	date := Column{Name: "d", DataType: TypeDate, Format: FormatNone}

	tests := []struct {
		name  string
		value any
		col   Column
		want  string
	}{
		{"currency", 1200.5, currency, "$1,200.50"},
		{"currency large", 1234567.891, currency, "$1,234,567.89"},
		{"currency small", 5.0, currency, "$5.00"},
		{"currency negative", -5.0, currency, "-$5.00"},
		{"currency raw text", "$1,200.50", currency, "$1,200.50"},
		{"currency rounds to zero", -0.001, currency, "$0.00"},
		{"percent", 12.5, percent, "12.5%"},
		{"number", 0.1, number, "0.1"},
		{"number integer", 3.0, number, "3"},
		{"bool", true, boolean, "true"},
		{"text", "hello", text, "hello"},
		{"date", "2024-01-15", date, "2024-01-15T00:00:00Z"},
		{"nil", nil, number, ""},
		{"uncastable", "abc", number, ""},
		// A format on a non-Number column is ignored.
		{"format on text", "5", Column{Name: "x", DataType: TypeText, Format: FormatCurrencyUSD}, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.value, tt.col); got != tt.want {
				t.Errorf("Render(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestGroupThousands(t *testing.T) {
	tests := map[string]string{
		"0.00":       "0.00",
		"999":        "999",
		"1000":       "1,000",
		"123456.78":  "123,456.78",
		"1234567.00": "1,234,567.00",
	}
	for in, want := range tests {
		if got := groupThousands(in); got != want {
			t.Errorf("groupThousands(%q) = %q, want %q", in, got, want)
		}
	}
}
