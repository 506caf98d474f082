package core

import (
	"fmt"
	"strings"
)

// DataType is the semantic kind of value a column holds.
type DataType string

const (
	TypeText    DataType = "Text"
	TypeNumber  DataType = "Number"
	TypeBoolean DataType = "Boolean"
	TypeDate    DataType = "Date"
)

// Valid reports whether t is one of the four recognized data types.
func (t DataType) Valid() bool {
	switch t {
	case TypeText, TypeNumber, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// ParseDataType parses a data type name case-insensitively.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string":
		return TypeText, nil
	case "number", "numeric":
		return TypeNumber, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "date":
		return TypeDate, nil
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

// DisplayFormat is a presentation hint layered on top of Number columns.
type DisplayFormat string

const (
	FormatNone        DisplayFormat = "None"
	FormatCurrencyUSD DisplayFormat = "Currency (USD)"
	FormatPercentage  DisplayFormat = "Percentage"
)

// Valid reports whether f is one of the recognized display formats.
func (f DisplayFormat) Valid() bool {
	switch f {
	case FormatNone, FormatCurrencyUSD, FormatPercentage:
		return true
	}
	return false
}

// ParseDisplayFormat parses a display format. The empty string means None.
func ParseDisplayFormat(s string) (DisplayFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FormatNone, nil
	case "currency (usd)", "currency", "usd", "currencyusd":
		return FormatCurrencyUSD, nil
	case "percentage", "percent":
		return FormatPercentage, nil
	}
	return "", fmt.Errorf("unknown display format %q", s)
}

// FormatFor returns the format a column of type t may carry.
// Only Number columns keep a non-None format.
func FormatFor(t DataType, f DisplayFormat) DisplayFormat {
	if t != TypeNumber || !f.Valid() {
		return FormatNone
	}
	return f
}

// Column is one entry in a dataset's column catalog.
type Column struct {
	Name     string        `json:"name"`
	DataType DataType      `json:"dataType"`
	Format   DisplayFormat `json:"format"`
}

// Row maps column names to values. Once committed by an operation a value is
// canonical: nil, float64, bool, or string (Date columns hold RFC 3339 text).
type Row map[string]any

// clone returns a shallow copy of the row.
func (r Row) clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RawRows is the ingestion boundary: already-parsed records plus the field
// order they were read in. Fields may be empty, in which case the keys of the
// first record are used in sorted order.
type RawRows struct {
	Fields  []string
	Records []map[string]any
}

// OperationKind identifies how a derived column is computed.
type OperationKind string

const (
	OpAdd      OperationKind = "Add"
	OpSubtract OperationKind = "Subtract"
	OpMultiply OperationKind = "Multiply"
	OpDivide   OperationKind = "Divide"
	OpCombine  OperationKind = "Combine"
	OpNegate   OperationKind = "Negate"
	OpAbsolute OperationKind = "Absolute"
	OpCustom   OperationKind = "Custom"
)

// ParseOperationKind parses an operation name case-insensitively.
// "Concatenate" is accepted as an alias of Combine.
func ParseOperationKind(s string) (OperationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add":
		return OpAdd, nil
	case "subtract":
		return OpSubtract, nil
	case "multiply":
		return OpMultiply, nil
	case "divide":
		return OpDivide, nil
	case "combine", "concatenate":
		return OpCombine, nil
	case "negate":
		return OpNegate, nil
	case "absolute":
		return OpAbsolute, nil
	case "custom":
		return OpCustom, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Operation describes one derived-column computation. It is built by the
// caller, consumed once by Execute, and never persisted.
type Operation struct {
	NewColumnName   string        `json:"newColumnName"`
	NewColumnFormat DisplayFormat `json:"newColumnFormat,omitempty"`
	Kind            OperationKind `json:"operation"`
	SourceColumns   []string      `json:"sourceColumns"`
	CustomFormula   string        `json:"customFormula,omitempty"`
}

// sources returns the non-blank source column names in order.
func (op Operation) sources() []string {
	out := make([]string, 0, len(op.SourceColumns))
	for _, name := range op.SourceColumns {
		if strings.TrimSpace(name) != "" {
			out = append(out, name)
		}
	}
	return out
}

// Export is the persistence boundary: everything a storage collaborator
// needs to write the dataset somewhere else.
type Export struct {
	TableNameCandidate string   `json:"tableNameCandidate"`
	Columns            []Column `json:"columns"`
	Rows               []Row    `json:"rows"`
}

// StorageType maps a semantic type to the relational column type used when
// a dataset is persisted.
func StorageType(t DataType) string {
	switch t {
	case TypeNumber:
		return "double precision"
	case TypeBoolean:
		return "boolean"
	default:
		return "text"
	}
}

// UnmarshalText lets DataType accept any spelling ParseDataType understands.
func (t *DataType) UnmarshalText(b []byte) error {
	v, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalText lets DisplayFormat accept any spelling ParseDisplayFormat understands.
func (f *DisplayFormat) UnmarshalText(b []byte) error {
	v, err := ParseDisplayFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// UnmarshalText lets OperationKind accept any spelling ParseOperationKind understands.
func (k *OperationKind) UnmarshalText(b []byte) error {
	v, err := ParseOperationKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
