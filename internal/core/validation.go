package core

// validation.go checks operation descriptors before any row is touched.
//
// Validation happens at two levels:
//  1. Descriptor validation: name, kind, format and formula are well formed
//  2. Catalog validation: every source column exists and the count fits the kind
//
// A descriptor that fails either level is rejected as a whole; nothing in the
// dataset changes. Per-cell problems found later during evaluation are not
// validation errors, they degrade to null values.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/easydata/internal/core/formula"
)

// ValidationError reports a structural problem with an operation descriptor
// or column update.
type ValidationError struct {
	Field   string // Descriptor field or column name
	Value   string // The offending value
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid operation: %s: %s", e.Field, e.Message)
	}
	return "invalid operation: " + e.Message
}

// FormulaCompileError reports a Custom formula that does not compile.
type FormulaCompileError struct {
	Formula string
	Err     error
}

func (e *FormulaCompileError) Error() string {
	return fmt.Sprintf("formula %q does not compile: %v", e.Formula, e.Err)
}

func (e *FormulaCompileError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is, or wraps, a ValidationError or a
// FormulaCompileError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	var fe *FormulaCompileError
	return errors.As(err, &ve) || errors.As(err, &fe)
}

// plan is a validated operation ready to run against rows.
type plan struct {
	column  Column // name and requested format; type is resolved after evaluation
	kind    OperationKind
	sources []string
	expr    *formula.Expr
}

// sourceBounds gives the allowed source column count per kind.
// A max of -1 means unbounded.
func sourceBounds(kind OperationKind) (lo, hi int) {
	switch kind {
	case OpNegate, OpAbsolute:
		return 1, 1
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpCombine:
		return 2, -1
	default:
		return 0, -1
	}
}

// validateOperation checks op against the catalog and compiles its formula.
func validateOperation(op Operation, columns []Column) (*plan, error) {
	name := strings.TrimSpace(op.NewColumnName)
	if name == "" {
		return nil, &ValidationError{Field: "newColumnName", Message: "new column name is required"}
	}

	kind, err := ParseOperationKind(string(op.Kind))
	if err != nil {
		return nil, &ValidationError{Field: "operation", Value: string(op.Kind), Message: "unknown operation kind"}
	}

	format := op.NewColumnFormat
	if format == "" {
		format = FormatNone
	}
	if !format.Valid() {
		return nil, &ValidationError{Field: "newColumnFormat", Value: string(format), Message: "unknown display format"}
	}

	sources := op.sources()
	if kind != OpCustom && len(sources) == 0 {
		return nil, &ValidationError{Field: "sourceColumns", Message: "at least one source column is required"}
	}

	catalog := make(map[string]bool, len(columns))
	for _, c := range columns {
		catalog[c.Name] = true
	}
	for _, src := range sources {
		if !catalog[src] {
			return nil, &ValidationError{Field: "sourceColumns", Value: src, Message: "column not found"}
		}
	}

	lo, hi := sourceBounds(kind)
	switch {
	case hi == 1 && len(sources) != 1:
		return nil, &ValidationError{
			Field:   "sourceColumns",
			Message: fmt.Sprintf("%s takes exactly one source column, got %d", kind, len(sources)),
		}
	case len(sources) < lo:
		return nil, &ValidationError{
			Field:   "sourceColumns",
			Message: fmt.Sprintf("%s needs at least %d source columns, got %d", kind, lo, len(sources)),
		}
	}

	p := &plan{
		column:  Column{Name: name, Format: format},
		kind:    kind,
		sources: sources,
	}

	if kind == OpCustom {
		src := strings.TrimSpace(op.CustomFormula)
		if src == "" {
			return nil, &ValidationError{Field: "customFormula", Message: "formula is required for Custom operations"}
		}
		expr, err := formula.Compile(src)
		if err != nil {
			return nil, &FormulaCompileError{Formula: src, Err: err}
		}
		p.expr = expr
	}

	return p, nil
}
