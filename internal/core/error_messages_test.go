package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"blank column name", &ValidationError{Field: "newColumnName", Message: "new column name is required"}, "OP001"},
		{"formula", &FormulaCompileError{Formula: "((", Err: errors.New("boom")}, "OP002"},
		{"unknown source", &ValidationError{Field: "sourceColumns", Value: "x", Message: "column not found"}, "OP003"},
		{"source count", &ValidationError{Field: "sourceColumns", Message: "Add needs at least 2 source columns, got 1"}, "OP004"},
		{"unknown kind", &ValidationError{Field: "operation", Value: "Pow", Message: "unknown operation kind"}, "OP005"},
		{"format", &ValidationError{Field: "qty", Message: "format Percentage requires a Number column, column is Text"}, "OP006"},
		{"wrapped validation", fmt.Errorf("operation 2 (x): %w", &ValidationError{Field: "operation"}), "OP005"},
		{"file too large", fmt.Errorf("read a.csv: %w", ErrFileTooLarge), "FILE001"},
		{"invalid csv", errors.New("invalid csv: record on line 3: wrong number of fields"), "FILE002"},
		{"empty file", ErrEmptyFile, "FILE003"},
		{"no file", ErrNoFile, "FILE004"},
		{"too many rows", fmt.Errorf("%w: limit is 10", ErrTooManyRows), "FILE005"},
		{"dataset not found", fmt.Errorf("%w: abc", ErrDatasetNotFound), "DS001"},
		{"column not found", fmt.Errorf("%w: amt", ErrColumnNotFound), "DS002"},
		{"too many datasets", ErrTooManyDatasets, "DS003"},
		{"persistence disabled", ErrPersistenceDisabled, "DB001"},
		{"table exists", fmt.Errorf("write sales: %w", ErrTableExists), "DB002"},
		{"driver duplicate table", errors.New(`ERROR: relation "sales" already exists (SQLSTATE 42P07)`), "DB002"},
		{"invalid table name", errors.New(`invalid table name: use only letters, numbers, and underscores: "---"`), "DB005"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), "DB003"},
		{"deadline", context.DeadlineExceeded, "DB004"},
		{"busy", ErrTooManyUploads, "UPL001"},
		{"cancelled", fmt.Errorf("read: %w", context.Canceled), "UPL002"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapErrorValidationKeepsDetail(t *testing.T) {
	err := &ValidationError{Field: "sourceColumns", Value: "price", Message: "column not found"}
	msg := MapError(err)
	if !strings.Contains(msg.Message, "sourceColumns") {
		t.Errorf("Message = %q, want the field name", msg.Message)
	}
}

func TestMapErrorMultiError(t *testing.T) {
	var merr *multierror.Error
	merr = multierror.Append(merr, fmt.Errorf("operation 1: %w", &ValidationError{Field: "operation"}))
	merr = multierror.Append(merr, fmt.Errorf("operation 2: %w", &ValidationError{Field: "sourceColumns"}))

	if got := MapError(merr).Code; got != "OP005" {
		t.Errorf("Code = %q, want the first problem's code OP005", got)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrEmptyFile)
	want := "The uploaded file is empty (Code: FILE003). Upload a file with a header row and data rows"
	if got != want {
		t.Errorf("FormatUserError = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("nil should not be user facing")
	}
	if !IsUserFacing(ErrDatasetNotFound) {
		t.Error("ErrDatasetNotFound should be user facing")
	}
	if IsUserFacing(errors.New("segfault in the flux capacitor")) {
		t.Error("unknown errors should not be user facing")
	}
}
