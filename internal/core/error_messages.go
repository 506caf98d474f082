package core

// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with codes for
// support reference. Codes are grouped by category:
//
// # Operation Errors (OP001-OP099)
//
//	OP001 - Invalid operation: the descriptor is malformed (blank name, missing formula)
//	OP002 - Formula error: the custom formula does not compile
//	OP003 - Unknown column: a source column is not in the dataset
//	OP004 - Wrong column count: the operation needs a different number of sources
//	OP005 - Unknown operation: the operation kind is not recognized
//	OP006 - Invalid format: the display format is unknown or needs a Number column
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Empty file
//	FILE004 - No file provided
//	FILE005 - Too many rows
//
// # Dataset Errors (DS001-DS099)
//
//	DS001 - Dataset not found (expired or never created)
//	DS002 - Column not found
//	DS003 - Too many datasets open
//
// # Persistence Errors (DB001-DB099)
//
//	DB001 - Persistence disabled: no database configured
//	DB002 - Table exists: the target table name is taken
//	DB003 - Connection refused
//	DB004 - Timeout
//	DB005 - Invalid table name: nothing usable is left after sanitizing
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: too many uploads in progress
//	UPL002 - Request cancelled
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error; check application logs for the technical error
//
// # Matching
//
// Typed errors and sentinels are matched first with errors.As and errors.Is,
// so wrapped errors keep their code. Anything else falls back to
// case-insensitive substring patterns; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDatasetNotFound     = errors.New("dataset not found")
	ErrColumnNotFound      = errors.New("column not found")
	ErrTooManyDatasets     = errors.New("too many datasets open")
	ErrPersistenceDisabled = errors.New("persistence is not configured")
	ErrTableExists         = errors.New("table already exists")
	ErrNoFile              = errors.New("no file provided")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// sentinelMessages maps sentinel errors, matched with errors.Is.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrFileTooLarge, UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{ErrEmptyFile, UserMessage{"The uploaded file is empty", "Upload a file with a header row and data rows", "FILE003"}},
	{ErrNoFile, UserMessage{"No file was selected", "Select a CSV file to upload", "FILE004"}},
	{ErrTooManyRows, UserMessage{"The file has more rows than allowed", "Split the file into smaller chunks", "FILE005"}},
	{ErrDatasetNotFound, UserMessage{"Dataset not found", "The dataset may have expired. Upload the file again", "DS001"}},
	{ErrColumnNotFound, UserMessage{"Column not found", "Refresh the dataset and pick an existing column", "DS002"}},
	{ErrTooManyDatasets, UserMessage{"Too many datasets are open", "Close a dataset you no longer need and try again", "DS003"}},
	{ErrPersistenceDisabled, UserMessage{"Saving to a database is not enabled", "Export the dataset as a file instead", "DB001"}},
	{ErrTableExists, UserMessage{"A table with this name already exists", "Choose a different table name", "DB002"}},
	{ErrTooManyUploads, UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL001"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL002"}},
	{context.DeadlineExceeded, UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB004"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages
// for errors that carry no type, typically driver errors.
var errorPatterns = []errorPattern{
	{"invalid table name", UserMessage{"Table name is not valid", "Use only letters, numbers, and underscores", "DB005"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is delimited with consistent quoting", "FILE002"}},
	{"already exists", UserMessage{"A table with this name already exists", "Choose a different table name", "DB002"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB003"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB004"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Validation
// errors keep their own text as the message since it names the offending
// field.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var fe *FormulaCompileError
	if errors.As(err, &fe) {
		return UserMessage{Message: fe.Error(), Action: "Check the formula syntax and function names", Code: "OP002"}
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return validationMessage(err, ve)
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func validationMessage(err error, ve *ValidationError) UserMessage {
	msg := UserMessage{Message: err.Error(), Action: "Correct the operation and submit it again", Code: "OP001"}
	switch {
	case ve.Message == "column not found":
		msg.Action = "Pick source columns that exist in the dataset"
		msg.Code = "OP003"
	case ve.Field == "sourceColumns":
		msg.Action = "Adjust the number of source columns for this operation"
		msg.Code = "OP004"
	case ve.Field == "operation":
		msg.Action = "Choose one of the supported operations"
		msg.Code = "OP005"
	case ve.Field == "newColumnFormat" || ve.Field == "format" || strings.Contains(ve.Message, "requires a Number column"):
		msg.Action = "Use a display format that fits the column type"
		msg.Code = "OP006"
	}
	return msg
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
