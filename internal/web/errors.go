package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with full technical detail server-side and returned
// to the client as the user-facing message from core.MapError. The status
// code is derived from the error itself, so handlers never pick one.

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"

	"github.com/JonMunkholm/easydata/internal/core"
	"github.com/JonMunkholm/easydata/internal/logging"
	"github.com/JonMunkholm/easydata/internal/persist"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// badRequest wraps a malformed body or parameter as a validation error so
// it maps to a 400 with the decoder's message.
func badRequest(field string, err error) error {
	return &core.ValidationError{Field: field, Message: err.Error()}
}

// statusFor maps an error onto its HTTP status code.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var parseErr *csv.ParseError
	switch {
	case core.IsValidationError(err),
		errors.As(err, &parseErr),
		errors.Is(err, persist.ErrInvalidTableName),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrTooManyRows):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrDatasetNotFound), errors.Is(err, core.ErrColumnNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTableExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyUploads), errors.Is(err, core.ErrTooManyDatasets):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrPersistenceDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		err = core.ErrFileTooLarge
	}
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	logFn := logger.Warn
	if status >= http.StatusInternalServerError {
		logFn = logger.Error
	}
	logFn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
