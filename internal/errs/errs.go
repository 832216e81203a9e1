// Package errs defines the error taxonomy for the fund engine.
//
// Failures are returned as values carrying a stable classification code so
// callers can branch on the kind of failure without string matching, and the
// HTTP layer can map codes to status codes and response envelopes.
package errs

import (
	"errors"
	"fmt"
)

// Code is a stable error classification.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeTrading    Code = "TRADING_ERROR"
	CodeService    Code = "SERVICE_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Error is a classified error with optional structured details.
type Error struct {
	Code    Code           `json:"error_code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports code equality so errors.Is(err, errs.Validation("")) works
// across distinct instances of the same classification.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Validation builds a VALIDATION_ERROR.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Trading builds a TRADING_ERROR (ledger invariant rejections).
func Trading(format string, args ...any) *Error {
	return &Error{Code: CodeTrading, Message: fmt.Sprintf(format, args...)}
}

// Service builds a SERVICE_ERROR (mid-run operational failures).
func Service(format string, args ...any) *Error {
	return &Error{Code: CodeService, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NOT_FOUND error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error while preserving its message in the
// chain. A nil cause returns a nil error, so callers can wrap
// unconditionally.
func Wrap(code Code, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...) + ": " + cause.Error(),
		cause:   cause,
	}
}

// WithDetails attaches structured details and returns the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the classification of err, defaulting to INTERNAL_ERROR
// for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
