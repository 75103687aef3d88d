package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeStructural  = "STRUCTURAL_ERROR"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeUnsupported = "UNSUPPORTED_ELEMENT"
	ErrCodeQuery       = "QUERY_ERROR"
	ErrCodeRender      = "RENDER_ERROR"
)

// Error is the structured error type for all conversion and validation failures.
// Error() returns Message verbatim so callers can feed it back to a model as-is.
type Error struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	ElementID string         `json:"element_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithElement attaches the offending element ID to the error.
func (e *Error) WithElement(id string) *Error {
	e.ElementID = id
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// IsCode reports whether err is (or wraps) an *Error carrying code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
