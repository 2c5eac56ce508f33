package store

import (
	"fmt"
	"net/http"
)

// Error is a cache error with an HTTP status code for the read API.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is treats two Errors with the same code and message as equal, so copies
// produced by WithCause still match their sentinel under errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}

	// ErrStaleDigest signals that a continuation lost the race against a
	// concurrent write to the same feed. Expected and recoverable: the
	// losing page is dropped, the winning write already superseded it.
	ErrStaleDigest = &Error{
		Code:    http.StatusConflict,
		Message: "stale continuation digest",
	}

	// ErrInvariant signals a row-count mismatch on an operation that must
	// affect exactly one row. Indicates a logic bug, not a runtime race;
	// always reported to the diagnostics sink before being returned.
	ErrInvariant = &Error{
		Code:    http.StatusInternalServerError,
		Message: "cache invariant violated",
	}
)
