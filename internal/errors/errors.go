// Package errors provides standardized domain errors with codes for the
// Seforim build and query pipelines.
//
// Usage:
//
//	// In the ingestion pipeline - return typed errors
//	if line.BookID == 0 {
//	    return errors.Integrity("line inserted under unknown book")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrSchema) {
//	    skipped++
//	    continue
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the build and query pipelines.
const (
	// CodeIO covers missing or unreadable upstream files, a locked
	// database file, or an unwritable index directory.
	CodeIO Code = "IO"

	// CodeSchema covers malformed upstream JSON or mismatched
	// depth/address arrays; the offending book is skipped and counted.
	CodeSchema Code = "SCHEMA"

	// CodeCitation covers CSV citations missing from the lookup maps;
	// the row is dropped and counted.
	CodeCitation Code = "CITATION"

	// CodeIntegrity covers inserts that would break a store invariant;
	// it aborts the enclosing transaction.
	CodeIntegrity Code = "INTEGRITY"

	// CodeQuery covers caller errors on the query surface.
	CodeQuery Code = "QUERY"

	// CodeCanceled marks work cut short by a closed session or context.
	CodeCanceled Code = "CANCELED"

	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "VALIDATION"
	CodeInternal   Code = "INTERNAL"
)

// Error is a domain error with a code, message, and optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrIO         = &Error{Code: CodeIO, Message: "io error"}
	ErrSchema     = &Error{Code: CodeSchema, Message: "malformed upstream schema"}
	ErrCitation   = &Error{Code: CodeCitation, Message: "unresolvable citation"}
	ErrIntegrity  = &Error{Code: CodeIntegrity, Message: "integrity violation"}
	ErrQuery      = &Error{Code: CodeQuery, Message: "invalid query"}
	ErrCanceled   = &Error{Code: CodeCanceled, Message: "canceled"}
	ErrNotFound   = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal   = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// IO creates an io error.
func IO(msg string) *Error {
	return &Error{Code: CodeIO, Message: msg}
}

// IOf creates an io error with a formatted message.
func IOf(format string, args ...any) *Error {
	return &Error{Code: CodeIO, Message: fmt.Sprintf(format, args...)}
}

// Schema creates a schema error.
func Schema(msg string) *Error {
	return &Error{Code: CodeSchema, Message: msg}
}

// Schemaf creates a schema error with a formatted message.
func Schemaf(format string, args ...any) *Error {
	return &Error{Code: CodeSchema, Message: fmt.Sprintf(format, args...)}
}

// Citation creates a citation resolution error.
func Citation(msg string) *Error {
	return &Error{Code: CodeCitation, Message: msg}
}

// Citationf creates a citation resolution error with a formatted message.
func Citationf(format string, args ...any) *Error {
	return &Error{Code: CodeCitation, Message: fmt.Sprintf(format, args...)}
}

// Integrity creates an integrity violation error.
func Integrity(msg string) *Error {
	return &Error{Code: CodeIntegrity, Message: msg}
}

// Integrityf creates an integrity violation error with a formatted message.
func Integrityf(format string, args ...any) *Error {
	return &Error{Code: CodeIntegrity, Message: fmt.Sprintf(format, args...)}
}

// Query creates a query error.
func Query(msg string) *Error {
	return &Error{Code: CodeQuery, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with a formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
