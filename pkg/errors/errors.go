// Package errors provides structured error types for gridcore.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the network model and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The network model reports four families of failures:
//   - VALIDATION: a required value is missing or out of range for the
//     network's minimum validation level
//   - DUPLICATE_ID: an id or alias already exists in the index
//   - ILLEGAL_STATE: an operation is not allowed in the current state
//     (unknown variant, removing the last variant, merging multi-variant
//     networks, mutating a retired network)
//   - STRUCTURAL_INCONSISTENCY: the topology refers to something that does
//     not exist; the engine logs and excludes the element instead of failing
//
// # Usage
//
//	err := errors.New(errors.ErrCodeValidation, "load %q: p0 is invalid", id)
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    // lower the validation level or supply the value
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Network model errors
	ErrCodeValidation              Code = "VALIDATION"
	ErrCodeDuplicateID             Code = "DUPLICATE_ID"
	ErrCodeIllegalState            Code = "ILLEGAL_STATE"
	ErrCodeStructuralInconsistency Code = "STRUCTURAL_INCONSISTENCY"

	// Input errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Validation returns a VALIDATION error.
func Validation(format string, args ...any) *Error {
	return New(ErrCodeValidation, format, args...)
}

// DuplicateID returns a DUPLICATE_ID error naming the offending id.
func DuplicateID(id string) *Error {
	return New(ErrCodeDuplicateID, "object with id %q already exists", id)
}

// IllegalState returns an ILLEGAL_STATE error.
func IllegalState(format string, args ...any) *Error {
	return New(ErrCodeIllegalState, format, args...)
}

// NotFound returns a NOT_FOUND error.
func NotFound(format string, args ...any) *Error {
	return New(ErrCodeNotFound, format, args...)
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
