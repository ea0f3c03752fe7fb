// Package errors provides structured error types for gradlab.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the session API and the core
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the failure taxonomy of an edit session:
//   - UPLOAD_FAILED, FETCH_FAILED, RECONSTRUCTION_FAILED: service boundaries
//   - LAYOUT_NOT_READY: pointer mapping before the display was measured
//   - UNSUPPORTED_TOOL: a brush tool with no defined mutation
//   - INVALID_*, SESSION_*, RECONSTRUCT_IN_FLIGHT: local state and input errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "radius %d out of range", r)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFetchFailed, origErr, "fetch gradients for %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Service boundary failures
	ErrCodeUploadFailed         Code = "UPLOAD_FAILED"
	ErrCodeFetchFailed          Code = "FETCH_FAILED"
	ErrCodeReconstructionFailed Code = "RECONSTRUCTION_FAILED"

	// Editing failures
	ErrCodeLayoutNotReady  Code = "LAYOUT_NOT_READY"
	ErrCodeUnsupportedTool Code = "UNSUPPORTED_TOOL"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidImageID Code = "INVALID_IMAGE_ID"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Session state errors
	ErrCodeInvalidState        Code = "INVALID_STATE"
	ErrCodeSessionBusy         Code = "SESSION_BUSY"
	ErrCodeReconstructInFlight Code = "RECONSTRUCT_IN_FLIGHT"
	ErrCodeSessionNotFound     Code = "SESSION_NOT_FOUND"

	// Resource and network errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// Is reports whether err has the given error code.
// It walks the whole chain, so a FETCH_FAILED wrapping a NETWORK_ERROR
// matches both codes.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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

// ServiceError is an error reported by the lab service in its JSON error body.
type ServiceError struct {
	Status  int    // HTTP status code
	Code    string // Service error code (e.g. "IMAGE_NOT_FOUND")
	Message string
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("service error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("service error %s (status %d): %s", e.Code, e.Status, e.Message)
}
