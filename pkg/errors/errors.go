package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Error codes surfaced in the "error" field of failure envelopes
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeMissingCredential  = "MISSING_CREDENTIAL"
	CodeStorageIO          = "STORAGE_IO_ERROR"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Stack      string `json:"-"`
	cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// WithCause records the lower-level error this AppError was built from
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Stack:      string(debug.Stack()),
	}
}

// NewValidationError creates a 400 error carrying a per-field error map
func NewValidationError(fields map[string]string) *AppError {
	return NewError(http.StatusBadRequest, CodeValidation, "validation failed").WithDetails(fields)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(message string) *AppError {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

// NewBackendUnavailableError creates a 500 error for a failing remote backend
func NewBackendUnavailableError(message string) *AppError {
	return NewError(http.StatusInternalServerError, CodeBackendUnavailable, message)
}

// NewMissingCredentialError creates a 500 error for writes attempted without a token
func NewMissingCredentialError(message string) *AppError {
	return NewError(http.StatusInternalServerError, CodeMissingCredential, message)
}

// NewStorageIOError creates a 500 error for local storage failures
func NewStorageIOError(message string) *AppError {
	return NewError(http.StatusInternalServerError, CodeStorageIO, message)
}

// NewTooManyRequestsError creates a 429 error
func NewTooManyRequestsError(message string) *AppError {
	return NewError(http.StatusTooManyRequests, CodeRateLimited, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(code string, message string) *AppError {
	return NewError(http.StatusInternalServerError, code, message)
}

// Is checks if err is an AppError carrying the given code
func Is(err error, code string) bool {
	return GetErrorCode(err) == code
}
