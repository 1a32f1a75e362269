package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// FromError converts a standard error to an AppError
// If the error is already an AppError (or wraps one), it is returned as-is
// Otherwise, it is wrapped as an internal server error
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewInternalServerError(
		CodeInternal,
		fmt.Sprintf("An unexpected error occurred: %s", err.Error()),
	).WithCause(err)
}

// GetStatusCode extracts the HTTP status code from an AppError, returns 500 if not an AppError
func GetStatusCode(err error) int {
	if appErr := FromError(err); appErr != nil {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetErrorCode extracts the error code from an AppError, returns "UNKNOWN_ERROR" if not an AppError
func GetErrorCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorDetails extracts the details from an AppError, returns nil if not an AppError
func GetErrorDetails(err error) any {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
