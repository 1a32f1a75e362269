package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"portfolio-messageboard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Envelope builds the failure body shared by every route:
// {success:false, message, error[, errors][, stack]}.
// Stack traces are only attached while gin runs in debug (development) mode.
func Envelope(appErr *AppError) gin.H {
	body := gin.H{
		"success": false,
		"message": appErr.Message,
		"error":   appErr.Code,
	}
	if appErr.Details != nil {
		body["errors"] = appErr.Details
	}
	if gin.IsDebugging() && appErr.Stack != "" {
		body["stack"] = appErr.Stack
	}
	return body
}

// ErrorHandler returns a middleware that catches and formats application errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := FromError(c.Errors.Last().Err)

		logger.FromContext(c).Error("Request error",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"status_code", appErr.StatusCode,
			"error_code", appErr.Code,
			"message", appErr.Message,
		)

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(appErr.StatusCode, Envelope(appErr))
	}
}

// RecoveryWithLogger returns a middleware that recovers from any panics
// and logs the error with the request ID if available
func RecoveryWithLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())

				logger.FromContext(c).Error("Panic recovered",
					"error", fmt.Sprintf("%v", r),
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				appErr := &AppError{
					StatusCode: http.StatusInternalServerError,
					Code:       "SERVER_ERROR",
					Message:    "The server encountered an unexpected error",
					Stack:      stack,
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope(appErr))
			}
		}()

		c.Next()
	}
}
