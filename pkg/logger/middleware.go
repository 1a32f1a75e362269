package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKey is the gin context key holding the request-scoped logger
const ContextKey = "logger"

// Middleware returns a Gin middleware function that logs requests
func Middleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		reqLogger := logger.WithRequestID(requestID)
		c.Set(ContextKey, reqLogger)
		c.Set("requestID", requestID)

		start := time.Now()
		c.Next()

		reqLogger.LogRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))

		for _, err := range c.Errors {
			reqLogger.LogError(err.Err, "request error",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error_type", err.Type,
			)
		}
	}
}

// FromContext returns the request-scoped logger, or the global one when the
// middleware has not run.
func FromContext(c *gin.Context) *Logger {
	if v, ok := c.Get(ContextKey); ok {
		if l, ok := v.(*Logger); ok {
			return l
		}
	}
	return GetGlobal()
}
