package router

import (
	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	handler := gin.WrapF(r.Container.Health.HTTPHandler())

	// Both paths for compatibility with probes that do not know the /api prefix
	r.Engine.GET("/health", handler)
	r.Engine.GET("/api/health", handler)
}
