package router

import (
	"net/http"
	"slices"
	"strings"

	"portfolio-messageboard/backend/internal/api"
	"portfolio-messageboard/backend/pkg/config"
	"portfolio-messageboard/backend/pkg/di"
	"portfolio-messageboard/backend/pkg/errors"
	"portfolio-messageboard/backend/pkg/logger"
	"portfolio-messageboard/backend/pkg/metrics"
	"portfolio-messageboard/backend/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config

	schema *validator.OpenAPIValidator
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := container.Config
	if cfg == nil {
		cfg = config.Get()
	}

	// Stack traces are only rendered in debug mode
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger first so every later middleware sees the request-scoped logger
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	apiGroup := r.Engine.Group("/api")

	if r.Config.API.ValidateRequests {
		r.AddOpenAPIValidation(apiGroup, r.Config.API.SchemaPath)
	}

	messageController := api.NewMessageController(r.Container.MessageService)
	messageController.RegisterRoutes(apiGroup, r.Container.RateLimiter.Middleware())

	r.setupHealthRoutes()

	metricsPath := r.Config.Observability.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Engine.GET(metricsPath, gin.WrapH(metrics.Handler()))

	r.Engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Error(errors.NewNotFoundError("API endpoint not found"))
			return
		}
		c.Status(http.StatusNotFound)
	})
}

// corsMiddleware echoes allowed origins. A "*" entry allows any origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAny := len(allowed) == 0 || slices.Contains(allowed, "*")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case origin == "":
		case allowAny:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(allowed, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Cache-Control, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ReloadSchema re-reads the OpenAPI document used for request validation.
// It is a no-op when validation is disabled.
func (r *Router) ReloadSchema() error {
	if r.schema == nil {
		return nil
	}
	if err := r.schema.ReloadSchema(); err != nil {
		return err
	}
	r.Logger.Info("OpenAPI schema reloaded", "schema", r.Config.API.SchemaPath)
	return nil
}
