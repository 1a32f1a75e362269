package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-messageboard/backend/pkg/config"
	"portfolio-messageboard/backend/pkg/di"
	"portfolio-messageboard/backend/pkg/logger"
	"portfolio-messageboard/backend/pkg/metrics"
	"portfolio-messageboard/backend/pkg/router"
	"portfolio-messageboard/backend/shared/observability"

	"github.com/joho/godotenv"
)

const serviceName = "messageboard"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.GetGlobal().Info("No .env file found")
	}

	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application",
		"version", os.Getenv("APP_VERSION"),
		"env", cfg.Server.Env,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var shutdowns []observability.ShutdownFunc
	if cfg.Observability.TracingEnabled {
		shutdownTracing, err := observability.SetupTracing(serviceName, os.Stdout)
		if err != nil {
			log.LogError(err, "Failed to initialize tracing")
			os.Exit(1)
		}
		shutdowns = append(shutdowns, shutdownTracing)
	}
	shutdownMetrics, err := observability.SetupMetrics(serviceName, metrics.Registry)
	if err != nil {
		log.LogError(err, "Failed to initialize metrics")
		os.Exit(1)
	}
	shutdowns = append(shutdowns, shutdownMetrics)

	// Initialize dependency injection container
	container, err := di.New(ctx, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	container.Health.Start(ctx)
	container.RateLimiter.StartCleanup(ctx, 10*time.Minute)

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// SIGHUP reloads the OpenAPI schema without a restart
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
				if err := r.ReloadSchema(); err != nil {
					log.LogError(err, "Failed to reload OpenAPI schema")
				}
			}
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	if err := container.Close(); err != nil {
		log.LogError(err, "Failed to close message backends")
	}
	for _, shutdown := range shutdowns {
		if err := shutdown(shutdownCtx); err != nil {
			log.LogError(err, "Failed to flush telemetry")
		}
	}

	log.Info("Server exited gracefully")
}
