package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"portfolio-messageboard/backend/pkg/errors"
	"portfolio-messageboard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterOptions configures the rate limiter
type RateLimiterOptions struct {
	// Limit defines requests per second
	Limit rate.Limit
	// Burst defines maximum burst size allowed
	Burst int
	// ExpiryDuration defines how long to keep client state in memory
	ExpiryDuration time.Duration
	// KeyFunc extracts the limiting key from a request
	KeyFunc func(*gin.Context) string
}

// DefaultRateLimiterOptions allows one submission per second per client with a burst of 5
func DefaultRateLimiterOptions() RateLimiterOptions {
	return RateLimiterOptions{
		Limit:          1,
		Burst:          5,
		ExpiryDuration: time.Hour,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-client rate limiting middleware for Gin
type RateLimiter struct {
	mu      sync.Mutex
	options RateLimiterOptions
	clients map[string]*client
	logger  *logger.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(log *logger.Logger, options ...RateLimiterOptions) *RateLimiter {
	opts := DefaultRateLimiterOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.KeyFunc == nil {
		opts.KeyFunc = DefaultRateLimiterOptions().KeyFunc
	}
	if opts.ExpiryDuration <= 0 {
		opts.ExpiryDuration = time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}

	return &RateLimiter{
		options: opts,
		clients: make(map[string]*client),
		logger:  log.WithComponent("rate-limiter"),
	}
}

// Middleware returns a Gin middleware for rate limiting
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := r.options.KeyFunc(c)
		limiter := r.getLimiter(key)

		if !limiter.Allow() {
			r.logger.Warn("Rate limit exceeded",
				"client", key,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			c.Header("Retry-After", "1")
			c.Header("X-RateLimit-Limit", strconv.Itoa(r.options.Burst))
			c.Error(errors.NewTooManyRequestsError("Too many requests. Please try again later."))
			c.Abort()
			return
		}

		c.Next()
	}
}

// StartCleanup evicts idle clients every interval until ctx is done
func (r *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.cleanup(time.Now())
			}
		}
	}()
}

func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.clients[key]
	if !exists {
		limiter := rate.NewLimiter(r.options.Limit, r.options.Burst)
		r.clients[key] = &client{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (r *RateLimiter) cleanup(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range r.clients {
		if now.Sub(v.lastSeen) > r.options.ExpiryDuration {
			delete(r.clients, k)
		}
	}
}
