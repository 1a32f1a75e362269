package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"portfolio-messageboard/backend/pkg/logger"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
	// StatusDegraded indicates a component is working but with reduced functionality
	StatusDegraded Status = "degraded"
)

// DefaultCheckTimeout bounds a single check
const DefaultCheckTimeout = 5 * time.Second

// Component represents a system component that can be health-checked
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Critical    bool      `json:"critical"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check represents a health check function
type Check func(ctx context.Context) (Status, string, error)

// Pinger is anything that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker manages health checks for the system
type Checker struct {
	checks      map[string]Check
	components  map[string]*Component
	checkPeriod time.Duration
	mutex       sync.RWMutex
	log         *logger.Logger
}

// NewChecker creates a new health checker
func NewChecker(log *logger.Logger, checkPeriod time.Duration) *Checker {
	if log == nil {
		log = logger.Nop()
	}
	checker := &Checker{
		checks:      make(map[string]Check),
		components:  make(map[string]*Component),
		checkPeriod: checkPeriod,
		log:         log.WithComponent("health"),
	}

	checker.RegisterCheck("self", false, func(context.Context) (Status, string, error) {
		return StatusUp, "Health checker is running", nil
	})

	return checker
}

// RegisterCheck registers a new health check. A critical component that is
// down makes the whole system unhealthy.
func (c *Checker) RegisterCheck(name string, critical bool, check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checks[name] = check
	c.components[name] = &Component{
		Name:        name,
		Status:      StatusDown,
		Critical:    critical,
		Description: "Not checked yet",
	}
}

// RegisterPingCheck registers a check that succeeds when p.Ping succeeds
func (c *Checker) RegisterPingCheck(name string, critical bool, p Pinger) {
	c.RegisterCheck(name, critical, func(ctx context.Context) (Status, string, error) {
		start := time.Now()
		if err := p.Ping(ctx); err != nil {
			return StatusDown, "Ping failed", err
		}
		return StatusUp, "Responding (latency: " + time.Since(start).Round(time.Millisecond).String() + ")", nil
	})
}

// RunChecks executes all registered health checks
func (c *Checker) RunChecks(ctx context.Context) {
	c.mutex.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mutex.RUnlock()

	type result struct {
		status      Status
		description string
		err         error
	}
	results := make(map[string]result, len(checks))
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, DefaultCheckTimeout)
		status, description, err := check(checkCtx)
		cancel()
		results[name] = result{status, description, err}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for name, res := range results {
		component, ok := c.components[name]
		if !ok {
			continue
		}
		component.Status = res.status
		component.Description = res.description
		component.LastChecked = now

		if res.err != nil {
			component.Error = res.err.Error()
			c.log.Error("Health check failed",
				"component", name,
				"status", string(res.status),
				"error", res.err.Error(),
			)
		} else {
			component.Error = ""
			c.log.Debug("Health check completed",
				"component", name,
				"status", string(res.status),
			)
		}
	}
}

// Start runs the checks immediately and then periodically until ctx is done
func (c *Checker) Start(ctx context.Context) {
	go func() {
		c.RunChecks(ctx)

		period := c.checkPeriod
		if period <= 0 {
			period = 5 * time.Minute
		}
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RunChecks(ctx)
			}
		}
	}()
}

// GetStatus returns a copy of the current component states
func (c *Checker) GetStatus() map[string]*Component {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make(map[string]*Component, len(c.components))
	for k, v := range c.components {
		componentCopy := *v
		result[k] = &componentCopy
	}

	return result
}

// IsSystemHealthy returns true if all critical components are up
func (c *Checker) IsSystemHealthy() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, component := range c.components {
		if component.Critical && component.Status == StatusDown {
			return false
		}
	}

	return true
}

// HTTPHandler returns an HTTP handler for health checks
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := c.GetStatus()
		healthy := c.IsSystemHealthy()

		w.Header().Set("Content-Type", "application/json")

		status := "ok"
		if !healthy {
			status = "unavailable"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		response := map[string]interface{}{
			"success":    healthy,
			"status":     status,
			"timestamp":  time.Now(),
			"components": components,
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			c.log.Error("Failed to encode health check response", "error", err.Error())
		}
	}
}
