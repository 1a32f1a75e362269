package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"portfolio-messageboard/backend/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrCircuitOpen is returned without calling the guarded function while the breaker is open
var ErrCircuitOpen = errors.New("circuit open")

// State represents the current state of a circuit breaker
type State string

const (
	// StateClosed lets every call through
	StateClosed State = "closed"
	// StateOpen short-circuits every call until RetryTimeout elapses
	StateOpen State = "open"
	// StateHalfOpen lets a limited number of probe calls through
	StateHalfOpen State = "half-open"
)

// Config holds configuration for a circuit breaker
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}
}

// CircuitBreaker stops hammering a dependency that keeps failing
type CircuitBreaker struct {
	name             string
	failureThreshold uint
	successThreshold uint
	retryTimeout     time.Duration
	log              *logger.Logger
	now              func() time.Time
	transitions      metric.Int64Counter

	mutex           sync.Mutex
	state           State
	failureCount    uint
	successCount    uint
	nextAttemptTime time.Time

	totalRequests    uint64
	totalFailures    uint64
	openCircuitCount uint64
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config Config, log *logger.Logger) *CircuitBreaker {
	if log == nil {
		log = logger.Nop()
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	transitions, err := otel.Meter("portfolio-messageboard/resilience").Int64Counter(
		"circuit_breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions by breaker and target state."),
	)
	if err != nil {
		log.Warn("Failed to create circuit breaker transition counter", "error", err.Error())
	}
	return &CircuitBreaker{
		name:             config.Name,
		state:            StateClosed,
		failureThreshold: config.FailureThreshold,
		successThreshold: config.SuccessThreshold,
		retryTimeout:     config.RetryTimeout,
		log:              log,
		now:              time.Now,
		transitions:      transitions,
	}
}

// Execute runs fn through the circuit breaker.
// Errors for which countable returns false (e.g. a 404) pass through without tripping the breaker.
func (cb *CircuitBreaker) Execute(fn func() error, countable func(error) bool) error {
	if !cb.allowRequest() {
		cb.log.Warn("Circuit breaker preventing request", "name", cb.name)
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && (countable == nil || countable(err)) {
		cb.recordFailure()
		cb.log.Warn("Circuit breaker recorded failure", "name", cb.name, "error", err.Error())
		return err
	}

	cb.recordSuccess()
	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().After(cb.nextAttemptTime) {
			cb.toHalfOpen()
			return true
		}
		return false
	case StateHalfOpen:
		return cb.successCount < cb.successThreshold
	}
	return false
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.toClosed()
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalFailures++

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.toOpen()
		}
	case StateHalfOpen:
		cb.toOpen()
	}
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.openCircuitCount++
	cb.nextAttemptTime = cb.now().Add(cb.retryTimeout)
	cb.recordTransition()

	cb.log.Info("Circuit breaker opened",
		"name", cb.name,
		"failures", cb.failureCount,
		"nextAttempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0
	cb.recordTransition()

	cb.log.Info("Circuit breaker half-open", "name", cb.name)
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.recordTransition()

	cb.log.Info("Circuit breaker closed", "name", cb.name)
}

func (cb *CircuitBreaker) recordTransition() {
	if cb.transitions == nil {
		return
	}
	cb.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", cb.name),
		attribute.String("state", string(cb.state)),
	))
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.state
}

// GetMetrics returns the current counters of the circuit breaker
func (cb *CircuitBreaker) GetMetrics() map[string]any {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return map[string]any{
		"name":               cb.name,
		"state":              string(cb.state),
		"total_requests":     cb.totalRequests,
		"total_failures":     cb.totalFailures,
		"open_circuit_count": cb.openCircuitCount,
	}
}
