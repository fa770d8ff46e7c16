// Package resilience guards outbound provider calls with a timeout, a
// circuit breaker and retries, and records per-provider health for the ops
// status endpoint.
package resilience

import (
	"cmp"
	"time"

	"github.com/sony/gobreaker/v2"
)

// The default breaker opens when at least tripMinRequests calls were seen in
// the current window and tripFailureRatio of them failed.
const (
	tripMinRequests  = 5
	tripFailureRatio = 0.5
)

// CircuitBreakerConfig mirrors gobreaker.Settings with provider defaults.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests bounds trial calls while half-open. Zero means 1.
	MaxRequests uint32

	// Interval resets the counts while closed. Zero never resets.
	Interval time.Duration

	// Timeout is the open period before the breaker goes half-open.
	Timeout time.Duration

	// ReadyToTrip defaults to DefaultReadyToTrip.
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return counts.Requests >= tripMinRequests &&
		float64(counts.TotalFailures) >= tripFailureRatio*float64(counts.Requests)
}

func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cmp.Or(cfg.MaxRequests, 1),
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		OnStateChange: cfg.OnStateChange,
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = DefaultReadyToTrip
	}
	return gobreaker.NewCircuitBreaker[T](settings)
}
