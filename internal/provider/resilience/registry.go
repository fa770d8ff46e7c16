package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Level grades a provider by its circuit state.
type Level int

const (
	LevelHealthy  Level = iota // closed
	LevelDegraded              // half-open, probing
	LevelDown                  // open, calls rejected
)

func (l Level) String() string {
	switch l {
	case LevelHealthy:
		return "healthy"
	case LevelDegraded:
		return "degraded"
	default:
		return "down"
	}
}

// ProviderHealth is a point-in-time view of one provider. Zero times mean the
// event has not happened yet.
type ProviderHealth struct {
	Name                string
	State               gobreaker.State
	ConsecutiveFailures uint32
	LastSuccess         time.Time
	LastFailure         time.Time
	LastError           string
}

// Level grades the provider by its circuit state.
func (h ProviderHealth) Level() Level {
	switch h.State {
	case gobreaker.StateClosed:
		return LevelHealthy
	case gobreaker.StateHalfOpen:
		return LevelDegraded
	default:
		return LevelDown
	}
}

// Registry tracks provider clients and the outcome of their last calls.
// Clients register themselves when built with ClientConfig.Registry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	client      *Client
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Register adds a provider client, replacing any client of the same name.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	r.entries[name] = &registryEntry{client: client}
	r.mu.Unlock()
}

// RecordSuccess stamps a successful call. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string) {
	r.update(name, func(e *registryEntry) {
		e.lastSuccess = time.Now()
	})
}

// RecordFailure stamps a failed call and keeps its message. Unknown names are
// ignored.
func (r *Registry) RecordFailure(name string, err error) {
	r.update(name, func(e *registryEntry) {
		e.lastFailure = time.Now()
		if err != nil {
			e.lastError = err.Error()
		}
	})
}

// Health returns one provider's health.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return e.snapshot(name), true
}

// Snapshot returns every provider's health ordered by name.
func (r *Registry) Snapshot() []ProviderHealth {
	r.mu.Lock()
	out := make([]ProviderHealth, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.snapshot(name))
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b ProviderHealth) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func (r *Registry) update(name string, fn func(*registryEntry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		fn(e)
	}
}

func (e *registryEntry) snapshot(name string) ProviderHealth {
	return ProviderHealth{
		Name:                name,
		State:               e.client.CircuitBreakerState(),
		ConsecutiveFailures: e.client.CircuitBreakerCounts().ConsecutiveFailures,
		LastSuccess:         e.lastSuccess,
		LastFailure:         e.lastFailure,
		LastError:           e.lastError,
	}
}
