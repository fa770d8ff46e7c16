package resilience

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the breaker rejects a call without sending it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StatusError is a 5xx answer from a provider, or any status >= 400 when
// recorded in the registry.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "provider returned " + http.StatusText(e.StatusCode)
}

// ClientConfig configures a Client. Zero durations take the defaults shown
// by DefaultClientConfig.
type ClientConfig struct {
	Name string

	// Timeout bounds each attempt.
	Timeout time.Duration

	// MaxRetries counts extra attempts after a network error or 5xx. Zero
	// sends the request once.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker defaults to DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry, when set, receives the client and the outcome of every call.
	Registry *Registry

	Logger zerolog.Logger
}

// DefaultClientConfig returns a configuration with three retries.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cb,
		Logger:          zerolog.Nop(),
	}
}

// SingleAttemptConfig returns a configuration that never retries. A
// non-positive timeout keeps the default.
func SingleAttemptConfig(name string, timeout time.Duration) ClientConfig {
	cfg := DefaultClientConfig(name)
	cfg.MaxRetries = 0
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg
}

// Client sends provider requests through a circuit breaker, retrying
// transient failures with exponential backoff.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	registry *Registry
	logger   zerolog.Logger

	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewClient creates a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	defaults := DefaultClientConfig(cfg.Name)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}
	cb := *defaults.CircuitBreaker
	if cfg.CircuitBreaker != nil {
		cb = *cfg.CircuitBreaker
	}

	logger := cfg.Logger.With().Str("provider", cfg.Name).Logger()
	if cb.OnStateChange == nil {
		cb.OnStateChange = func(_ string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		}
	}

	c := &Client{
		name:            cfg.Name,
		http:            &http.Client{Timeout: cfg.Timeout},
		breaker:         NewCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type parameter
		registry:        cfg.Registry,
		logger:          logger,
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
	}
	if c.registry != nil {
		c.registry.Register(c.name, c)
	}
	return c
}

func (c *Client) Name() string {
	return c.name
}

// Do sends req. A 4xx comes back as is. A 5xx that survives every retry also
// comes back without an error so the caller can read the status.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.execute(req)
	c.report(resp, err)
	return resp, err
}

func (c *Client) execute(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var last *http.Response

	attempt := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			return c.send(req.Clone(ctx))
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if resp != nil {
			discard(last)
			last = resp
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxInterval = c.maxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)

	err := backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("wait", wait).Msg("retrying provider call")
	})

	var statusErr *StatusError
	switch {
	case err == nil:
		return last, nil
	case last != nil && errors.As(err, &statusErr):
		return last, nil
	default:
		discard(last)
		return nil, err
	}
}

// send performs one attempt. A 5xx counts as a breaker failure but the
// response is kept.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, RedactURL(err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) report(resp *http.Response, err error) {
	if c.registry == nil {
		return
	}
	switch {
	case err != nil:
		c.registry.RecordFailure(c.name, err)
	case resp.StatusCode >= http.StatusBadRequest:
		c.registry.RecordFailure(c.name, &StatusError{StatusCode: resp.StatusCode})
	default:
		c.registry.RecordSuccess(c.name)
	}
}

func discard(resp *http.Response) {
	if resp == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
