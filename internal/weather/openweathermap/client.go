// Package openweathermap implements weather.Provider on the OpenWeatherMap
// current weather API.
package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carbontrack/carbontrack/internal/provider/resilience"
	"github.com/carbontrack/carbontrack/internal/weather"
)

const (
	ProviderName   = "openweathermap"
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// DefaultUnits requests Celsius temperatures.
	DefaultUnits = "metric"
)

// HTTPDoer is satisfied by *http.Client and *resilience.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a Client. Only APIKey is required.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Units      string
	HTTPClient HTTPDoer
}

// Client calls GET {base}/weather?q={city}&appid={key}&units={units}.
type Client struct {
	endpoint url.URL
	query    url.Values
	http     HTTPDoer
}

// APIError is a non-200 answer from OpenWeatherMap. Message comes from the
// JSON error body when there is one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openweathermap: status %d", e.Status)
	}
	return fmt.Sprintf("openweathermap: status %d: %s", e.Status, e.Message)
}

// NewClient creates a client. An unparsable BaseURL surfaces as an error on
// the first request.
func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	units := cfg.Units
	if units == "" {
		units = DefaultUnits
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = resilience.NewClient(resilience.SingleAttemptConfig(ProviderName, 10*time.Second))
	}

	c := &Client{
		query: url.Values{"appid": {cfg.APIKey}, "units": {units}},
		http:  doer,
	}
	if u, err := url.Parse(strings.TrimSuffix(base, "/") + "/weather"); err == nil {
		c.endpoint = *u
	}
	return c
}

func (c *Client) Name() string {
	return ProviderName
}

// CurrentWeather fetches the current weather for a city by name.
func (c *Client) CurrentWeather(ctx context.Context, city string) (*weather.Observation, error) {
	if c.endpoint.Host == "" {
		return nil, errors.New("openweathermap: invalid base URL")
	}

	u := c.endpoint
	q := url.Values{"q": {city}}
	for k, v := range c.query {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", resilience.RedactURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Message = e.Message
		}
		return nil, apiErr
	}

	var payload currentWeather
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", weather.ErrMalformedResponse, err)
	}
	return payload.observation(city, time.Now())
}

type currentWeather struct {
	Weather []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
}

func (p *currentWeather) observation(city string, now time.Time) (*weather.Observation, error) {
	switch {
	case p.Main == nil:
		return nil, fmt.Errorf("%w: no main block", weather.ErrMalformedResponse)
	case p.Main.Temp == nil:
		return nil, fmt.Errorf("%w: no main.temp", weather.ErrMalformedResponse)
	case p.Main.Humidity == nil:
		return nil, fmt.Errorf("%w: no main.humidity", weather.ErrMalformedResponse)
	case len(p.Weather) == 0:
		return nil, fmt.Errorf("%w: no weather entries", weather.ErrMalformedResponse)
	}

	obs := &weather.Observation{
		City:        city,
		Temperature: *p.Main.Temp,
		Humidity:    *p.Main.Humidity,
		Condition:   weather.ConditionForCode(p.Weather[0].ID),
		Description: p.Weather[0].Description,
		FetchedAt:   now,
	}
	if p.Name != "" {
		obs.City = p.Name
	}
	if p.Dt > 0 {
		obs.ObservedAt = time.Unix(p.Dt, 0)
	}
	return obs, nil
}
