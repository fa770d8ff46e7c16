// Package waqi implements airquality.Provider on the World Air Quality Index
// city feed.
package waqi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carbontrack/carbontrack/internal/airquality"
	"github.com/carbontrack/carbontrack/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the WAQI API.
	DefaultBaseURL = "https://api.waqi.info"

	// ProviderName identifies this provider.
	ProviderName = "waqi"
)

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// Token is sent as the token query parameter (required).
	Token string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient defaults to a single-attempt resilient client.
	HTTPClient HTTPDoer
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a WAQI API client.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new WAQI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.SingleAttemptConfig(ProviderName, 10*time.Second))
	}

	return &Client{
		token:      cfg.Token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI  json.RawMessage `json:"aqi"`
	IAQI json.RawMessage `json:"iaqi"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Time struct {
		ISO string `json:"iso"`
	} `json:"time"`
}

// FetchSnapshot retrieves the current feed for a city.
func (c *Client) FetchSnapshot(ctx context.Context, city string) (*airquality.AQSnapshot, error) {
	endpoint := fmt.Sprintf("%s/feed/%s/?token=%s", c.baseURL, url.PathEscape(city), url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", resilience.RedactURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from feed endpoint", resp.StatusCode)
	}

	var result feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	if result.Status != "ok" {
		var message string
		_ = json.Unmarshal(result.Data, &message)
		return nil, fmt.Errorf("%w: status %q: %s", airquality.ErrMalformedResponse, result.Status, message)
	}

	var data feedData
	if err := json.Unmarshal(result.Data, &data); err != nil {
		return nil, fmt.Errorf("decode feed data: %w", err)
	}

	readings, err := parseIAQI(data.IAQI)
	if err != nil {
		return nil, err
	}

	snapshot := &airquality.AQSnapshot{
		City:        city,
		StationName: data.City.Name,
		AQI:         parseAQI(data.AQI),
		Readings:    readings,
		FetchedAt:   time.Now(),
		Provider:    ProviderName,
	}
	if ts, err := time.Parse(time.RFC3339, data.Time.ISO); err == nil {
		snapshot.ObservedAt = ts
	}

	return snapshot, nil
}

// parseIAQI decodes the pollutant object token by token so readings keep the
// key order of the response body.
func parseIAQI(raw json.RawMessage) ([]airquality.Reading, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing iaqi", airquality.ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode iaqi: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: iaqi is not an object", airquality.ErrMalformedResponse)
	}

	var readings []airquality.Reading
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode iaqi key: %w", err)
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode iaqi %s: %w", key, err)
		}

		readings = append(readings, airquality.Reading{
			Pollutant: key,
			Value:     parseValue(value),
		})
	}

	return readings, nil
}

// parseValue extracts v from a {"v": n} entry; anything else has no value.
func parseValue(raw json.RawMessage) *float64 {
	var entry struct {
		V *float64 `json:"v"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil
	}
	return entry.V
}

// parseAQI reads the composite index, which WAQI reports as "-" when unknown.
func parseAQI(raw json.RawMessage) *float64 {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
