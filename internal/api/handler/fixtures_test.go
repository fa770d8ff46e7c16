package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/carbontrack/carbontrack/internal/airquality"
	"github.com/carbontrack/carbontrack/internal/environment"
	"github.com/carbontrack/carbontrack/internal/session"
	"github.com/carbontrack/carbontrack/internal/weather"
)

var errProviderDown = errors.New("provider down")

type stubWeather struct {
	err error
}

func (p *stubWeather) Name() string { return "openweathermap" }

func (p *stubWeather) CurrentWeather(_ context.Context, city string) (*weather.Observation, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &weather.Observation{
		City:        city,
		Temperature: 31.4,
		Humidity:    70,
		Condition:   weather.ConditionAtmosphere,
		Description: "haze",
		FetchedAt:   time.Now(),
	}, nil
}

type stubAirQuality struct {
	err error
}

func (p *stubAirQuality) Name() string { return "waqi" }

func (p *stubAirQuality) FetchSnapshot(_ context.Context, city string) (*airquality.AQSnapshot, error) {
	if p.err != nil {
		return nil, p.err
	}
	pm25, no2 := 68.0, 4.6
	return &airquality.AQSnapshot{
		City:        city,
		StationName: "Alandur Bus Depot, Chennai",
		AQI:         &pm25,
		Readings: []airquality.Reading{
			{Pollutant: "pm25", Value: &pm25},
			{Pollutant: "no2", Value: &no2},
			{Pollutant: "w", Value: nil},
		},
		FetchedAt: time.Now(),
	}, nil
}

func newSessionService() *session.Service {
	return session.NewService(session.ServiceConfig{
		Repository: session.NewInMemoryRepository(),
		Tokens:     session.NewTokenService(session.TokenConfig{SigningKey: "test-signing-key-with-enough-bytes"}),
		TTL:        time.Hour,
		Logger:     zerolog.Nop(),
	})
}

// newFetcher builds a fetcher over stub providers. A nil provider leaves
// that section unconfigured.
func newFetcher(wp *stubWeather, ap *stubAirQuality) *environment.Fetcher {
	cfg := environment.FetcherConfig{City: "Chennai", Logger: zerolog.Nop()}
	if wp != nil {
		cfg.Weather = weather.NewService(weather.ServiceConfig{Provider: wp, City: "Chennai", Logger: zerolog.Nop()})
	}
	if ap != nil {
		cfg.AirQuality = airquality.NewService(airquality.ServiceConfig{Provider: ap, City: "Chennai", Logger: zerolog.Nop()})
	}
	return environment.NewFetcher(cfg)
}

// startedFetcher returns a fetcher whose startup fetches have completed.
func startedFetcher(wp *stubWeather, ap *stubAirQuality) *environment.Fetcher {
	f := newFetcher(wp, ap)
	f.Start(context.Background())
	f.Wait()
	return f
}

func do(t *testing.T, h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NotZero(t, rec.Code)
	return rec
}
