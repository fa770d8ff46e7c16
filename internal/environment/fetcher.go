// Package environment runs the weather and air quality fetches for the
// tracked city and exposes whatever has arrived.
package environment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/carbontrack/carbontrack/internal/airquality"
	"github.com/carbontrack/carbontrack/internal/weather"
)

const tracerName = "github.com/carbontrack/carbontrack/internal/environment"

// Fetch operations, used for metrics and span names.
const (
	OperationWeather    = "current_weather"
	OperationAirQuality = "aqi_feed"
)

// MetricsRecorder records the outcome of a provider call.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// Snapshot is the environment data held at a point in time. A nil field means
// that fetch has not succeeded.
type Snapshot struct {
	City       string
	Weather    *weather.Observation
	AirQuality *airquality.AQSnapshot
}

// RefreshResult holds the outcome of each fetch in a refresh.
type RefreshResult struct {
	WeatherErr    error
	AirQualityErr error
}

// Err joins the individual fetch errors.
func (r RefreshResult) Err() error {
	return errors.Join(r.WeatherErr, r.AirQualityErr)
}

// FetcherConfig holds configuration for the fetcher.
type FetcherConfig struct {
	City       string
	Weather    *weather.Service
	AirQuality *airquality.Service
	Metrics    MetricsRecorder
	Logger     zerolog.Logger
}

// Fetcher coordinates the two environment fetches. Either service may be nil
// when its provider is not configured.
type Fetcher struct {
	city       string
	weather    *weather.Service
	airQuality *airquality.Service
	metrics    MetricsRecorder
	logger     zerolog.Logger

	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewFetcher creates a new fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	return &Fetcher{
		city:       cfg.City,
		weather:    cfg.Weather,
		airQuality: cfg.AirQuality,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("component", "environment").Logger(),
	}
}

// Start launches the weather and air quality fetches in two independent
// goroutines and returns without waiting. Only the first call has any effect.
func (f *Fetcher) Start(ctx context.Context) {
	f.startOnce.Do(func() {
		f.logger.Info().Str("city", f.city).Msg("starting environment fetch")

		if f.weather != nil {
			f.wg.Add(1)
			go func() {
				defer f.wg.Done()
				_ = f.fetchWeather(ctx)
			}()
		}
		if f.airQuality != nil {
			f.wg.Add(1)
			go func() {
				defer f.wg.Done()
				_ = f.fetchAirQuality(ctx)
			}()
		}
	})
}

// Wait blocks until fetches launched by Start have finished.
func (f *Fetcher) Wait() {
	f.wg.Wait()
}

// Refresh runs both fetches again and waits for them. Each fetch writes only
// its own section, so one failing leaves the other untouched.
func (f *Fetcher) Refresh(ctx context.Context) RefreshResult {
	var (
		result RefreshResult
		wg     sync.WaitGroup
	)

	if f.weather != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.WeatherErr = f.fetchWeather(ctx)
		}()
	} else {
		result.WeatherErr = weather.ErrProviderUnavailable
	}

	if f.airQuality != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.AirQualityErr = f.fetchAirQuality(ctx)
		}()
	} else {
		result.AirQualityErr = airquality.ErrProviderUnavailable
	}

	wg.Wait()
	return result
}

// Snapshot returns the currently held data.
func (f *Fetcher) Snapshot() Snapshot {
	snap := Snapshot{City: f.city}

	if f.weather != nil {
		if obs, err := f.weather.Current(); err == nil {
			snap.Weather = obs
		}
	}
	if f.airQuality != nil {
		if aq, err := f.airQuality.Snapshot(); err == nil {
			snap.AirQuality = aq
		}
	}
	return snap
}

func (f *Fetcher) fetchWeather(ctx context.Context) error {
	return f.traced(ctx, f.weather.ProviderName(), OperationWeather, f.weather.Fetch)
}

func (f *Fetcher) fetchAirQuality(ctx context.Context) error {
	return f.traced(ctx, f.airQuality.ProviderName(), OperationAirQuality, f.airQuality.Fetch)
}

func (f *Fetcher) traced(ctx context.Context, provider, operation string, fetch func(context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "environment."+operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("provider.name", provider),
		attribute.String("city", f.city),
	)

	start := time.Now()
	err := fetch(ctx)
	if f.metrics != nil {
		f.metrics.RecordRequest(provider, operation, time.Since(start), err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
