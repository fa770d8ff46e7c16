package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/airquality"
	"github.com/carbontrack/carbontrack/internal/airquality/waqi"
	"github.com/carbontrack/carbontrack/internal/api/handler"
	"github.com/carbontrack/carbontrack/internal/config"
	"github.com/carbontrack/carbontrack/internal/database"
	"github.com/carbontrack/carbontrack/internal/environment"
	"github.com/carbontrack/carbontrack/internal/provider/resilience"
	"github.com/carbontrack/carbontrack/internal/session"
	"github.com/carbontrack/carbontrack/internal/weather"
	"github.com/carbontrack/carbontrack/internal/weather/openweathermap"
)

// newFetcher builds the environment fetcher. A provider without credentials
// is left out and its section stays empty.
func newFetcher(cfg config.Config, registry *resilience.Registry, metrics environment.MetricsRecorder, log zerolog.Logger) *environment.Fetcher {
	envCfg := cfg.Environment
	fetcherCfg := environment.FetcherConfig{
		City:    envCfg.City,
		Metrics: metrics,
		Logger:  log,
	}

	if envCfg.OpenWeatherMapAPIKey != "" {
		httpCfg := resilience.SingleAttemptConfig(openweathermap.ProviderName, envCfg.Timeout)
		httpCfg.Registry = registry
		httpCfg.Logger = log
		fetcherCfg.Weather = weather.NewService(weather.ServiceConfig{
			Provider: openweathermap.NewClient(openweathermap.ClientConfig{
				APIKey:     envCfg.OpenWeatherMapAPIKey,
				BaseURL:    envCfg.OpenWeatherMapBaseURL,
				HTTPClient: resilience.NewClient(httpCfg),
			}),
			City:   envCfg.City,
			Logger: log,
		})
	} else {
		log.Warn().Msg("no OpenWeatherMap key configured - weather disabled")
	}

	if envCfg.WAQIToken != "" {
		httpCfg := resilience.SingleAttemptConfig(waqi.ProviderName, envCfg.Timeout)
		httpCfg.Registry = registry
		httpCfg.Logger = log
		fetcherCfg.AirQuality = airquality.NewService(airquality.ServiceConfig{
			Provider: waqi.NewClient(waqi.ClientConfig{
				Token:      envCfg.WAQIToken,
				BaseURL:    envCfg.WAQIBaseURL,
				HTTPClient: resilience.NewClient(httpCfg),
			}),
			City:   envCfg.City,
			Logger: log,
		})
	} else {
		log.Warn().Msg("no WAQI token configured - air quality disabled")
	}

	return environment.NewFetcher(fetcherCfg)
}

// newSessionRepository opens the configured session store. The returned
// close function releases it.
func newSessionRepository(ctx context.Context, cfg config.Config, log zerolog.Logger) (session.Repository, []handler.Subsystem, func(), error) {
	if cfg.Session.Store != config.StorePostgres {
		return session.NewInMemoryRepository(), nil, func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}

	repo := session.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ensure session schema: %w", err)
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("database connected")

	subsystems := []handler.Subsystem{{Name: "session-store", Pinger: pool}}
	return repo, subsystems, pool.Close, nil
}

