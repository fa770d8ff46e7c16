package weather

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/provider"
)

// Provider is a source of current weather observations.
type Provider interface {
	CurrentWeather(ctx context.Context, city string) (*Observation, error)
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	City     string
	Logger   zerolog.Logger
}

// Service keeps the last observation fetched for one city.
type Service struct {
	provider Provider
	city     string
	logger   zerolog.Logger
	current  provider.Latest[Observation]
}

// NewService creates a Service for cfg.City. cfg.Provider must not be nil.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		city:     cfg.City,
		logger: cfg.Logger.With().
			Str("component", "weather").
			Str("provider", cfg.Provider.Name()).
			Str("city", cfg.City).
			Logger(),
	}
}

// City returns the city the service fetches for.
func (s *Service) City() string {
	return s.city
}

// ProviderName returns the name of the configured provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Fetch asks the provider once. A failure is wrapped in
// ErrProviderUnavailable and leaves the held observation in place.
func (s *Service) Fetch(ctx context.Context) error {
	obs, err := s.provider.CurrentWeather(ctx, s.city)
	if err != nil {
		s.logger.Warn().Err(err).Msg("weather fetch failed")
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	s.current.Store(*obs)

	s.logger.Debug().
		Float64("temperature", obs.Temperature).
		Float64("humidity", obs.Humidity).
		Str("condition", string(obs.Condition)).
		Msg("weather updated")
	return nil
}

// Current returns a copy of the held observation, or ErrNoObservation
// before the first successful fetch.
func (s *Service) Current() (*Observation, error) {
	obs, ok := s.current.Load()
	if !ok {
		return nil, ErrNoObservation
	}
	return &obs, nil
}
