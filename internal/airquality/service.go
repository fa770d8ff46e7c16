package airquality

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/provider"
)

// Provider is a source of air quality snapshots.
type Provider interface {
	FetchSnapshot(ctx context.Context, city string) (*AQSnapshot, error)
	Name() string
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	Provider Provider
	City     string
	Logger   zerolog.Logger
}

// Service keeps the last snapshot fetched for one city.
type Service struct {
	provider Provider
	city     string
	logger   zerolog.Logger
	snapshot provider.Latest[AQSnapshot]
}

// NewService creates a Service for cfg.City. cfg.Provider must not be nil.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		city:     cfg.City,
		logger: cfg.Logger.With().
			Str("component", "airquality").
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
// ErrProviderUnavailable and leaves the held snapshot in place.
func (s *Service) Fetch(ctx context.Context) error {
	snap, err := s.provider.FetchSnapshot(ctx, s.city)
	if err != nil {
		s.logger.Warn().Err(err).Msg("air quality fetch failed")
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	snap.Readings = slices.Clone(snap.Readings)
	s.snapshot.Store(*snap)

	s.logger.Debug().Int("pollutants", len(snap.Readings)).Msg("air quality updated")
	return nil
}

// Snapshot returns a copy of the held snapshot, or ErrNoSnapshot before the
// first successful fetch.
func (s *Service) Snapshot() (*AQSnapshot, error) {
	snap, ok := s.snapshot.Load()
	if !ok {
		return nil, ErrNoSnapshot
	}
	snap.Readings = slices.Clone(snap.Readings)
	return &snap, nil
}
