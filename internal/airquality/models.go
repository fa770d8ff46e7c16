// Package airquality provides the current per-pollutant air quality readings
// for the tracked city.
package airquality

import (
	"errors"
	"time"
)

// Provider errors.
var (
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrMalformedResponse   = errors.New("malformed air quality response")
	ErrNoSnapshot          = errors.New("no air quality snapshot yet")
)

// Reading is one pollutant entry. Value is nil when the provider listed the
// pollutant without a usable value.
type Reading struct {
	Pollutant string
	Value     *float64
}

// AQSnapshot is a point-in-time set of readings for a city. Readings keep the
// order the provider listed them in.
type AQSnapshot struct {
	City        string
	StationName string

	// AQI is the composite index, nil when the provider did not report one.
	AQI *float64

	Readings []Reading

	ObservedAt time.Time
	FetchedAt  time.Time
	Provider   string
}

// Reading returns the entry for a pollutant code.
func (s *AQSnapshot) Reading(pollutant string) (Reading, bool) {
	for _, r := range s.Readings {
		if r.Pollutant == pollutant {
			return r, true
		}
	}
	return Reading{}, false
}

// Pollutants returns the pollutant codes in provider order.
func (s *AQSnapshot) Pollutants() []string {
	codes := make([]string, 0, len(s.Readings))
	for _, r := range s.Readings {
		codes = append(codes, r.Pollutant)
	}
	return codes
}
