// Package session keeps the tracker state of one page load.
package session

import (
	"errors"
	"time"

	"github.com/carbontrack/carbontrack/internal/footprint"
)

// ErrSessionNotFound is returned for unknown and expired sessions alike.
var ErrSessionNotFound = errors.New("session not found")

// DefaultTTL is how long a session lives after it is started.
const DefaultTTL = 2 * time.Hour

// Session is the tracker state for one page load.
type Session struct {
	ID        string
	Activity  footprint.Activity
	Reduction footprint.Reduction
	Footprint footprint.State
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
