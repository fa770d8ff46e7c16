package session

import (
	"context"
	"time"
)

// Repository defines the interface for session persistence.
type Repository interface {
	// Get retrieves a session by ID. Expired sessions are reported as
	// ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Create stores a new session.
	Create(ctx context.Context, s *Session) error

	// Modify loads a session, applies fn and stores the result. Concurrent
	// modifications of one session are serialized.
	Modify(ctx context.Context, id string, fn func(*Session) error) (*Session, error)

	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session that expired before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
