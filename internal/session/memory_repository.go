package session

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It suits a single instance; multi-instance deployments use PostgresRepository.
type InMemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewInMemoryRepository creates a new in-memory session repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get retrieves a session by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.live(id)
	if err != nil {
		return nil, err
	}

	cpy := *s
	return &cpy, nil
}

// Create stores a new session.
func (r *InMemoryRepository) Create(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *s
	r.sessions[s.ID] = &cpy
	return nil
}

// Modify applies fn to a copy of the session and stores it if fn succeeds.
func (r *InMemoryRepository) Modify(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.live(id)
	if err != nil {
		return nil, err
	}

	cpy := *s
	if err := fn(&cpy); err != nil {
		return nil, err
	}

	stored := cpy
	r.sessions[id] = &stored
	return &cpy, nil
}

// Delete removes a session by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// DeleteExpired removes sessions that expired before now.
func (r *InMemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *InMemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// live must be called with r.mu held.
func (r *InMemoryRepository) live(id string) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok || s.Expired(r.now()) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
