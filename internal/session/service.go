package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/footprint"
)

// ServiceConfig holds configuration for the session service.
type ServiceConfig struct {
	Repository Repository
	Tokens     *TokenService
	TTL        time.Duration
	Logger     zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service runs tracker and ledger operations against stored sessions.
type Service struct {
	repo   Repository
	tokens *TokenService
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new session service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:   cfg.Repository,
		tokens: cfg.Tokens,
		ttl:    cfg.TTL,
		logger: cfg.Logger.With().Str("component", "session").Logger(),
		now:    cfg.Now,
	}
}

// Tokens returns the token service used to sign session tokens.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Start creates a zero-valued session and a token for it.
func (s *Service) Start(ctx context.Context) (*Session, string, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	token, err := s.tokens.Issue(sess.ID, now, sess.ExpiresAt)
	if err != nil {
		return nil, "", err
	}

	s.logger.Debug().Str("session_id", sess.ID).Msg("session started")
	return sess, token, nil
}

// Get retrieves a live session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.repo.Get(ctx, id)
}

// ToggleFlag flips an activity flag.
func (s *Service) ToggleFlag(ctx context.Context, id string, flag footprint.Flag) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		activity, err := sess.Activity.ToggleFlag(flag)
		if err != nil {
			return err
		}
		sess.Activity = activity
		return nil
	})
}

// SetQuantity stores the raw value of an activity quantity.
func (s *Service) SetQuantity(ctx context.Context, id string, q footprint.Quantity, raw string) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		activity, err := sess.Activity.SetQuantity(q, raw)
		if err != nil {
			return err
		}
		sess.Activity = activity
		return nil
	})
}

// Calculate recomputes the footprint from the session's activity.
func (s *Service) Calculate(ctx context.Context, id string) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		sess.Footprint = footprint.Calculate(sess.Activity)
		return nil
	})
}

// SetTreeCount stores the tree count parsed from raw.
func (s *Service) SetTreeCount(ctx context.Context, id, raw string) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		sess.Reduction = sess.Reduction.SetTreeCount(raw)
		return nil
	})
}

// SetEarthHours stores the Earth Hour count parsed from raw.
func (s *Service) SetEarthHours(ctx context.Context, id, raw string) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		sess.Reduction = sess.Reduction.SetEarthHours(raw)
		return nil
	})
}

// ToggleLED flips the LED lighting flag.
func (s *Service) ToggleLED(ctx context.Context, id string) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		sess.Reduction = sess.Reduction.ToggleLED()
		return nil
	})
}

// ApplyReduction subtracts the session's reduction from its offset.
func (s *Service) ApplyReduction(ctx context.Context, id string) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		sess.Footprint = footprint.ApplyReduction(sess.Footprint, sess.Reduction)
		return nil
	})
}

// SubmitActivity reconciles a full activity form against the session: each
// flag that differs is toggled, both quantities are stored and the footprint
// is recalculated.
func (s *Service) SubmitActivity(ctx context.Context, id string, form footprint.Activity) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		activity := sess.Activity
		for _, f := range footprint.Flags {
			if activity.FlagValue(f) == form.FlagValue(f) {
				continue
			}
			var err error
			if activity, err = activity.ToggleFlag(f); err != nil {
				return err
			}
		}
		for _, q := range footprint.Quantities {
			var err error
			if activity, err = activity.SetQuantity(q, form.QuantityValue(q)); err != nil {
				return err
			}
		}
		sess.Activity = activity
		sess.Footprint = footprint.Calculate(activity)
		return nil
	})
}

// SubmitReduction reconciles a reduction form against the session and
// applies the reduction.
func (s *Service) SubmitReduction(ctx context.Context, id, trees, earthHours string, led bool) (*Session, error) {
	return s.modify(ctx, id, func(sess *Session) error {
		reduction := sess.Reduction.SetTreeCount(trees).SetEarthHours(earthHours)
		if reduction.LEDLights != led {
			reduction = reduction.ToggleLED()
		}
		sess.Reduction = reduction
		sess.Footprint = footprint.ApplyReduction(sess.Footprint, reduction)
		return nil
	})
}

// Sweep removes expired sessions.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Debug().Int64("removed", removed).Msg("expired sessions swept")
	}
	return removed, nil
}

// RunSweeper sweeps expired sessions every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("session sweep failed")
			}
		}
	}
}

func (s *Service) modify(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return s.repo.Modify(ctx, id, func(sess *Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		sess.UpdatedAt = s.now().UTC()
		return nil
	})
}
