package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS tracker_sessions (
		id             TEXT PRIMARY KEY,
		car            BOOLEAN NOT NULL DEFAULT FALSE,
		ac             BOOLEAN NOT NULL DEFAULT FALSE,
		bike           BOOLEAN NOT NULL DEFAULT FALSE,
		electricity    TEXT NOT NULL DEFAULT '',
		meat           TEXT NOT NULL DEFAULT '',
		trees          INTEGER NOT NULL DEFAULT 0,
		earth_hour     INTEGER NOT NULL DEFAULT 0,
		led_lights     BOOLEAN NOT NULL DEFAULT FALSE,
		total          DOUBLE PRECISION NOT NULL DEFAULT 0,
		footprint_offset DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL,
		expires_at     TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS tracker_sessions_expires_at_idx ON tracker_sessions (expires_at);
`

const selectColumns = `
	id, car, ac, bike, electricity, meat,
	trees, earth_hour, led_lights,
	total, footprint_offset,
	created_at, updated_at, expires_at
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the sessions table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create session schema: %w", err)
	}
	return nil
}

// Get retrieves a live session by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Session, error) {
	query := `SELECT ` + selectColumns + `
		FROM tracker_sessions
		WHERE id = $1 AND expires_at > now()
	`
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

// Create stores a new session.
func (r *PostgresRepository) Create(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO tracker_sessions (
			id, car, ac, bike, electricity, meat,
			trees, earth_hour, led_lights,
			total, footprint_offset,
			created_at, updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Activity.Car,
		s.Activity.AC,
		s.Activity.Bike,
		s.Activity.Electricity,
		s.Activity.Meat,
		s.Reduction.Trees,
		s.Reduction.EarthHour,
		s.Reduction.LEDLights,
		s.Footprint.Total,
		s.Footprint.Offset,
		s.CreatedAt,
		s.UpdatedAt,
		s.ExpiresAt,
	)
	return err
}

// Modify locks the session row for the duration of fn and writes the result
// back in the same transaction.
func (r *PostgresRepository) Modify(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	var result *Session

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + selectColumns + `
			FROM tracker_sessions
			WHERE id = $1 AND expires_at > now()
			FOR UPDATE
		`
		s, err := scanSession(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}

		if err := fn(s); err != nil {
			return err
		}

		update := `
			UPDATE tracker_sessions SET
				car = $2,
				ac = $3,
				bike = $4,
				electricity = $5,
				meat = $6,
				trees = $7,
				earth_hour = $8,
				led_lights = $9,
				total = $10,
				footprint_offset = $11,
				updated_at = $12
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, update,
			s.ID,
			s.Activity.Car,
			s.Activity.AC,
			s.Activity.Bike,
			s.Activity.Electricity,
			s.Activity.Meat,
			s.Reduction.Trees,
			s.Reduction.EarthHour,
			s.Reduction.LEDLights,
			s.Footprint.Total,
			s.Footprint.Offset,
			s.UpdatedAt,
		)
		if err != nil {
			return err
		}

		result = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a session by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tracker_sessions WHERE id = $1`, id)
	return err
}

// DeleteExpired removes sessions that expired before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM tracker_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session

	err := row.Scan(
		&s.ID,
		&s.Activity.Car,
		&s.Activity.AC,
		&s.Activity.Bike,
		&s.Activity.Electricity,
		&s.Activity.Meat,
		&s.Reduction.Trees,
		&s.Reduction.EarthHour,
		&s.Reduction.LEDLights,
		&s.Footprint.Total,
		&s.Footprint.Offset,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &s, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
