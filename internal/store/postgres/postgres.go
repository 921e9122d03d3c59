package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/store"
)

// Ensure Store implements store.ProgressStore.
var _ store.ProgressStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS progress_records (
	progress_key TEXT PRIMARY KEY,
	state        TEXT NOT NULL,
	error        TEXT NULL,
	data         JSONB NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	terminal_at  TIMESTAMPTZ NULL
)`

// Store is a PostgreSQL-backed progress store for deployments that need
// records to survive process restarts.
type Store struct {
	pool      *pgxpool.Pool
	retention time.Duration
}

// New creates a PostgreSQL-backed store.
func New(pool *pgxpool.Pool, retention time.Duration) *Store {
	return &Store{pool: pool, retention: retention}
}

// EnsureSchema creates the progress table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Register(ctx context.Context, key domain.ProgressKey) error {
	query := `
		INSERT INTO progress_records (progress_key, state, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (progress_key) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, key, domain.StateStarted, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: register: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateKey
	}
	return nil
}

func (s *Store) Update(ctx context.Context, key domain.ProgressKey, patch domain.Patch) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	rec := domain.ProgressRecord{}
	row := tx.QueryRow(ctx,
		`SELECT state, error, data FROM progress_records WHERE progress_key = $1 FOR UPDATE`, key)
	if err := row.Scan(&rec.State, &rec.Error, &rec.Data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUnknownKey
		}
		return fmt.Errorf("postgres: read record: %w", err)
	}
	if rec.State.IsTerminal() {
		return domain.ErrAlreadyTerminal
	}

	updated, err := patch.Apply(rec)
	if err != nil {
		return err
	}

	var terminalAt *time.Time
	if updated.State.IsTerminal() {
		now := time.Now().UTC()
		terminalAt = &now
	}

	_, err = tx.Exec(ctx,
		`UPDATE progress_records SET state = $1, error = $2, data = $3, terminal_at = $4 WHERE progress_key = $5`,
		updated.State, updated.Error, updated.Data, terminalAt, key,
	)
	if err != nil {
		return fmt.Errorf("postgres: write record: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, key domain.ProgressKey) (*domain.ProgressRecord, error) {
	rec := &domain.ProgressRecord{}
	row := s.pool.QueryRow(ctx,
		`SELECT state, error, data FROM progress_records WHERE progress_key = $1`, key)
	if err := row.Scan(&rec.State, &rec.Error, &rec.Data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnknownKey
		}
		return nil, fmt.Errorf("postgres: get record: %w", err)
	}
	return rec, nil
}

// Sweep deletes terminal records past the retention TTL. Deployments run it
// from a cron or the server's janitor loop.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-s.retention)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM progress_records WHERE terminal_at IS NOT NULL AND terminal_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}
