package statestore

import (
	"context"
	"fmt"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ port.OnboardingStateStore = (*Postgres)(nil)

// Postgres stores wizard keys in an onboarding_kv table keyed by (owner, key).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and runs migrations.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Postgres{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases database resources.
func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the connection.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS onboarding_kv (
			owner TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (owner, key)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// Load returns the stored state, or a fresh one.
func (s *Postgres) Load(ctx context.Context, user string) (*domain.OnboardingState, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM onboarding_kv WHERE owner = $1 AND key = ANY($2)`, user, Keys(user))
	if err != nil {
		return nil, fmt.Errorf("load onboarding state: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string, 4)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan onboarding state: %w", err)
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load onboarding state: %w", err)
	}
	return decode(user, kv)
}

// Save upserts every key of user in one transaction.
func (s *Postgres) Save(ctx context.Context, user string, state *domain.OnboardingState) error {
	kv, err := encode(user, state)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for k, v := range kv {
			batch.Queue(`
				INSERT INTO onboarding_kv (owner, key, value, updated_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();`,
				user, k, v)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save onboarding state: %w", err)
		}
		return nil
	})
}

// Delete forgets user.
func (s *Postgres) Delete(ctx context.Context, user string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM onboarding_kv WHERE owner = $1`, user); err != nil {
		return fmt.Errorf("delete onboarding state: %w", err)
	}
	return nil
}
