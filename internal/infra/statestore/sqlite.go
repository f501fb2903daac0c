package statestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/port"

	_ "modernc.org/sqlite"
)

var _ port.OnboardingStateStore = (*SQLite)(nil)

// SQLite stores wizard keys in a local database file, keyed by (owner, key).
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping checks the database.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS onboarding_kv (
			owner TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (owner, key)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// Load returns the stored state, or a fresh one.
func (s *SQLite) Load(ctx context.Context, user string) (*domain.OnboardingState, error) {
	keys := Keys(user)
	args := make([]any, 0, len(keys)+1)
	args = append(args, user)
	for _, k := range keys {
		args = append(args, k)
	}
	query := fmt.Sprintf(`SELECT key, value FROM onboarding_kv WHERE owner = ? AND key IN (?%s)`, strings.Repeat(",?", len(keys)-1))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load onboarding state: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string, len(keys))
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
func (s *SQLite) Save(ctx context.Context, user string, state *domain.OnboardingState) error {
	kv, err := encode(user, state)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for k, v := range kv {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO onboarding_kv (owner, key, value, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(owner, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			user, k, v)
		if err != nil {
			return fmt.Errorf("save onboarding state: %w", err)
		}
	}
	return tx.Commit()
}

// Delete forgets user.
func (s *SQLite) Delete(ctx context.Context, user string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM onboarding_kv WHERE owner = ?`, user); err != nil {
		return fmt.Errorf("delete onboarding state: %w", err)
	}
	return nil
}
