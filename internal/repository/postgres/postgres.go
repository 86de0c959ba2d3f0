// Package postgres implements the repository interfaces using PostgreSQL as
// the networked storage backend, via the pgx connection pool.
//
// GENERATED IDS:
// This backend retrieves generated surrogate keys with INSERT .. RETURNING —
// pgx has no LastInsertId, and RETURNING is the native Postgres idiom anyway.
// The sqlite backend uses the driver's last-insert-id accessor instead; each
// backend owns its own binding ($n here, ? there) and there is no shared or
// rewritten query text.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgxpool.Pool and provides the repository methods.
type DB struct {
	pool *pgxpool.Pool
}

// Open parses the database URL, establishes a connection pool, and ensures
// the schema exists.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}

	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: creating schema: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. The error return only exists to satisfy
// repository.Store — pgxpool.Close never fails.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// ensureSchema creates the users and items tables if absent. Idempotent;
// users before items because of the foreign key. No migration framework.
func (db *DB) ensureSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id             BIGSERIAL PRIMARY KEY,
			oauth_provider TEXT NOT NULL,
			oauth_id       TEXT NOT NULL,
			email          TEXT NOT NULL,
			full_name      TEXT NOT NULL,
			avatar_url     TEXT,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(oauth_provider, oauth_id)
		)`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location    TEXT NOT NULL,
			image_path  TEXT,
			user_id     BIGINT NOT NULL REFERENCES users(id),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("creating items table: %w", err)
	}

	// One statement per Exec — pgx's extended protocol rejects batches.
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_items_user_id ON items(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at)`,
	} {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating items indexes: %w", err)
		}
	}

	return nil
}
