// Package storage implements the SQLite-backed incident store.
//
// The store is embedded per process (modernc.org/sqlite, pure Go).
// All methods take a context and return wrapped errors; a missing
// row is ErrNotFound.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	id              TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	category        TEXT NOT NULL,
	description     TEXT NOT NULL,
	date_observed   TEXT NOT NULL DEFAULT '',
	level           INTEGER NOT NULL,
	status          TEXT NOT NULL,
	normalized_hash TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_incidents_user_status ON incidents (user_id, status);

CREATE TABLE IF NOT EXISTS contacts (
	user_id TEXT PRIMARY KEY,
	email   TEXT NOT NULL
);
`

// DB wraps the SQLite connection pool.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the SQLite database at path and applies
// the schema. Use ":memory:" for an ephemeral store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	// SQLite allows one writer; a single connection avoids
	// SQLITE_BUSY under concurrent triage requests.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	s := &DB{db: db, logger: logger}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}

	logger.Info("storage: opened", "path", path)
	return s, nil
}

// Ping verifies the connection is alive.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *DB) Close() error {
	return s.db.Close()
}
