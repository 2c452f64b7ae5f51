// Package db provides PostgreSQL storage for run history.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// schemaStatements create the run history tables. Each is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS application_runs (
		id           UUID PRIMARY KEY,
		query        TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'running',
		scraped      INTEGER NOT NULL DEFAULT 0,
		matches      INTEGER NOT NULL DEFAULT 0,
		persisted    INTEGER NOT NULL DEFAULT 0,
		skipped      INTEGER NOT NULL DEFAULT 0,
		error        TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		run_id        UUID NOT NULL REFERENCES application_runs(id) ON DELETE CASCADE,
		job_url       TEXT NOT NULL,
		title         TEXT NOT NULL,
		score         INTEGER NOT NULL,
		cover_letter  TEXT NOT NULL,
		intro_message TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_run_id ON applications(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_job_url ON applications(job_url)`,
}

// EnsureSchema creates the run history tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
