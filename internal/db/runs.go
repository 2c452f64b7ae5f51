package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/freelance-applier/internal/pipeline"
	"github.com/jonathan/freelance-applier/internal/types"
)

var (
	_ pipeline.Recorder       = (*DB)(nil)
	_ pipeline.AppliedChecker = (*DB)(nil)
)

// StartRun creates a run record in the running state
func (db *DB) StartRun(ctx context.Context, runID uuid.UUID, query string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO application_runs (id, query, status)
		 VALUES ($1, $2, $3)`,
		runID, query, types.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// RecordApplication stores the content persisted for one job
func (db *DB) RecordApplication(ctx context.Context, runID uuid.UUID, job types.ScoredJob, content types.GeneratedContent) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO applications (run_id, job_url, title, score, cover_letter, intro_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, job.SourceURL, job.Title, job.Score, content.CoverLetter, content.IntroMessage, content.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record application for %s: %w", job.SourceURL, err)
	}
	return nil
}

// CompleteRun stores the final counters and status of a run
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, summary types.RunSummary) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE application_runs
		 SET status = $1, scraped = $2, matches = $3, persisted = $4, skipped = $5,
		     error = $6, completed_at = $7
		 WHERE id = $8`,
		summary.Status, summary.Scraped, summary.Matches, summary.Persisted, summary.Skipped,
		nullableString(summary.Error), summary.CompletedAt, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to complete run: run %s not found", runID)
	}
	return nil
}

// GetRun retrieves a run by ID, or nil if it does not exist
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, query, status, scraped, matches, persisted, skipped, error, created_at, completed_at
		 FROM application_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Query, &run.Status, &run.Scraped, &run.Matches, &run.Persisted,
		&run.Skipped, &run.Error, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, query, status, scraped, matches, persisted, skipped, error, created_at, completed_at
		 FROM application_runs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Query, &run.Status, &run.Scraped, &run.Matches, &run.Persisted,
			&run.Skipped, &run.Error, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListApplications returns the applications of a run in persistence order
func (db *DB) ListApplications(ctx context.Context, runID uuid.UUID) ([]Application, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, job_url, title, score, cover_letter, intro_message, created_at
		 FROM applications
		 WHERE run_id = $1
		 ORDER BY created_at, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var a Application
		if err := rows.Scan(&a.ID, &a.RunID, &a.JobURL, &a.Title, &a.Score,
			&a.CoverLetter, &a.IntroMessage, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// HasApplied reports whether content was ever persisted for the job URL
func (db *DB) HasApplied(ctx context.Context, jobURL string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE job_url = $1)`,
		jobURL,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check application: %w", err)
	}
	return exists, nil
}
