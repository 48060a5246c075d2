// Package db provides PostgreSQL storage for run history.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/luxury-studio/internal/types"
)

// DefaultListLimit bounds ListRuns when no limit is given.
const DefaultListLimit = 50

const schemaSQL = `
CREATE TABLE IF NOT EXISTS studio_runs (
	id          UUID PRIMARY KEY,
	file        TEXT NOT NULL,
	status      TEXT NOT NULL,
	score       INTEGER NOT NULL DEFAULT 0,
	retries     INTEGER NOT NULL DEFAULT 0,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS studio_runs_file_idx ON studio_runs (file);
CREATE INDEX IF NOT EXISTS studio_runs_created_at_idx ON studio_runs (created_at DESC);
`

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

// EnsureSchema creates the run history table if it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun upserts the result record of a finished run
func (db *DB) SaveRun(ctx context.Context, record *types.ResultRecord) error {
	id, err := uuid.Parse(record.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", record.RunID, err)
	}
	content, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal result record: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO studio_runs (id, file, status, score, retries, result)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET status = $3, score = $4, retries = $5, result = $6`,
		id, record.File, string(record.Status), record.Score(), record.Retries, content,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", record.RunID, err)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil, nil when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, file, status, score, retries, result, created_at
		 FROM studio_runs WHERE id = $1`,
		runID,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves recent runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return db.ListRunsFiltered(ctx, RunFilters{Limit: limit})
}

// ListRunsFiltered retrieves runs with optional filters
func (db *DB) ListRunsFiltered(ctx context.Context, filters RunFilters) ([]Run, error) {
	query, args := filters.query()
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// DeleteRun deletes a run
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM studio_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var content []byte
	if err := row.Scan(&run.ID, &run.File, &run.Status, &run.Score, &run.Retries, &content, &run.CreatedAt); err != nil {
		return nil, err
	}
	if len(content) > 0 {
		var record types.ResultRecord
		if err := json.Unmarshal(content, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result record: %w", err)
		}
		run.Result = &record
	}
	return &run, nil
}
