// Package db provides PostgreSQL storage for the tracked job collection.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/job-tracker/internal/types"
)

// jobsLockKey is the advisory lock held while the collection is rewritten.
const jobsLockKey int64 = 0x6a6f6273 // "jobs"

const schema = `
CREATE TABLE IF NOT EXISTS tracked_jobs (
	id         BIGINT PRIMARY KEY,
	position   INTEGER NOT NULL,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database and ensures the
// jobs table exists.
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

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tracked_jobs table: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// Load returns every tracked job ordered by position.
func (db *DB) Load(ctx context.Context) ([]types.JobRecord, error) {
	return loadJobs(ctx, db.pool)
}

// Save replaces the stored collection.
func (db *DB) Save(ctx context.Context, records []types.JobRecord) error {
	return db.Update(ctx, func([]types.JobRecord) ([]types.JobRecord, error) {
		return records, nil
	})
}

// Update runs fn over the current collection and writes the result in one
// transaction. A transaction-scoped advisory lock serializes writers across
// processes sharing the database.
func (db *DB) Update(ctx context.Context, fn func([]types.JobRecord) ([]types.JobRecord, error)) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, jobsLockKey); err != nil {
		return fmt.Errorf("failed to acquire jobs lock: %w", err)
	}

	records, err := loadJobs(ctx, tx)
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tracked_jobs`); err != nil {
		return fmt.Errorf("failed to clear tracked_jobs: %w", err)
	}

	batch := &pgx.Batch{}
	for i, rec := range next {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal job %d: %w", rec.ID, err)
		}
		batch.Queue(`INSERT INTO tracked_jobs (id, position, doc) VALUES ($1, $2, $3)`, rec.ID, i, doc)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert jobs: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadJobs(ctx context.Context, q querier) ([]types.JobRecord, error) {
	rows, err := q.Query(ctx, `SELECT doc FROM tracked_jobs ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked_jobs: %w", err)
	}
	defer rows.Close()

	records := []types.JobRecord{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		var rec types.JobRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
