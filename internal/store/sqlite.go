package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/job-tracker/internal/types"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id       INTEGER PRIMARY KEY,
	position INTEGER NOT NULL,
	doc      TEXT NOT NULL
)`

// SQLiteBackend stores one row per record in a local SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps writers from racing inside the same process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Load returns records ordered by position.
func (b *SQLiteBackend) Load(ctx context.Context) ([]types.JobRecord, error) {
	return loadRows(ctx, b.db)
}

// Save replaces the table contents in one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, records []types.JobRecord) error {
	return b.Update(ctx, func([]types.JobRecord) ([]types.JobRecord, error) {
		return records, nil
	})
}

// Update runs fn and writes its result inside one transaction.
func (b *SQLiteBackend) Update(ctx context.Context, fn UpdateFunc) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	records, err := loadRows(ctx, tx)
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("failed to clear jobs: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs (id, position, doc) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range next {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal job %d: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, i, string(doc)); err != nil {
			return fmt.Errorf("failed to insert job %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRows(ctx context.Context, q queryer) ([]types.JobRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT doc FROM jobs ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	records := []types.JobRecord{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		var rec types.JobRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
