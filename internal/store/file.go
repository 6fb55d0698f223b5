package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/jonathan/job-tracker/internal/types"
)

// lockRetry is how often a blocked writer polls the lock file.
const lockRetry = 25 * time.Millisecond

// FileBackend keeps the collection as one JSON array on disk. Writers from
// every process coordinate through a sibling ".lock" file.
type FileBackend struct {
	path string
	lock *flock.Flock
}

// NewFileBackend returns a backend writing to path. The parent directory is
// created if missing.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileBackend{path: path, lock: flock.New(path + ".lock")}, nil
}

// Update runs one load, fn, save cycle while holding the file lock.
func (f *FileBackend) Update(ctx context.Context, fn UpdateFunc) error {
	locked, err := f.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", f.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s", f.path)
	}
	defer func() { _ = f.lock.Unlock() }()

	records, err := f.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	if err := f.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save jobs: %w", err)
	}
	return nil
}

// Load reads the collection. A missing or empty file is an empty collection.
func (f *FileBackend) Load(_ context.Context) ([]types.JobRecord, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []types.JobRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return []types.JobRecord{}, nil
	}

	var records []types.JobRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	return records, nil
}

// Save writes the collection to a temp file and renames it into place.
func (f *FileBackend) Save(_ context.Context, records []types.JobRecord) error {
	if records == nil {
		records = []types.JobRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".jobs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// Close is a no-op.
func (f *FileBackend) Close() error { return nil }
