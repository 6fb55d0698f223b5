// Package store persists the tracked job collection.
//
// The collection is read and written as a whole. Every mutation runs
// "load, mutate, save" under a single-writer lock so concurrent requests
// cannot overwrite each other's additions. Backends that support
// transactions additionally run the cycle inside one transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jonathan/job-tracker/internal/intake"
	"github.com/jonathan/job-tracker/internal/types"
)

// ErrStorageUnavailable is returned by every operation when no backend is configured.
var ErrStorageUnavailable = errors.New("storage not configured")

// errUnchanged lets a mutation skip the save step.
var errUnchanged = errors.New("unchanged")

// Backend loads and saves the whole collection.
type Backend interface {
	Load(ctx context.Context) ([]types.JobRecord, error)
	Save(ctx context.Context, records []types.JobRecord) error
	Close() error
}

// UpdateFunc receives the current collection and returns the replacement.
type UpdateFunc = func(records []types.JobRecord) ([]types.JobRecord, error)

// Updater is implemented by backends that run a read-modify-write cycle
// atomically on their own, typically inside a transaction.
type Updater interface {
	Update(ctx context.Context, fn UpdateFunc) error
}

// Store serializes access to a Backend.
type Store struct {
	mu      sync.Mutex
	backend Backend
}

// New wraps a backend. A nil backend yields a Store whose operations all
// return ErrStorageUnavailable.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Configured reports whether a backend is attached.
func (s *Store) Configured() bool {
	return s != nil && s.backend != nil
}

// Close releases the backend.
func (s *Store) Close() error {
	if !s.Configured() {
		return nil
	}
	return s.backend.Close()
}

// List returns the whole collection in stored order.
func (s *Store) List(ctx context.Context) ([]types.JobRecord, error) {
	if !s.Configured() {
		return nil, ErrStorageUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	if records == nil {
		records = []types.JobRecord{}
	}
	return records, nil
}

// Count returns the number of tracked records.
func (s *Store) Count(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// PendingCount returns the number of captures still waiting for the tracker UI.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range records {
		if records[i].Pending {
			n++
		}
	}
	return n, nil
}

// TakePending returns the pending captures in stored order and clears their
// marker in the same cycle, so each capture is handed out once.
func (s *Store) TakePending(ctx context.Context) ([]types.JobRecord, error) {
	taken := []types.JobRecord{}
	err := s.update(ctx, func(records []types.JobRecord) ([]types.JobRecord, error) {
		for i := range records {
			if !records[i].Pending {
				continue
			}
			records[i].Pending = false
			taken = append(taken, records[i])
		}
		if len(taken) == 0 {
			return nil, errUnchanged
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*types.JobRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, nil
}

// update runs fn as one atomic read-modify-write cycle.
func (s *Store) update(ctx context.Context, fn UpdateFunc) error {
	if !s.Configured() {
		return ErrStorageUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.backend.(Updater); ok {
		err := u.Update(ctx, fn)
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	records, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}
	next, err := fn(records)
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save jobs: %w", err)
	}
	return nil
}

// Merge adds the non-duplicate submissions. Nothing from the batch is
// committed when the save fails.
func (s *Store) Merge(ctx context.Context, subs []types.JobSubmission, opts intake.Options) (*intake.MergeResult, error) {
	var result intake.MergeResult
	err := s.update(ctx, func(records []types.JobRecord) ([]types.JobRecord, error) {
		result = intake.Merge(records, subs, opts)
		if result.Added() == 0 {
			return nil, errUnchanged
		}
		return result.Records, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[store] merged %d of %d submissions (%d total)", result.Added(), len(subs), len(result.Records))
	return &result, nil
}

// Capture inserts a single submission, reporting whether it was already tracked.
func (s *Store) Capture(ctx context.Context, sub types.JobSubmission, opts intake.Options) (types.JobRecord, bool, error) {
	var (
		rec     types.JobRecord
		existed bool
	)
	err := s.update(ctx, func(records []types.JobRecord) ([]types.JobRecord, error) {
		var next []types.JobRecord
		next, rec, existed = intake.Capture(records, sub, opts)
		if existed {
			return nil, errUnchanged
		}
		return next, nil
	})
	if err != nil {
		return types.JobRecord{}, false, err
	}
	return rec, existed, nil
}

// Upsert replaces records by id, appending ids that are not yet tracked.
// Records without an id are skipped. Length caps are applied and a missing
// status becomes saved. It returns the number of records written.
func (s *Store) Upsert(ctx context.Context, incoming []types.JobRecord) (int, error) {
	written := 0
	err := s.update(ctx, func(records []types.JobRecord) ([]types.JobRecord, error) {
		pos := make(map[int64]int, len(records))
		for i := range records {
			pos[records[i].ID] = i
		}
		for _, rec := range incoming {
			if rec.ID == 0 {
				continue
			}
			rec.Sanitize(types.StatusSaved)
			if i, ok := pos[rec.ID]; ok {
				records[i] = rec
			} else {
				pos[rec.ID] = len(records)
				records = append(records, rec)
			}
			written++
		}
		if written == 0 {
			return nil, errUnchanged
		}
		return records, nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Delete removes the record with the given id. An absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	removed := false
	err := s.update(ctx, func(records []types.JobRecord) ([]types.JobRecord, error) {
		next := make([]types.JobRecord, 0, len(records))
		for _, r := range records {
			if r.ID == id {
				removed = true
				continue
			}
			next = append(next, r)
		}
		if !removed {
			return nil, errUnchanged
		}
		return next, nil
	})
	return removed, err
}

// Clear replaces the collection with an empty one.
func (s *Store) Clear(ctx context.Context) error {
	return s.update(ctx, func([]types.JobRecord) ([]types.JobRecord, error) {
		return []types.JobRecord{}, nil
	})
}

// ApplyRankings writes ranking outputs back into matching records. The four
// ranking fields are replaced together. It returns the number of records updated.
func (s *Store) ApplyRankings(ctx context.Context, results []types.RankingResult) (int, error) {
	byID := make(map[int64]types.RankingResult, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}

	updated := 0
	err := s.update(ctx, func(records []types.JobRecord) ([]types.JobRecord, error) {
		for i := range records {
			res, ok := byID[records[i].ID]
			if !ok {
				continue
			}
			score := res.Score
			records[i].AIScore = &score
			records[i].AILabel = res.Label
			records[i].AIReason = res.Reason
			records[i].AIPriority = res.Priority
			updated++
		}
		if updated == 0 {
			return nil, errUnchanged
		}
		return records, nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
