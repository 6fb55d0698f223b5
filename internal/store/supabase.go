package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	supabase "github.com/nedpals/supabase-go"

	"github.com/jonathan/job-tracker/internal/types"
)

const supabaseTable = "jobs"

// SupabaseBackend keeps records in a hosted Supabase "jobs" table whose
// columns mirror the JobRecord JSON fields. Rows come back ordered by id,
// which follows creation order since ids are timestamp based.
type SupabaseBackend struct {
	client *supabase.Client
}

// NewSupabaseBackend creates a client for the given project URL and key.
func NewSupabaseBackend(url, key string) (*SupabaseBackend, error) {
	if url == "" || key == "" {
		return nil, ErrStorageUnavailable
	}
	return &SupabaseBackend{client: supabase.CreateClient(url, key)}, nil
}

// Load fetches every row.
func (b *SupabaseBackend) Load(_ context.Context) ([]types.JobRecord, error) {
	var rows []types.JobRecord
	if err := b.client.DB.From(supabaseTable).Select("*").Execute(&rows); err != nil {
		return nil, fmt.Errorf("failed to select jobs: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	if rows == nil {
		rows = []types.JobRecord{}
	}
	return rows, nil
}

// Save upserts every record, then removes the rows no longer present with a
// single delete.
func (b *SupabaseBackend) Save(ctx context.Context, records []types.JobRecord) error {
	current, err := b.Load(ctx)
	if err != nil {
		return err
	}

	keep := make(map[int64]struct{}, len(records))
	for _, r := range records {
		keep[r.ID] = struct{}{}
	}

	if len(records) > 0 {
		var out []types.JobRecord
		if err := b.client.DB.From(supabaseTable).Upsert(records).Execute(&out); err != nil {
			return fmt.Errorf("failed to upsert jobs: %w", err)
		}
	}

	var gone []string
	for _, r := range current {
		if _, ok := keep[r.ID]; !ok {
			gone = append(gone, strconv.FormatInt(r.ID, 10))
		}
	}
	if len(gone) == 0 {
		return nil
	}
	// Removed rows go out as one filtered delete.
	var out []types.JobRecord
	if err := b.client.DB.From(supabaseTable).Delete().In("id", gone).Execute(&out); err != nil {
		return fmt.Errorf("failed to delete %d jobs: %w", len(gone), err)
	}
	return nil
}

// Close is a no-op; the client holds no persistent connection.
func (b *SupabaseBackend) Close() error { return nil }
