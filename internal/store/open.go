package store

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/job-tracker/internal/db"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendNone     = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Path        string
	DatabaseURL string
	SupabaseURL string
	SupabaseKey string
}

// Open builds a Store for the configured backend. An unreachable or
// misconfigured backend is logged and yields an unconfigured Store so the
// rest of the application keeps working.
func Open(ctx context.Context, opts Options) *Store {
	backend, err := openBackend(ctx, opts)
	if err != nil {
		log.Printf("[store] storage unavailable (%s): %v", opts.Backend, err)
		return New(nil)
	}
	if backend == nil {
		return New(nil)
	}
	return New(backend)
}

func openBackend(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileBackend(opts.Path)
	case BackendSQLite:
		return NewSQLiteBackend(opts.Path)
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, ErrStorageUnavailable
		}
		return db.Connect(ctx, opts.DatabaseURL)
	case BackendSupabase:
		return NewSupabaseBackend(opts.SupabaseURL, opts.SupabaseKey)
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
