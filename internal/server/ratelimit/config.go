package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	fallbackLimit   = 60
	fallbackCleanup = 5 * time.Minute
	// idleTTL is how long an unused bucket survives cleanup.
	idleTTL = time.Hour
)

// Group is a named budget shared by a set of routes. A client draws every
// request to any route of the group from one bucket.
type Group struct {
	Name   string
	Routes []string // "METHOD /path"; a path ending in "/" matches by prefix
	Limit  int      // requests per Window; <= 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity, defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Allow           map[string]bool // clients that are never limited
	Deny            map[string]bool // clients that are always refused
	Groups          []Group
}

// LoadConfig reads RATE_LIMIT_* variables. defaultLimit is the per-minute
// budget for routes outside every group; values <= 0 fall back to 60.
func LoadConfig(defaultLimit int) *Config {
	if !envBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	if defaultLimit <= 0 {
		defaultLimit = fallbackLimit
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    defaultLimit,
		DefaultWindow:   envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration("RATE_LIMIT_CLEANUP_INTERVAL", fallbackCleanup),
		Allow:           clientSet(os.Getenv("RATE_LIMIT_WHITELIST")),
		Deny:            clientSet(os.Getenv("RATE_LIMIT_BLACKLIST")),
		Groups:          DefaultGroups(),
	}
}

// DefaultGroups returns the budgets for routes that call the model or fetch
// job pages.
func DefaultGroups() []Group {
	return []Group{
		{
			Name:   "ranking",
			Routes: []string{"POST /api/rank-jobs", "POST /api/jobs/rank"},
			Limit:  20, Window: time.Hour, Burst: 5,
		},
		{
			Name: "drafting",
			Routes: []string{
				"POST /api/tailor-resume", "POST /api/cover-letter", "POST /api/interview-prep",
				"POST /api/follow-up", "POST /api/speed-kit", "POST /api/full-kit",
			},
			Limit: 60, Window: time.Hour, Burst: 5,
		},
		{
			Name:   "fetch",
			Routes: []string{"POST /api/import-job", "POST /api/fetch-jd"},
			Limit:  30, Window: time.Minute, Burst: 10,
		},
	}
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

// clientSet parses a comma-separated list of client ids.
func clientSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}
