// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendNone     = "none"
)

// Config represents the application configuration. It can be loaded from a
// JSON file and is overlaid by environment variables.
type Config struct {
	// Server
	Port               int `json:"port,omitempty"`
	RateLimitPerMinute int `json:"rate_limit_per_minute,omitempty"` // default per-client limit

	// Storage
	StoreBackend string `json:"store_backend,omitempty"` // file, sqlite, postgres, supabase, none
	StorePath    string `json:"store_path,omitempty"`    // JSON file or sqlite database path
	DatabaseURL  string `json:"database_url,omitempty"`  // PostgreSQL connection URL
	SupabaseURL  string `json:"supabase_url,omitempty"`
	SupabaseKey  string `json:"supabase_key,omitempty"`

	// Fetching
	RedisURL        string `json:"redis_url,omitempty"` // page cache; empty disables it
	CacheTTL        string `json:"cache_ttl,omitempty"` // Go duration, e.g. "6h"
	UseBrowser      bool   `json:"use_browser,omitempty"`
	DefaultLocation string `json:"default_location,omitempty"`

	// Model
	LLMProvider     string `json:"llm_provider,omitempty"` // anthropic or gemini
	GeminiAPIKey    string `json:"gemini_api_key,omitempty"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`
	AnthropicModel  string `json:"anthropic_model,omitempty"` // overrides every tier
	LLMRetries      int    `json:"llm_retries,omitempty"`     // retries on 429/5xx; 0 means one call per request

	// Ranking
	ProfilePath      string   `json:"profile_path,omitempty"`
	RankSchedule     string   `json:"rank_schedule,omitempty"` // cron spec; empty disables scheduled ranking
	RankBatchSize    int      `json:"rank_batch_size,omitempty"`
	ExclusionPhrases []string `json:"exclusion_phrases,omitempty"` // added to the built-in visa phrases

	Verbose bool `json:"verbose,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:               8080,
		RateLimitPerMinute: 60,
		StorePath:          filepath.Join("data", "jobs.json"),
		CacheTTL:           "6h",
		DefaultLocation:    "Singapore",
		LLMProvider:        "anthropic",
		RankBatchSize:      15,
	}
}

// Load builds the effective configuration: the optional JSON file at path,
// then environment variables, then defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.ApplyEnv(os.Getenv)
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overlays non-empty environment variables onto c.
func (c *Config) ApplyEnv(getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v, err := strconv.Atoi(strings.TrimSpace(getenv(key))); err == nil {
			*dst = v
		}
	}
	setBool := func(dst *bool, key string) {
		if v, err := strconv.ParseBool(strings.TrimSpace(getenv(key))); err == nil {
			*dst = v
		}
	}

	setInt(&c.Port, "PORT")
	setInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setString(&c.StoreBackend, "STORE_BACKEND")
	setString(&c.StorePath, "STORE_PATH")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SupabaseURL, "SUPABASE_URL")
	setString(&c.SupabaseKey, "SUPABASE_KEY")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.CacheTTL, "CACHE_TTL")
	setBool(&c.UseBrowser, "USE_BROWSER")
	setString(&c.DefaultLocation, "DEFAULT_LOCATION")
	setString(&c.LLMProvider, "LLM_PROVIDER")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&c.AnthropicModel, "ANTHROPIC_MODEL")
	setInt(&c.LLMRetries, "LLM_RETRIES")
	setString(&c.ProfilePath, "PROFILE_PATH")
	setString(&c.RankSchedule, "RANK_SCHEDULE")
	setInt(&c.RankBatchSize, "RANK_BATCH_SIZE")
	setBool(&c.Verbose, "VERBOSE")

	if v := getenv("EXCLUSION_PHRASES"); strings.TrimSpace(v) != "" {
		var phrases []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				phrases = append(phrases, p)
			}
		}
		c.ExclusionPhrases = phrases
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("config error: 'rate_limit_per_minute' must be non-negative")
	}
	if c.RankBatchSize < 0 {
		return fmt.Errorf("config error: 'rank_batch_size' must be non-negative")
	}
	if c.LLMRetries < 0 || c.LLMRetries > 5 {
		return fmt.Errorf("config error: 'llm_retries' must be between 0 and 5")
	}

	switch c.StoreBackend {
	case BackendFile, BackendSQLite, BackendNone, "":
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres backend")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("config error: 'supabase_url' and 'supabase_key' are required for the supabase backend")
		}
	default:
		return fmt.Errorf("config error: unknown 'store_backend' %q", c.StoreBackend)
	}

	switch strings.ToLower(c.LLMProvider) {
	case "", "anthropic", "claude", "gemini":
	default:
		return fmt.Errorf("config error: unknown 'llm_provider' %q", c.LLMProvider)
	}

	if c.CacheTTL != "" {
		if d, err := time.ParseDuration(c.CacheTTL); err != nil || d < 0 {
			return fmt.Errorf("config error: 'cache_ttl' must be a non-negative duration: %q", c.CacheTTL)
		}
	}

	if c.RankSchedule != "" {
		if _, err := cron.ParseStandard(c.RankSchedule); err != nil {
			return fmt.Errorf("config error: invalid 'rank_schedule': %w", err)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// The storage backend, when unset, follows whichever remote store is configured.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.StorePath == "" {
		result.StorePath = defaults.StorePath
	}
	if result.CacheTTL == "" {
		result.CacheTTL = defaults.CacheTTL
	}
	if result.DefaultLocation == "" {
		result.DefaultLocation = defaults.DefaultLocation
	}
	if result.LLMProvider == "" {
		result.LLMProvider = defaults.LLMProvider
	}
	if result.ProfilePath == "" {
		result.ProfilePath = defaults.ProfilePath
	}
	if result.RankSchedule == "" {
		result.RankSchedule = defaults.RankSchedule
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RateLimitPerMinute == 0 {
		result.RateLimitPerMinute = defaults.RateLimitPerMinute
	}
	if result.RankBatchSize == 0 {
		result.RankBatchSize = defaults.RankBatchSize
	}

	if result.StoreBackend == "" {
		switch {
		case defaults.StoreBackend != "":
			result.StoreBackend = defaults.StoreBackend
		case result.SupabaseURL != "" && result.SupabaseKey != "":
			result.StoreBackend = BackendSupabase
		case result.DatabaseURL != "":
			result.StoreBackend = BackendPostgres
		default:
			result.StoreBackend = BackendFile
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// CacheDuration returns the parsed cache TTL, or zero when unset or invalid.
func (c *Config) CacheDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

// APIKey returns the key for the configured model provider.
func (c *Config) APIKey() string {
	if strings.EqualFold(c.LLMProvider, "gemini") {
		return c.GeminiAPIKey
	}
	return c.AnthropicAPIKey
}
