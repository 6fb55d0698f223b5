package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"port": 9090,
		"store_backend": "sqlite",
		"store_path": "data/jobs.db",
		"rank_schedule": "@every 6h",
		"exclusion_phrases": ["local candidates only"],
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "data/jobs.db", cfg.StorePath)
	assert.Equal(t, "@every 6h", cfg.RankSchedule)
	assert.Equal(t, []string{"local candidates only"}, cfg.ExclusionPhrases)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":              "5000",
		"SUPABASE_URL":      "https://abc.supabase.co",
		"SUPABASE_KEY":      "secret",
		"USE_BROWSER":       "true",
		"RANK_BATCH_SIZE":   "not a number",
		"EXCLUSION_PHRASES": " local only , ,citizens only",
		"ANTHROPIC_API_KEY": "sk-test",
		"LLM_RETRIES":       "2",
	}
	cfg := &Config{Port: 8081, RankBatchSize: 3}

	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseURL)
	assert.True(t, cfg.UseBrowser)
	assert.Equal(t, 3, cfg.RankBatchSize)
	assert.Equal(t, []string{"local only", "citizens only"}, cfg.ExclusionPhrases)
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
	assert.Equal(t, 2, cfg.LLMRetries)
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{Port: 7000}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 7000, merged.Port)
	assert.Equal(t, BackendFile, merged.StoreBackend)
	assert.Equal(t, filepath.Join("data", "jobs.json"), merged.StorePath)
	assert.Equal(t, "anthropic", merged.LLMProvider)
	assert.Equal(t, 15, merged.RankBatchSize)
	assert.Equal(t, 6*time.Hour, merged.CacheDuration())
}

func TestMergeWithDefaults_InfersBackend(t *testing.T) {
	supa := (&Config{SupabaseURL: "https://x.supabase.co", SupabaseKey: "k"}).MergeWithDefaults(Defaults())
	assert.Equal(t, BackendSupabase, supa.StoreBackend)

	pg := (&Config{DatabaseURL: "postgres://localhost/jobs"}).MergeWithDefaults(Defaults())
	assert.Equal(t, BackendPostgres, pg.StoreBackend)

	explicit := (&Config{StoreBackend: BackendSQLite, DatabaseURL: "postgres://localhost/jobs"}).MergeWithDefaults(Defaults())
	assert.Equal(t, BackendSQLite, explicit.StoreBackend)
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.StoreBackend = BackendFile

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port"},
		{"negative rate", func(c *Config) { c.RateLimitPerMinute = -1 }, "rate_limit_per_minute"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "mongo" }, "store_backend"},
		{"postgres without url", func(c *Config) { c.StoreBackend = BackendPostgres }, "database_url"},
		{"supabase without key", func(c *Config) { c.StoreBackend = BackendSupabase; c.SupabaseURL = "u" }, "supabase_key"},
		{"bad provider", func(c *Config) { c.LLMProvider = "openai" }, "llm_provider"},
		{"bad ttl", func(c *Config) { c.CacheTTL = "soon" }, "cache_ttl"},
		{"bad schedule", func(c *Config) { c.RankSchedule = "every day" }, "rank_schedule"},
		{"too many retries", func(c *Config) { c.LLMRetries = 9 }, "llm_retries"},
		{"good schedule", func(c *Config) { c.RankSchedule = "0 */6 * * *" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"port": 9000, "llm_provider": "gemini"}`), 0644))
	t.Setenv("PORT", "9100")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "g-key", cfg.APIKey())
}
