package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/scoutchat/internal/ledger"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLAUDE_API_KEY", "ANTHROPIC_API_KEY", "SCOUTCHAT_ACCESS_CODE",
		"SCOUTCHAT_REDIS_URL", "SCOUTCHAT_POSTGRES_URL",
	} {
		t.Setenv(key, "")
	}
	// keep godotenv away from a developer's .env
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, ledger.DefaultLimit, cfg.Ledger.Limit)
	assert.Equal(t, 24*time.Hour, cfg.Ledger.Window)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Provider.Model)
	assert.Equal(t, 300, cfg.Provider.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "headers", cfg.Identity.Scheme)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Provider.APIKey)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "fallback-key")
	t.Setenv("SCOUTCHAT_ACCESS_CODE", "owls")

	path := writeConfig(t, `
server:
  port: 9090
storage:
  type: sqlite
  path: /tmp/scout.db
ledger:
  limit: 2.5
  window: 12h
provider:
  timeout: 5s
identity:
  scheme: fingerprint
rate_limit:
  requests_per_minute: 30
logging:
  format: json
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StorageSQLite, cfg.Storage.Type)
	assert.Equal(t, "/tmp/scout.db", cfg.Storage.Path)
	assert.Equal(t, 2.5, cfg.Ledger.Limit)
	assert.Equal(t, 12*time.Hour, cfg.Ledger.Window)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "fingerprint", cfg.Identity.Scheme)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "fallback-key", cfg.Provider.APIKey)
	assert.Equal(t, "owls", cfg.Auth.AccessCode)

	ls := cfg.LedgerSettings()
	assert.Equal(t, 2.5, ls.Limit)
	assert.Equal(t, ledger.DefaultInputTokensPerDollar, ls.InputTokensPerDollar)
}

func TestLoad_PrimaryKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLAUDE_API_KEY", "primary")
	t.Setenv("ANTHROPIC_API_KEY", "secondary")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.AnthropicSettings().APIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "server: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Type = "mongo" }},
		{"redis without url", func(c *Config) { c.Storage.Type = StorageRedis }},
		{"postgres without url", func(c *Config) { c.Storage.Type = StoragePostgreSQL }},
		{"negative limit", func(c *Config) { c.Ledger.Limit = -1 }},
		{"negative rate", func(c *Config) { c.RateLimit.RequestsPerMinute = -5 }},
		{"unknown identity", func(c *Config) { c.Identity.Scheme = "cookie" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestApplyDefaults_StoragePaths(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Type: StorageFile}}
	cfg.ApplyDefaults()
	assert.Equal(t, "./data/usage.json", cfg.Storage.Path)

	cfg = &Config{Storage: StorageConfig{Type: StorageSQLite}}
	cfg.ApplyDefaults()
	assert.Equal(t, "./data/scoutchat.db", cfg.Storage.Path)
}
