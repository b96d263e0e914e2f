package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/andrew/scoutchat/internal/identity"
	"github.com/andrew/scoutchat/internal/ledger"
	"github.com/andrew/scoutchat/internal/provider/anthropic"
)

// Storage backends for the usage ledger
const (
	StorageMemory     = "memory"
	StorageFile       = "file"
	StorageSQLite     = "sqlite"
	StorageRedis      = "redis"
	StoragePostgreSQL = "postgresql"
)

const DefaultMaxBodyBytes = 20 << 20

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Provider  ProviderConfig  `yaml:"provider"`
	Identity  IdentityConfig  `yaml:"identity"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// StorageConfig selects and configures the ledger store
type StorageConfig struct {
	Type     string         `yaml:"type"`
	Path     string         `yaml:"path"` // file and sqlite
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type RedisConfig struct {
	URL    string `yaml:"-"` // Not in YAML, loaded from env
	Prefix string `yaml:"prefix"`
}

type PostgresConfig struct {
	URL      string `yaml:"-"` // Not in YAML, loaded from env
	MaxConns int    `yaml:"max_conns"`
}

// LedgerConfig contains the spend cap settings
type LedgerConfig struct {
	Limit                 float64       `yaml:"limit"`
	InputTokensPerDollar  float64       `yaml:"input_tokens_per_dollar"`
	OutputTokensPerDollar float64       `yaml:"output_tokens_per_dollar"`
	Window                time.Duration `yaml:"window"`
}

// ProviderConfig contains Anthropic API configuration
type ProviderConfig struct {
	APIKey    string        `yaml:"-"` // Not in YAML, loaded from env
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type IdentityConfig struct {
	Scheme string `yaml:"scheme"`
}

// RateLimitConfig limits requests per identity; zero disables it
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// AuthConfig contains the optional access code gate
type AuthConfig struct {
	AccessCode string `yaml:"-"` // Not in YAML, loaded from env
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	cfg.ApplyDefaults()
	return cfg
}

// Load loads configuration from a YAML file and environment variables.
// A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Load sensitive config from environment variables
	cfg.Provider.APIKey = getEnv("CLAUDE_API_KEY", getEnv("ANTHROPIC_API_KEY", ""))
	cfg.Auth.AccessCode = getEnv("SCOUTCHAT_ACCESS_CODE", "")
	cfg.Storage.Redis.URL = getEnv("SCOUTCHAT_REDIS_URL", "")
	cfg.Storage.Postgres.URL = getEnv("SCOUTCHAT_POSTGRES_URL", "")

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Storage.Type == "" {
		c.Storage.Type = StorageMemory
	}
	if c.Storage.Path == "" {
		switch c.Storage.Type {
		case StorageFile:
			c.Storage.Path = "./data/usage.json"
		case StorageSQLite:
			c.Storage.Path = "./data/scoutchat.db"
		}
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = ledger.DefaultRedisPrefix
	}

	if c.Ledger.Limit == 0 {
		c.Ledger.Limit = ledger.DefaultLimit
	}
	if c.Ledger.InputTokensPerDollar == 0 {
		c.Ledger.InputTokensPerDollar = ledger.DefaultInputTokensPerDollar
	}
	if c.Ledger.OutputTokensPerDollar == 0 {
		c.Ledger.OutputTokensPerDollar = ledger.DefaultOutputTokensPerDollar
	}
	if c.Ledger.Window == 0 {
		c.Ledger.Window = ledger.DefaultWindow
	}

	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = anthropic.DefaultBaseURL
	}
	if c.Provider.Model == "" {
		c.Provider.Model = anthropic.DefaultModel
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = anthropic.DefaultMaxTokens
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = anthropic.DefaultTimeout
	}

	if c.Identity.Scheme == "" {
		c.Identity.Scheme = identity.SchemeHeaders
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "/metrics"
	}
}

// Validate checks values that defaults cannot fix
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Storage.Type {
	case StorageMemory, StorageFile, StorageSQLite:
	case StorageRedis:
		if c.Storage.Redis.URL == "" {
			return errors.New("redis storage requires SCOUTCHAT_REDIS_URL")
		}
	case StoragePostgreSQL:
		if c.Storage.Postgres.URL == "" {
			return errors.New("postgresql storage requires SCOUTCHAT_POSTGRES_URL")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if c.Ledger.Limit < 0 || c.Ledger.InputTokensPerDollar < 0 || c.Ledger.OutputTokensPerDollar < 0 || c.Ledger.Window < 0 {
		return errors.New("ledger values must not be negative")
	}
	if c.Provider.MaxTokens < 0 {
		return fmt.Errorf("invalid provider max_tokens: %d", c.Provider.MaxTokens)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("invalid rate_limit requests_per_minute: %d", c.RateLimit.RequestsPerMinute)
	}

	if _, err := identity.New(c.Identity.Scheme); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging format: %s", c.Logging.Format)
	}

	return nil
}

// LedgerSettings converts the ledger section for ledger.New
func (c *Config) LedgerSettings() ledger.Config {
	return ledger.Config{
		Limit:                 c.Ledger.Limit,
		InputTokensPerDollar:  c.Ledger.InputTokensPerDollar,
		OutputTokensPerDollar: c.Ledger.OutputTokensPerDollar,
		Window:                c.Ledger.Window,
	}
}

// AnthropicSettings converts the provider section for anthropic.New
func (c *Config) AnthropicSettings() anthropic.Config {
	return anthropic.Config{
		APIKey:    c.Provider.APIKey,
		BaseURL:   c.Provider.BaseURL,
		Model:     c.Provider.Model,
		MaxTokens: c.Provider.MaxTokens,
		Timeout:   c.Provider.Timeout,
	}
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Address returns the server address string
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
