package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Verify   VerifyConfig   `yaml:"verify"`
	Resolve  ResolveConfig  `yaml:"resolve"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// VerifyConfig holds verification batch settings.
type VerifyConfig struct {
	// MaxConcurrency is the number of songs verified at once. The default is
	// 1: external catalogs are rate limited and progress reporting assumes
	// input order. Raising it is a deliberate, documented risk.
	MaxConcurrency int `yaml:"max_concurrency"`
	// PacingMS is the delay between songs in a batch, in milliseconds.
	PacingMS int `yaml:"pacing_ms"`
}

// ResolveConfig holds smart resolver settings.
type ResolveConfig struct {
	// AcceptThreshold is the minimum fuzzy-match score for the hard-search
	// tier to accept a candidate. Tunable, not a hard contract.
	AcceptThreshold float64 `yaml:"accept_threshold"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "/data/songproof.db",
		},
		Verify: VerifyConfig{
			MaxConcurrency: 1,
			PacingMS:       100,
		},
		Resolve: ResolveConfig{
			AcceptThreshold: 0.75,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("SPF_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SPF_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("SPF_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SPF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SPF_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SPF_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("SPF_VERIFY_PACING_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Verify.PacingMS = ms
		}
	}
	if v := os.Getenv("SPF_ACCEPT_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.Resolve.AcceptThreshold = t
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	// Parallel verification would trip the per-IP limits of the free
	// catalogs and scramble progress ordering, so only 1 is supported.
	if c.Verify.MaxConcurrency != 1 {
		return fmt.Errorf("verify.max_concurrency must be 1")
	}
	if c.Verify.PacingMS < 0 {
		return fmt.Errorf("verify.pacing_ms must not be negative")
	}
	if c.Resolve.AcceptThreshold < 0 || c.Resolve.AcceptThreshold > 1 {
		return fmt.Errorf("resolve.accept_threshold must be in [0,1]")
	}
	return nil
}
