// Package config provides configuration loading and validation from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for optional settings.
const (
	DefaultLogLevel          = "info"
	DefaultListenAddr        = ":8080"
	DefaultDatabasePath      = "/data/archive.db"
	DefaultMetricsListenAddr = "localhost:9090"
	DefaultTokenMaxAttempts  = 5
	DefaultTokenBackoff      = 10 * time.Millisecond
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string // debug, info, warn, error
	ListenAddr        string // Server listen address (e.g., ":8080")
	DatabasePath      string // SQLite database path
	MetricsListenAddr string // Metrics listener address (e.g., "localhost:9090")

	// TokenMaxAttempts bounds token generation attempts per issuance.
	TokenMaxAttempts int
	// TokenBackoff is the pause between attempts after a collision.
	TokenBackoff time.Duration

	// BootstrapUsername, when set, is ensured to exist with one API token at startup.
	BootstrapUsername string
	// SchemaExtraRefs are record type references registered on top of the defaults.
	SchemaExtraRefs []string
}

// Load parses configuration from environment variables.
// All configuration options have sensible defaults for ease of deployment.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:          envOr("LOG_LEVEL", DefaultLogLevel),
		ListenAddr:        envOr("LISTEN_ADDR", DefaultListenAddr),
		DatabasePath:      envOr("DATABASE_PATH", DefaultDatabasePath),
		MetricsListenAddr: envOr("METRICS_LISTEN_ADDR", DefaultMetricsListenAddr),
		TokenMaxAttempts:  DefaultTokenMaxAttempts,
		TokenBackoff:      DefaultTokenBackoff,
		BootstrapUsername: strings.TrimSpace(os.Getenv("BOOTSTRAP_USERNAME")),
		SchemaExtraRefs:   splitList(os.Getenv("SCHEMA_EXTRA_REFS")),
	}

	if v := os.Getenv("TOKEN_ISSUE_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_ISSUE_MAX_ATTEMPTS %q: %w", v, err)
		}
		cfg.TokenMaxAttempts = n
	}

	if v := os.Getenv("TOKEN_ISSUE_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_ISSUE_BACKOFF %q: %w", v, err)
		}
		cfg.TokenBackoff = d
	}

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if c.TokenMaxAttempts < 1 {
		return fmt.Errorf("TOKEN_ISSUE_MAX_ATTEMPTS must be at least 1 (got %d)", c.TokenMaxAttempts)
	}
	if c.TokenBackoff < 0 {
		return fmt.Errorf("TOKEN_ISSUE_BACKOFF must not be negative (got %s)", c.TokenBackoff)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
