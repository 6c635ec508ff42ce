// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

// Package config loads authledger settings. Sources are layered, later ones
// winning: built-in defaults, the YAML file, the DATABASE_URL environment
// variable, then explicitly set command flags.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/authledger/authledger/internal/auth"
	"github.com/authledger/authledger/internal/logging"
)

// DatabaseURLEnv overrides database.url when set.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the full application configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Auth      AuthConfig      `koanf:"auth"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Compactor CompactorConfig `koanf:"compactor"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	MaxConns        int32  `koanf:"max_conns"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// AuthConfig configures the auth service.
type AuthConfig struct {
	HistoryLimit int `koanf:"history_limit"`
	// ExposeStoreErrors appends storage error text to user-facing messages.
	ExposeStoreErrors bool `koanf:"expose_store_errors"`
}

// MetricsConfig configures the observability server. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// CompactorConfig configures periodic ledger compaction in serve. Zero
// disables it.
type CompactorConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			MaxConns:        10,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Auth: AuthConfig{
			HistoryLimit: auth.DefaultHistoryLimit,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
		Compactor: CompactorConfig{
			Interval: 5 * time.Minute,
		},
	}
}

// flagKeys maps command flag names to configuration keys.
var flagKeys = map[string]string{
	"database-url":       "database.url",
	"max-conns":          "database.max_conns",
	"connect-attempts":   "database.connect_attempts",
	"log-format":         "log.format",
	"log-level":          "log.level",
	"history-limit":      "auth.history_limit",
	"metrics-addr":       "metrics.addr",
	"compactor-interval": "compactor.interval",
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is a YAML file path; empty skips the file.
	File string
	// Flags contributes every flag from flagKeys that was set explicitly.
	Flags *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load merges the sources and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.File).Wrap(err)
		}
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if url := getenv(DatabaseURLEnv); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", DatabaseURLEnv).Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	invalid := func(key string, value any, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).With("value", value).Errorf(format, args...)
	}

	if c.Database.URL == "" {
		return invalid("database.url", "", "database.url is required (set %s, database.url or --database-url)", DatabaseURLEnv)
	}
	if c.Database.MaxConns < 0 {
		return invalid("database.max_conns", c.Database.MaxConns, "database.max_conns must not be negative")
	}
	if c.Database.ConnectAttempts == 0 {
		return invalid("database.connect_attempts", c.Database.ConnectAttempts, "database.connect_attempts must be at least 1")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", c.Log.Format, "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", c.Log.Level, "log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Auth.HistoryLimit <= 0 {
		return invalid("auth.history_limit", c.Auth.HistoryLimit, "auth.history_limit must be positive")
	}
	if c.Compactor.Interval < 0 {
		return invalid("compactor.interval", c.Compactor.Interval, "compactor.interval must not be negative")
	}
	return nil
}

// BindFlags declares the flags Load understands on fs. Their defaults are
// informational; only flags set on the command line override other sources.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("database-url", "", "PostgreSQL URL (overrides "+DatabaseURLEnv+")")
	fs.Int32("max-conns", d.Database.MaxConns, "maximum pool connections")
	fs.Uint64("connect-attempts", d.Database.ConnectAttempts, "database ping attempts at startup")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.Int("history-limit", d.Auth.HistoryLimit, "login events kept per user")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.Duration("compactor-interval", d.Compactor.Interval, "history compaction interval (0 = disabled)")
}
