// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

// Package store opens the shared PostgreSQL pool and owns the schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Defaults applied by Open when the corresponding option is zero.
const (
	DefaultConnectAttempts = 5
	DefaultRetryBase       = 200 * time.Millisecond
)

// Options configures Open.
type Options struct {
	URL      string
	MaxConns int32

	// ConnectAttempts bounds how many times the initial ping is tried.
	ConnectAttempts uint64
	// RetryBase is the first backoff delay; later delays double.
	RetryBase time.Duration

	Logger *slog.Logger
}

// Open creates a pool and pings it until it answers or the attempts run
// out. The pool is closed again if the database never becomes reachable.
func Open(ctx context.Context, opts Options) (*pgxpool.Pool, error) {
	if opts.URL == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("database URL is required")
	}

	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		// The parse error can echo the DSN, password included.
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("failed to parse database URL")
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	attempts := opts.ConnectAttempts
	if attempts == 0 {
		attempts = DefaultConnectAttempts
	}
	base := opts.RetryBase
	if base <= 0 {
		base = DefaultRetryBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.WarnContext(ctx, "database ping failed",
				"attempt", attempt,
				"max_attempts", attempts,
				"error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempt).
			Wrap(err)
	}

	logger.InfoContext(ctx, "database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns)
	return pool, nil
}
