// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

// Package app wires configuration, storage and the auth service together.
// Web handlers and the CLI go through an App rather than building the
// pieces themselves.
package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/authledger/authledger/internal/auth"
	"github.com/authledger/authledger/internal/auth/postgres"
	"github.com/authledger/authledger/internal/config"
	"github.com/authledger/authledger/internal/store"
)

// Deps holds replaceable constructors. Nil fields use the defaults.
type Deps struct {
	// OpenPool defaults to store.Open.
	OpenPool func(ctx context.Context, opts store.Options) (*pgxpool.Pool, error)

	// MigrateSchema applies the embedded migrations. Defaults to running
	// store.Migrator.Up against the configured URL.
	MigrateSchema func(databaseURL string) error

	// Hasher defaults to auth.NewArgon2idHasher().
	Hasher auth.PasswordHasher
}

// App is an initialized authledger core.
type App struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Users     *postgres.UserRepository
	History   *postgres.HistoryRepository
	Auth      *auth.Service
	Compactor *auth.Compactor

	logger *slog.Logger
}

// Initialize opens storage, brings the schema up to date and builds the
// service. It fails when the database cannot be reached. Running it
// against an initialized database changes nothing.
func Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	return InitializeWithDeps(ctx, cfg, logger, nil)
}

// InitializeWithDeps is Initialize with injectable constructors.
func InitializeWithDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Deps) (*App, error) {
	if cfg == nil {
		return nil, oops.Code("CONFIG_INVALID").Errorf("configuration is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps == nil {
		deps = &Deps{}
	}
	if deps.OpenPool == nil {
		deps.OpenPool = store.Open
	}
	if deps.MigrateSchema == nil {
		deps.MigrateSchema = migrateUp
	}
	if deps.Hasher == nil {
		deps.Hasher = auth.NewArgon2idHasher()
	}

	pool, err := deps.OpenPool(ctx, store.Options{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		Logger:          logger,
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open pool").Wrap(err)
	}

	if err := deps.MigrateSchema(cfg.Database.URL); err != nil {
		pool.Close()
		return nil, oops.Code("SCHEMA_FAILED").With("operation", "create schema").Wrap(err)
	}

	users := postgres.NewUserRepository(pool)
	history := postgres.NewHistoryRepository(pool)

	svc, err := auth.NewService(users, history, deps.Hasher,
		auth.WithLogger(logger.With("component", "auth")),
		auth.WithHistoryLimit(cfg.Auth.HistoryLimit),
	)
	if err != nil {
		pool.Close()
		return nil, oops.With("operation", "build auth service").Wrap(err)
	}

	compactor, err := auth.NewCompactor(history, cfg.Auth.HistoryLimit, logger.With("component", "compactor"))
	if err != nil {
		pool.Close()
		return nil, oops.With("operation", "build compactor").Wrap(err)
	}

	logger.InfoContext(ctx, "authledger initialized", "history_limit", cfg.Auth.HistoryLimit)
	return &App{
		Config:    cfg,
		Pool:      pool,
		Users:     users,
		History:   history,
		Auth:      svc,
		Compactor: compactor,
		logger:    logger,
	}, nil
}

func migrateUp(databaseURL string) (err error) {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return migrator.Up()
}

// Ready reports whether the database answers.
func (a *App) Ready(ctx context.Context) error {
	if err := a.Pool.Ping(ctx); err != nil {
		return oops.Code("DB_UNAVAILABLE").Wrap(err)
	}
	return nil
}

// PublicMessage renders err for end users according to
// auth.expose_store_errors.
func (a *App) PublicMessage(err error) string {
	return auth.PublicMessage(err, a.Config.Auth.ExposeStoreErrors)
}

// Close releases the pool. Calls in flight finish first.
func (a *App) Close() {
	a.Pool.Close()
	a.logger.Info("authledger closed")
}
