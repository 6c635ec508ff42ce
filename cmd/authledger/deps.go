// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/authledger/authledger/internal/app"
	"github.com/authledger/authledger/internal/auth"
	"github.com/authledger/authledger/internal/config"
	"github.com/authledger/authledger/internal/store"
)

// AuthService is the part of auth.Service the commands call.
type AuthService interface {
	RegisterUser(ctx context.Context, in auth.RegisterInput) error
	VerifyCredentials(ctx context.Context, in auth.VerifyInput) (*auth.UserProfile, error)
}

// UserDeleter removes users.
type UserDeleter interface {
	DeleteUser(ctx context.Context, username string) error
}

// HistoryCompactor trims over-cap ledgers.
type HistoryCompactor interface {
	RunOnce(ctx context.Context) (auth.CompactionResult, error)
	Run(ctx context.Context, interval time.Duration) error
}

// Runtime is an opened core as seen by the commands.
type Runtime struct {
	Auth            AuthService
	Users           UserDeleter
	Compactor       HistoryCompactor
	Ready           func(ctx context.Context) error
	PublicMessage   func(err error) string
	RegisterMetrics func(reg prometheus.Registerer)
	Close           func()
}

// Migrator is the part of store.Migrator the migrate command drives.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// Deps contains injectable dependencies for the CLI. Nil fields use their
// default implementations.
type Deps struct {
	// Open initializes the core. Default: app.Initialize.
	Open func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error)

	// NewMigrator opens a migrator. Default: store.NewMigrator.
	NewMigrator func(databaseURL string) (Migrator, error)

	// Getenv reads the environment. Default: os.Getenv.
	Getenv func(string) string

	// IsTerminal and ReadPassword back hidden password prompts.
	// Defaults: term.IsTerminal and term.ReadPassword.
	IsTerminal   func(fd int) bool
	ReadPassword func(fd int) ([]byte, error)
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.Open == nil {
		out.Open = openApp
	}
	if out.NewMigrator == nil {
		out.NewMigrator = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	if out.IsTerminal == nil {
		out.IsTerminal = term.IsTerminal
	}
	if out.ReadPassword == nil {
		out.ReadPassword = term.ReadPassword
	}
	return &out
}

func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	a, err := app.Initialize(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Auth:          a.Auth,
		Users:         a.Users,
		Compactor:     a.Compactor,
		Ready:         a.Ready,
		PublicMessage: a.PublicMessage,
		RegisterMetrics: func(reg prometheus.Registerer) {
			auth.RegisterMetrics(reg)
			store.RegisterPoolMetrics(reg, a.Pool)
		},
		Close: a.Close,
	}, nil
}
