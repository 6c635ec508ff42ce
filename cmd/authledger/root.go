// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authledger/authledger/internal/config"
	"github.com/authledger/authledger/internal/logging"
)

// cli carries state shared by every subcommand.
type cli struct {
	deps       *Deps
	configFile string
}

// NewRootCmd creates the root command. A nil deps uses the defaults.
func NewRootCmd(deps *Deps) *cobra.Command {
	c := &cli{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "authledger",
		Short: "authledger - user credentials with a bounded login history",
		Long: `authledger registers users, verifies their passwords against salted
argon2id hashes and keeps the most recent logins of every user.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&c.configFile, "config", "", "config file path (YAML)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateCmd(c))
	cmd.AddCommand(newUserCmd(c))
	cmd.AddCommand(newHistoryCmd(c))
	cmd.AddCommand(newServeCmd(c))

	return cmd
}

// setup loads configuration and builds the logger for cmd.
func (c *cli) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.LoadOptions{
		File:   c.configFile,
		Flags:  cmd.Flags(),
		Getenv: c.deps.Getenv,
	})
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.Setup("authledger", version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("operation", "set up logging").Wrap(err)
	}
	return cfg, logger, nil
}

// open loads configuration and initializes the core.
func (c *cli) open(cmd *cobra.Command) (*Runtime, *config.Config, *slog.Logger, error) {
	cfg, logger, err := c.setup(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	rt, err := c.deps.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, nil, oops.Code("INIT_FAILED").With("operation", "initialize").Wrap(err)
	}
	return rt, cfg, logger, nil
}

// userError shows the end-user rendering of err while keeping err in the
// chain for errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func publicError(rt *Runtime, err error) error {
	return &userError{msg: rt.PublicMessage(err), err: err}
}
