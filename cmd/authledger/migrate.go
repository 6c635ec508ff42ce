// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package main

import (
	"fmt"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authledger/authledger/internal/store"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(newMigrateUpCmd(c))
	cmd.AddCommand(newMigrateDownCmd(c))
	cmd.AddCommand(newMigrateStatusCmd(c))
	cmd.AddCommand(newMigrateForceCmd(c))
	return cmd
}

func newMigrateUpCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withMigrator(cmd, func(m Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printStatus(cmd, m)
			})
		},
	}
}

func newMigrateDownCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Drop the schema, including all users and login history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").
					Errorf("migrate down deletes every user and login; rerun with --yes")
			}
			return c.withMigrator(cmd, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("schema dropped")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	return cmd
}

func newMigrateStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withMigrator(cmd, func(m Migrator) error {
				return printStatus(cmd, m)
			})
		},
	}
}

func newMigrateForceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it (dirty schema recovery)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("version", args[0]).Errorf("version must be an integer")
			}
			return c.withMigrator(cmd, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("forced version %d\n", version)
				return nil
			})
		},
	}
}

func (c *cli) withMigrator(cmd *cobra.Command, fn func(Migrator) error) error {
	cfg, logger, err := c.setup(cmd)
	if err != nil {
		return err
	}

	m, err := c.deps.NewMigrator(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	return fn(m)
}

func printStatus(cmd *cobra.Command, m Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	dirty := ""
	if st.Dirty {
		dirty = " (dirty)"
	}
	fmt.Fprintf(out, "version: %d%s\n", st.Version, dirty)
	for _, v := range st.Applied {
		fmt.Fprintf(out, "  applied  %s\n", migrationLabel(v))
	}
	for _, v := range st.Pending {
		fmt.Fprintf(out, "  pending  %s\n", migrationLabel(v))
	}
	return nil
}

func migrationLabel(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", version)
	}
	return name
}
