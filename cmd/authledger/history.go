// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package main

import (
	"github.com/spf13/cobra"
)

func newHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Maintain login history",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "compact",
		Short: "Trim every user's history down to the configured limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, cfg, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.Compactor.RunOnce(cmd.Context())
			cmd.Printf("compacted %d users, deleted %d entries (limit %d)\n",
				result.Users, result.Deleted, cfg.Auth.HistoryLimit)
			return err
		},
	})
	return cmd
}
