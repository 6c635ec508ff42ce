// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package main

import (
	"encoding/json"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/authledger/authledger/internal/auth"
)

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register, verify and delete users",
	}
	cmd.AddCommand(newUserRegisterCmd(c))
	cmd.AddCommand(newUserVerifyCmd(c))
	cmd.AddCommand(newUserDeleteCmd(c))
	return cmd
}

func newUserRegisterCmd(c *cli) *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new user",
		Long:  "Register a new user. The password is read twice from the terminal, or as two lines from standard input.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompt := newPasswordPrompt(cmd.InOrStdin(), cmd.ErrOrStderr(), c.deps)
			password, err := prompt.read("Password: ")
			if err != nil {
				return err
			}
			confirmation, err := prompt.read("Confirm password: ")
			if err != nil {
				return err
			}

			rt, _, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			err = rt.Auth.RegisterUser(cmd.Context(), auth.RegisterInput{
				Username:             username,
				Password:             password,
				PasswordConfirmation: confirmation,
				Email:                email,
			})
			if err != nil {
				return publicError(rt, err)
			}
			cmd.Printf("registered %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to register")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	_ = cmd.MarkFlagRequired("username") //nolint:errcheck // flag defined above
	return cmd
}

func newUserVerifyCmd(c *cli) *cobra.Command {
	var username, userAgent, output string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a password and record the login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output = strings.ToLower(output)
			if output != "json" && output != "yaml" {
				return oops.Code("INVALID_OUTPUT").With("output", output).Errorf("output must be json or yaml")
			}

			password, err := newPasswordPrompt(cmd.InOrStdin(), cmd.ErrOrStderr(), c.deps).read("Password: ")
			if err != nil {
				return err
			}

			rt, _, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			profile, err := rt.Auth.VerifyCredentials(cmd.Context(), auth.VerifyInput{
				Username:  username,
				Password:  password,
				UserAgent: userAgent,
			})
			if err != nil {
				return publicError(rt, err)
			}
			return writeProfile(cmd, profile, output)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to verify")
	cmd.Flags().StringVar(&userAgent, "user-agent", "authledger-cli", "user agent recorded with the login")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json or yaml)")
	_ = cmd.MarkFlagRequired("username") //nolint:errcheck // flag defined above
	return cmd
}

func writeProfile(cmd *cobra.Command, profile *auth.UserProfile, output string) error {
	out := cmd.OutOrStdout()
	if output == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(profile); err != nil {
			return oops.Code("OUTPUT_FAILED").With("output", output).Wrap(err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(profile); err != nil {
		return oops.Code("OUTPUT_FAILED").With("output", output).Wrap(err)
	}
	return nil
}

func newUserDeleteCmd(c *cli) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user and its login history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, _, logger, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Users.DeleteUser(cmd.Context(), username); err != nil {
				return publicError(rt, err)
			}
			logger.InfoContext(cmd.Context(), "user deleted", "username", username)
			cmd.Printf("deleted %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to delete")
	_ = cmd.MarkFlagRequired("username") //nolint:errcheck // flag defined above
	return cmd
}
