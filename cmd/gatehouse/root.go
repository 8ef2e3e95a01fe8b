// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Gatehouse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Gatehouse - a minimal user-authentication service",
		Long: `Gatehouse registers users, validates credentials, issues and destroys
opaque session tokens, and supports password reset via single-use tokens.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Fall back to the XDG config file when no --config is given.
	cmd.PersistentPreRun = func(*cobra.Command, []string) {
		if configFile == "" {
			configFile = xdg.DefaultConfigFile()
		}
	}

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
