// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roster-sync",
	Short: "Reconciles an LMS roster against an identity provider",
	Long: `roster-sync runs the phased sync engine that reconciles a
learning-management system's users, courses, and enrolments against an
external identity provider's roster, either as a one-shot ad-hoc run or
as a long-running Sync API server.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
}
