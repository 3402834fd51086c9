// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package main implements feedctl, a terminal client for the engagefeed
// server: browse the feed with the prefetching session and recorder, and
// trigger or inspect learning and dataset export.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/engagefeed/internal/logging"
)

var (
	serverURL  string
	timeout    time.Duration
	outputJSON bool
	logLevel   string

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "feedctl",
	Short: "Terminal client for the engagefeed server",
	Long: `feedctl talks to a running engagefeed server over its HTTP API.

Examples:
  # Browse the feed, recording save/skip/open as you go
  feedctl browse --user alice

  # Run a learning pass over the last 500 interactions
  feedctl analyze --limit 500

  # Show the latest learning stats as JSON
  feedctl stats --json`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Config{
			Level:  logLevel,
			Format: "console",
			Output: cmd.ErrOrStderr(),
		})
	},
}

func init() {
	defaultServer := os.Getenv("ENGAGEFEED_URL")
	if defaultServer == "" {
		defaultServer = "http://127.0.0.1:8417"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "engagefeed server URL (env ENGAGEFEED_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}
