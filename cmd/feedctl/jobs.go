// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/engagefeed/internal/models"
)

var analyzeLimit int

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)

	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "Most recent interactions to analyze (0 = server default)")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the latest learning stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd.Context(), newAPIClient(serverURL, timeout), cmd.OutOrStdout(), outputJSON)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a learning analysis pass now",
	Long: `Run a learning analysis pass over the most recent interactions and print
the resulting stats. Eligible training records are tagged on the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), newAPIClient(serverURL, timeout), cmd.OutOrStdout(), analyzeLimit, outputJSON)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the training dataset CSV now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), newAPIClient(serverURL, timeout), cmd.OutOrStdout(), outputJSON)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server readiness",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var status map[string]interface{}
		if err := newAPIClient(serverURL, timeout).call(cmd.Context(), http.MethodGet, "/api/v1/health/ready", &status); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), status)
	},
}

func runStats(ctx context.Context, c *apiClient, w io.Writer, asJSON bool) error {
	var stats models.LearningStats
	if err := c.call(ctx, http.MethodGet, "/api/v1/learning/stats", &stats); err != nil {
		return err
	}
	return printStats(w, stats, asJSON)
}

func runAnalyze(ctx context.Context, c *apiClient, w io.Writer, limit int, asJSON bool) error {
	path := "/api/v1/learning/analyze"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var stats models.LearningStats
	if err := c.call(ctx, http.MethodPost, path, &stats); err != nil {
		return err
	}
	return printStats(w, stats, asJSON)
}

func runExport(ctx context.Context, c *apiClient, w io.Writer, asJSON bool) error {
	var manifest models.ExportManifest
	if err := c.call(ctx, http.MethodPost, "/api/v1/dataset/export", &manifest); err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, manifest)
	}
	_, err := fmt.Fprintf(w, "wrote %d rows (%d bytes) to %s\nsha256 %s\n",
		manifest.Rows, manifest.Bytes, manifest.Path, manifest.SHA256)
	return err
}

func printStats(w io.Writer, stats models.LearningStats, asJSON bool) error {
	if asJSON {
		return printJSON(w, stats)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	lastRun := "never"
	if !stats.LastRunAt.IsZero() {
		lastRun = stats.LastRunAt.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(tw, "Last run\t%s\n", lastRun)
	fmt.Fprintf(tw, "Events analyzed\t%d\n", stats.TotalEventsAnalyzed)
	fmt.Fprintf(tw, "Saves / skips / opens\t%d / %d / %d\n",
		stats.ActionCounts.Save, stats.ActionCounts.Skip, stats.ActionCounts.Open)
	fmt.Fprintf(tw, "Conversion rate\t%.3f\n", stats.ConversionRate)
	fmt.Fprintf(tw, "Acceptance rate\t%.3f\n", stats.AcceptanceRate)
	fmt.Fprintf(tw, "Training records\t%d (%d eligible)\n", stats.TrainingRecordsAnalyzed, stats.EligibleRecords)

	categories := make([]string, 0, len(stats.AverageDwellByCategory))
	for c := range stats.AverageDwellByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(tw, "Avg dwell [%s]\t%.0f ms\n", c, stats.AverageDwellByCategory[c])
	}
	return tw.Flush()
}
