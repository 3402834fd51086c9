// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomtom215/engagefeed/internal/feed"
	"github.com/tomtom215/engagefeed/internal/logging"
	"github.com/tomtom215/engagefeed/internal/models"
	"github.com/tomtom215/engagefeed/internal/recorder"
)

const defaultUserID = "feedctl"

type browseOptions struct {
	server            string
	userID            string
	category          string
	pageSize          int
	prefetchThreshold int
	timeout           time.Duration
	drainTimeout      time.Duration
}

var browseOpts = browseOptions{
	pageSize:          feed.DefaultPageSize,
	prefetchThreshold: feed.DefaultPrefetchThreshold,
	drainTimeout:      5 * time.Second,
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().StringVar(&browseOpts.userID, "user", defaultUserID, "User ID attached to recorded interactions")
	browseCmd.Flags().StringVar(&browseOpts.category, "category", "", "Only show items in this category")
	browseCmd.Flags().IntVar(&browseOpts.pageSize, "page-size", feed.DefaultPageSize, "Items per page")
	browseCmd.Flags().IntVar(&browseOpts.prefetchThreshold, "prefetch", feed.DefaultPrefetchThreshold, "Prefetch when this many items remain")
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the feed interactively",
	Long: `Show feed items one at a time and record what you do with them.

Keys (followed by Enter):
  s  save the item and move on
  k  skip the item and move on
  o  open the item's details (records an open, stays on the item)
  r  reload the feed from the top
  q  quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := browseOpts
		opts.server = serverURL
		opts.timeout = timeout
		return runBrowse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
	},
}

// runBrowse drives a feed session from line-oriented commands on in. It
// returns when in is exhausted, the user quits, or the feed ends; recorded
// interactions are drained before it returns.
func runBrowse(ctx context.Context, in io.Reader, out io.Writer, opts browseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.WithComponent("feedctl")
	if opts.userID == "" {
		opts.userID = defaultUserID
	}

	fetcherCfg := feed.DefaultHTTPFetcherConfig(opts.server)
	if opts.timeout > 0 {
		fetcherCfg.Timeout = opts.timeout
	}
	fetcher, err := feed.NewHTTPFetcher(fetcherCfg, logger)
	if err != nil {
		return fmt.Errorf("create feed fetcher: %w", err)
	}

	sink, err := recorder.NewHTTPSink(opts.server, fetcherCfg.Timeout, 5, logger)
	if err != nil {
		return fmt.Errorf("create interaction sink: %w", err)
	}
	rec := recorder.New(sink, recorder.Config{UserID: opts.userID}, logger)
	defer func() {
		drainTimeout := opts.drainTimeout
		if drainTimeout <= 0 {
			drainTimeout = 5 * time.Second
		}
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := rec.Close(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("some interactions were not delivered")
		}
	}()

	session := feed.NewSession(fetcher, feed.SessionConfig{
		PageSize:          opts.pageSize,
		PrefetchThreshold: opts.prefetchThreshold,
		Category:          opts.category,
		FetchTimeout:      fetcherCfg.Timeout,
	}, logger)
	defer session.Close()

	session.Load(ctx, true)

	b := &browser{
		session: session,
		rec:     rec,
		clock:   recorder.NewDwellClock(),
		out:     out,
		logger:  logger,
	}
	return b.loop(ctx, bufio.NewScanner(in))
}

type browser struct {
	session *feed.Session
	rec     *recorder.Recorder
	clock   *recorder.DwellClock
	out     io.Writer
	logger  zerolog.Logger
	shown   int64
}

func (b *browser) loop(ctx context.Context, scanner *bufio.Scanner) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := b.next(ctx)
		if err != nil {
			return err
		}
		if item == nil {
			fmt.Fprintln(b.out, "-- end of feed --")
			return nil
		}

		if b.shown != item.ID {
			b.render(item)
			b.clock.Start(item.ID)
			b.shown = item.ID
		}
		fmt.Fprint(b.out, "[s]ave [k]skip [o]pen [r]eload [q]uit > ")

		if !scanner.Scan() {
			fmt.Fprintln(b.out)
			return scanner.Err()
		}

		switch cmd := strings.ToLower(strings.TrimSpace(scanner.Text())); cmd {
		case "s", "save":
			b.dispose(models.ActionSave, item)
		case "k", "skip":
			b.dispose(models.ActionSkip, item)
		case "o", "open":
			b.record(models.ActionOpen, item.ID, b.clock.Stop(item.ID))
			b.clock.Start(item.ID)
			fmt.Fprintf(b.out, "\n%s\n\n", item.Description)
		case "r", "reload":
			b.clock.Stop(item.ID)
			b.shown = 0
			b.session.Reset()
			b.session.Load(ctx, true)
		case "q", "quit":
			b.clock.Stop(item.ID)
			return nil
		case "":
		default:
			fmt.Fprintf(b.out, "unknown command %q\n", cmd)
		}
	}
}

// next returns the current item, loading synchronously when the window is
// exhausted but the server has more. A nil item means the feed ended.
func (b *browser) next(ctx context.Context) (*models.Item, error) {
	for attempt := 0; ; attempt++ {
		if item, ok := b.session.Current(); ok {
			return &item, nil
		}

		snap := b.session.Snapshot()
		switch {
		case snap.Loading:
			b.session.Wait()
			continue
		case snap.Err != nil && attempt > 0:
			return nil, fmt.Errorf("load feed: %w", snap.Err)
		case !snap.HasMore && snap.Err == nil:
			return nil, nil
		}
		if attempt > 1 {
			return nil, errors.New("load feed: no progress")
		}
		b.session.Load(ctx, len(snap.Items) == 0)
	}
}

func (b *browser) dispose(action models.Action, item *models.Item) {
	b.record(action, item.ID, b.clock.Stop(item.ID))
	b.session.Advance(item.ID)
}

func (b *browser) record(action models.Action, itemID, dwellMs int64) {
	if err := b.rec.Record(action, itemID, dwellMs); err != nil {
		b.logger.Warn().Err(err).Str("action", string(action)).Int64("item_id", itemID).Msg("interaction dropped")
	}
}

func (b *browser) render(item *models.Item) {
	fmt.Fprintf(b.out, "\n#%d  %s\n", item.ID, item.Title)
	fmt.Fprintf(b.out, "    %s | budget %.0f-%.0f | quality %.2f\n",
		item.Category, item.BudgetMin, item.BudgetMax, item.QualityScore)
}
