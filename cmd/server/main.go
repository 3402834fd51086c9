// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/engagefeed/internal/api"
	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/curator"
	"github.com/tomtom215/engagefeed/internal/database"
	"github.com/tomtom215/engagefeed/internal/feed"
	"github.com/tomtom215/engagefeed/internal/learning"
	"github.com/tomtom215/engagefeed/internal/logging"
	"github.com/tomtom215/engagefeed/internal/state"
	"github.com/tomtom215/engagefeed/internal/supervisor"
	"github.com/tomtom215/engagefeed/internal/supervisor/services"
	"github.com/tomtom215/engagefeed/internal/wal"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

//nolint:gocyclo // sequential wiring of every component
func run() error {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("events_backend", cfg.Events.Backend).
		Str("environment", cfg.Server.Environment).
		Msg("Starting engagefeed")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	if cfg.Database.SeedDemo {
		n, err := db.SeedDemoItems(context.Background())
		if err != nil {
			return err
		}
		if n > 0 {
			logging.Info().Int("items", n).Msg("Seeded demo items")
		}
	}

	stateStore, err := state.Open(&cfg.State)
	if err != nil {
		return err
	}
	defer func() {
		if err := stateStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing state store")
		}
	}()

	eventComps, err := initEvents(cfg, db)
	if err != nil {
		return err
	}
	defer eventComps.Close()

	var publisher api.InteractionPublisher = eventComps.Publisher
	var durable *wal.DurablePublisher
	if cfg.WAL.Enabled {
		walLog, err := wal.Open(&cfg.WAL)
		if err != nil {
			return err
		}
		defer func() {
			if err := walLog.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing WAL")
			}
		}()
		durable = wal.NewDurablePublisher(walLog, eventComps.Publisher, logging.WithComponent("wal"))
		publisher = durable
		logging.Info().
			Str("path", cfg.WAL.Path).
			Int64("pending", walLog.Stats().PendingCount).
			Msg("Write-ahead log opened")
	}

	engine := learning.NewEngine(db, stateStore, logging.WithComponent("learning"))
	if err := engine.Restore(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Could not restore learning stats; starting empty")
	}

	var exporter *curator.Curator
	if cfg.Curator.OutputPath != "" {
		exporter, err = curator.New(db, stateStore, curator.Config{
			OutputPath:        cfg.Curator.OutputPath,
			TrustedProvenance: cfg.Curator.TrustedProvenance,
		}, logging.WithComponent("curator"))
		if err != nil {
			return err
		}
	}

	feedSource := feed.NewStoreFetcher(db, cfg.Cache.Capacity, cfg.Cache.TTL)
	deps := api.Dependencies{
		Feed:      feedSource,
		Items:     db,
		Publisher: publisher,
		Learning:  engine,
		DB:        db,
	}
	if exporter != nil {
		deps.Curator = exporter
	}
	handler := api.NewHandler(deps, cfg.Feed, cfg.Learning.Limit)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.Timeout,
	})
	if err != nil {
		return err
	}

	tree.AddEventsService(services.NewEventRouterService(eventComps.buildRouter, logging.WithComponent("events")))

	if durable != nil {
		// No startup pass: a gochannel transport drops messages published
		// before the router has subscribed.
		tree.AddJobService(services.NewPeriodicJobService("wal-replay", func(ctx context.Context) error {
			_, err := durable.ReplayPending(ctx)
			return err
		}, services.PeriodicJobConfig{
			Interval: cfg.WAL.RetryInterval,
			Timeout:  cfg.WAL.RetryInterval,
		}, logging.WithComponent("scheduler")))
	}

	if cfg.Learning.Enabled {
		limit := cfg.Learning.Limit
		tree.AddJobService(services.NewPeriodicJobService("learning-scheduler", func(ctx context.Context) error {
			_, err := engine.AnalyzePastInteractions(ctx, limit)
			return err
		}, services.PeriodicJobConfig{
			Interval:     cfg.Learning.Interval,
			RunOnStartup: cfg.Learning.RunOnStartup,
			Timeout:      cfg.Learning.Interval,
		}, logging.WithComponent("scheduler")))
	}

	if cfg.Curator.Enabled && exporter != nil {
		tree.AddJobService(services.NewPeriodicJobService("curator-scheduler", func(ctx context.Context) error {
			_, err := exporter.ExportDataset(ctx)
			return err
		}, services.PeriodicJobConfig{
			Interval: cfg.Curator.Interval,
			Timeout:  cfg.Curator.Interval,
		}, logging.WithComponent("scheduler")))
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Server listening")

	err = tree.Serve(ctx)
	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info().Msg("Server stopped")
	return nil
}
