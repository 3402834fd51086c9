// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/database"
	"github.com/tomtom215/engagefeed/internal/events"
	"github.com/tomtom215/engagefeed/internal/logging"
	"github.com/tomtom215/engagefeed/internal/supervisor/services"
)

// EventComponents holds the event transport and what runs on it.
type EventComponents struct {
	Server    *events.EmbeddedServer
	PubSub    *events.PubSub
	Publisher *events.Publisher
	topic     string
	cfg       config.EventsConfig
	db        *database.DB
}

// initEvents opens the transport. With the NATS backend and
// events.embedded_server set, an in-process nats-server is started first
// and the client connects to it.
func initEvents(cfg *config.Config, db *database.DB) (*EventComponents, error) {
	comps := &EventComponents{topic: cfg.Events.Topic, cfg: cfg.Events, db: db}

	url := ""
	if cfg.Events.Backend == events.BackendNATS && cfg.Events.EmbeddedServer {
		embeddedCfg, err := events.EmbeddedConfigFromURL(cfg.Events.NATSURL, cfg.Events.StoreDir)
		if err != nil {
			return nil, err
		}
		srv, err := events.StartEmbeddedServer(embeddedCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded nats server: %w", err)
		}
		comps.Server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Str("store_dir", embeddedCfg.StoreDir).Msg("Embedded NATS server started")
	}

	ps, err := events.NewPubSub(&cfg.Events, url, events.NewLogger())
	if err != nil {
		comps.shutdownServer()
		return nil, fmt.Errorf("open event transport: %w", err)
	}
	comps.PubSub = ps
	comps.Publisher = events.NewPublisher(ps.Publisher, cfg.Events.Topic)

	logging.Info().
		Str("backend", ps.Backend).
		Str("topic", cfg.Events.Topic).
		Msg("Event transport ready")
	return comps, nil
}

// buildRouter returns a fresh router with the persistence consumer
// registered. Called on every (re)start of the router service.
func (c *EventComponents) buildRouter() (services.EventRouter, error) {
	routerCfg := events.DefaultRouterConfig()
	if c.cfg.RouterCloseTimeout > 0 {
		routerCfg.CloseTimeout = c.cfg.RouterCloseTimeout
	}
	routerCfg.RetryMaxRetries = c.cfg.RetryCount
	if c.cfg.RetryInitialInterval > 0 {
		routerCfg.RetryInitialInterval = c.cfg.RetryInitialInterval
	}

	router, err := events.NewRouter(routerCfg, events.NewLogger())
	if err != nil {
		return nil, err
	}
	events.NewPersistHandler(c.db, logging.WithComponent("persist")).
		Register(router, c.topic, c.PubSub.Subscriber)
	return router, nil
}

// Close releases the transport, then the embedded server.
func (c *EventComponents) Close() {
	c.Publisher.Close()
	if err := c.PubSub.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing event transport")
	}
	c.shutdownServer()
}

func (c *EventComponents) shutdownServer() {
	if c.Server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Error shutting down embedded NATS server")
	}
}
