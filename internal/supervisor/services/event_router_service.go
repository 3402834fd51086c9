// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// EventRouter is the lifecycle of a Watermill-backed router.
// Satisfied by *events.Router.
type EventRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// RouterFactory builds a router with its handlers registered.
type RouterFactory func() (EventRouter, error)

// EventRouterService runs the event consumer router. A Watermill router
// cannot be restarted once it has stopped, so every Serve builds a new one.
type EventRouterService struct {
	build  RouterFactory
	logger zerolog.Logger
	name   string
}

// NewEventRouterService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEventRouterService(build RouterFactory, logger zerolog.Logger) *EventRouterService {
	return &EventRouterService{
		build:  build,
		logger: logger.With().Str("service", "event-router").Logger(),
		name:   "event-router",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on shutdown and a
// wrapped error if the router stops on its own.
func (s *EventRouterService) Serve(ctx context.Context) error {
	router, err := s.build()
	if err != nil {
		return fmt.Errorf("build event router: %w", err)
	}

	start := time.Now()
	s.logger.Info().Msg("event router starting")
	err = router.Run(ctx)

	if ctx.Err() != nil {
		s.logger.Info().Dur("uptime", time.Since(start)).Msg("event router stopped")
		return ctx.Err()
	}
	if closeErr := router.Close(); closeErr != nil {
		s.logger.Warn().Err(closeErr).Msg("event router close failed")
	}
	if err != nil {
		return fmt.Errorf("event router stopped: %w", err)
	}
	return fmt.Errorf("event router stopped unexpectedly")
}

// String implements fmt.Stringer.
func (s *EventRouterService) String() string {
	return s.name
}
