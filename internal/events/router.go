// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// RouterConfig holds configuration for the Watermill router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
}

// DefaultRouterConfig returns production defaults for the router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     30 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// Router wraps the Watermill router with recovery and retry middleware.
type Router struct {
	router  *message.Router
	logger  watermill.LoggerAdapter
	running atomic.Bool
}

// NewRouter creates a router. Middleware runs outer to inner:
//  1. Recoverer turns handler panics into errors
//  2. Retry re-runs failed handlers with exponential backoff
//
// A message that still fails after retries is nacked and redelivered by the
// transport.
func NewRouter(cfg RouterConfig, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)

	if cfg.RetryMaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      cfg.RetryMaxRetries,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
			Multiplier:      cfg.RetryMultiplier,
			Logger:          logger,
		}
		wmRouter.AddMiddleware(retry.Middleware)
	}

	return &Router{router: wmRouter, logger: logger}, nil
}

// AddConsumerHandler registers a handler that produces no output messages.
func (r *Router) AddConsumerHandler(name, topic string, sub message.Subscriber, handler message.NoPublishHandlerFunc) {
	r.router.AddConsumerHandler(name, topic, sub, handler)
}

// Run starts the router and blocks until ctx is cancelled or Close is called.
func (r *Router) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)
	return r.router.Run(ctx)
}

// Running returns a channel that is closed once all handlers are running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether Run is in progress.
func (r *Router) IsRunning() bool {
	return r.running.Load()
}

// Close stops the router, waiting up to CloseTimeout for in-flight handlers.
func (r *Router) Close() error {
	return r.router.Close()
}
