// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package recorder captures save/skip/open reactions and forwards them to a
// Sink without ever blocking the caller. Events go into a bounded queue
// drained by worker goroutines; a full queue drops the event, and sink
// failures are logged and counted but never retried.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
)

var (
	// ErrClosed is returned by Record after Close.
	ErrClosed = errors.New("recorder is closed")
	// ErrQueueFull is returned by Record when the event was dropped.
	ErrQueueFull = errors.New("recorder queue is full")
)

// Sink persists one interaction event.
type Sink interface {
	Submit(ctx context.Context, ev *models.InteractionEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev *models.InteractionEvent) error

// Submit calls f.
func (f SinkFunc) Submit(ctx context.Context, ev *models.InteractionEvent) error {
	return f(ctx, ev)
}

// Config tunes a Recorder.
type Config struct {
	UserID    string
	QueueSize int
	Workers   int
	// RatePerSecond caps sink submissions. Zero means unlimited.
	RatePerSecond float64
	SubmitTimeout time.Duration
}

// DefaultConfig returns the defaults used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		QueueSize:     256,
		Workers:       2,
		SubmitTimeout: 5 * time.Second,
	}
}

// Recorder is a fire-and-forget interaction recorder.
type Recorder struct {
	sink    Sink
	cfg     Config
	logger  zerolog.Logger
	limiter *rate.Limiter
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	queue  chan *models.InteractionEvent
	closed bool
}

// New creates a Recorder and starts its workers.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(sink Sink, cfg Config, logger zerolog.Logger) *Recorder {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = def.SubmitTimeout
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With().Str("component", "recorder").Logger(),
		limiter: rate.NewLimiter(limit, cfg.Workers),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan *models.InteractionEvent, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Record queues an interaction for submission and returns immediately.
// Negative dwell is recorded as 0. The returned error only reports whether
// the event was queued; callers that don't care can ignore it.
func (r *Recorder) Record(action models.Action, itemID, dwellMs int64) error {
	if _, err := models.ParseAction(string(action)); err != nil {
		return err
	}
	if dwellMs < 0 {
		dwellMs = 0
	}
	ev := &models.InteractionEvent{
		ID:        uuid.NewString(),
		UserID:    r.cfg.UserID,
		ItemID:    itemID,
		Action:    action,
		DwellMs:   dwellMs,
		Timestamp: r.now().UTC(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	select {
	case r.queue <- ev:
		metrics.RecorderQueueDepth.Set(float64(len(r.queue)))
		return nil
	default:
		metrics.RecorderEvents.WithLabelValues("dropped").Inc()
		r.logger.Warn().
			Int64("item_id", itemID).
			Str("action", string(action)).
			Msg("recorder queue full, dropping interaction")
		return ErrQueueFull
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for ev := range r.queue {
		metrics.RecorderQueueDepth.Set(float64(len(r.queue)))
		r.submit(ev)
	}
}

func (r *Recorder) submit(ev *models.InteractionEvent) {
	if err := r.limiter.Wait(r.ctx); err != nil {
		metrics.RecorderEvents.WithLabelValues("failed").Inc()
		r.logger.Debug().Err(err).Str("event_id", ev.ID).Msg("recorder stopped before submit")
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.SubmitTimeout)
	defer cancel()

	if err := r.sink.Submit(ctx, ev); err != nil {
		metrics.RecorderEvents.WithLabelValues("failed").Inc()
		r.logger.Warn().
			Err(err).
			Str("event_id", ev.ID).
			Int64("item_id", ev.ItemID).
			Str("action", string(ev.Action)).
			Msg("failed to record interaction")
		return
	}
	metrics.RecorderEvents.WithLabelValues("sent").Inc()
}

// Close stops accepting events and waits for queued events to drain. If ctx
// expires first, in-flight submissions are cancelled and the remaining
// events are dropped.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return fmt.Errorf("recorder drain: %w", ctx.Err())
	}
}
