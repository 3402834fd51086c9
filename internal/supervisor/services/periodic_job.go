// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Job is one run of a scheduled batch task.
type Job func(ctx context.Context) error

// PeriodicJobConfig holds the schedule of a PeriodicJobService.
type PeriodicJobConfig struct {
	// Interval between runs. Must be positive.
	Interval time.Duration

	// RunOnStartup runs the job once as soon as the service starts.
	RunOnStartup bool

	// Timeout bounds a single run. Zero means the run is bounded only by
	// the service context.
	Timeout time.Duration
}

// PeriodicJobService runs a Job on a ticker. Runs never overlap: a tick
// that arrives while a run is in progress is dropped by the ticker.
type PeriodicJobService struct {
	name   string
	job    Job
	config PeriodicJobConfig
	logger zerolog.Logger

	runs     atomic.Int64
	failures atomic.Int64
}

// NewPeriodicJobService creates a scheduled job service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPeriodicJobService(name string, job Job, cfg PeriodicJobConfig, logger zerolog.Logger) *PeriodicJobService {
	return &PeriodicJobService{
		name:   name,
		job:    job,
		config: cfg,
		logger: logger.With().Str("service", name).Logger(),
	}
}

// Serve implements suture.Service.
func (s *PeriodicJobService) Serve(ctx context.Context) error {
	if s.config.Interval <= 0 {
		return fmt.Errorf("%s: interval must be positive, got %v", s.name, s.config.Interval)
	}

	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Msg("scheduler starting")

	if s.config.RunOnStartup {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *PeriodicJobService) run(ctx context.Context) {
	runCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	s.runs.Add(1)
	err := s.job(runCtx)
	switch {
	case err == nil:
		s.logger.Debug().Dur("duration", time.Since(start)).Msg("scheduled run complete")
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// shutting down
	default:
		s.failures.Add(1)
		s.logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("scheduled run failed")
	}
}

// Runs returns how many runs have started.
func (s *PeriodicJobService) Runs() int64 { return s.runs.Load() }

// Failures returns how many runs returned an error.
func (s *PeriodicJobService) Failures() int64 { return s.failures.Load() }

// String implements fmt.Stringer.
func (s *PeriodicJobService) String() string {
	return s.name
}
