// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
)

// maxBackoff caps the delay between replay attempts of one entry.
const maxBackoff = time.Hour

// Publisher is the transport entries are delivered to.
type Publisher interface {
	PublishInteraction(ctx context.Context, ev *models.InteractionEvent) error
}

// ReplayResult summarizes one ReplayPending pass.
type ReplayResult struct {
	Pending   int
	Published int
	Failed    int
	Skipped   int
	Abandoned int
	Duration  time.Duration
}

// DurablePublisher logs each interaction before publishing it and confirms
// it afterwards. It satisfies the same PublishInteraction contract as the
// transport it wraps.
type DurablePublisher struct {
	wal    *BadgerWAL
	next   Publisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewDurablePublisher wraps next with w.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewDurablePublisher(w *BadgerWAL, next Publisher, logger zerolog.Logger) *DurablePublisher {
	return &DurablePublisher{
		wal:    w,
		next:   next,
		logger: logger.With().Str("component", "wal").Logger(),
		now:    time.Now,
	}
}

// PublishInteraction writes ev to the log, then publishes it. Once the
// write succeeds the event is accepted: a publish failure is logged and
// left for ReplayPending, and nil is returned. Only a failed write is an
// error.
func (p *DurablePublisher) PublishInteraction(ctx context.Context, ev *models.InteractionEvent) error {
	id, err := p.wal.Write(ctx, ev)
	if err != nil {
		metrics.WALOperations.WithLabelValues("write", "error").Inc()
		return fmt.Errorf("wal write: %w", err)
	}
	metrics.WALOperations.WithLabelValues("write", "success").Inc()

	if !p.wal.TryClaim(id) {
		// A replay is publishing this id right now.
		return nil
	}
	defer p.wal.Release(id)

	if err := p.next.PublishInteraction(ctx, ev); err != nil {
		metrics.WALOperations.WithLabelValues("publish", "error").Inc()
		p.logger.Warn().Err(err).Str("entry_id", id).Msg("Publish failed; entry kept for replay")
		if recErr := p.wal.RecordAttempt(ctx, id, err); recErr != nil {
			p.logger.Error().Err(recErr).Str("entry_id", id).Msg("Failed to record publish attempt")
		}
		return nil
	}
	metrics.WALOperations.WithLabelValues("publish", "success").Inc()

	if err := p.wal.Confirm(ctx, id); err != nil && !errors.Is(err, ErrEntryNotFound) {
		p.logger.Error().Err(err).Str("entry_id", id).Msg("Failed to confirm published entry")
	}
	return nil
}

// ReplayPending publishes pending entries whose backoff has elapsed.
// Entries older than the TTL or past the retry limit are abandoned. It is
// safe to run repeatedly and concurrently with PublishInteraction.
func (p *DurablePublisher) ReplayPending(ctx context.Context) (*ReplayResult, error) {
	start := p.now()
	result := &ReplayResult{}
	defer func() {
		result.Duration = p.now().Sub(start)
		metrics.WALPendingEntries.Set(float64(result.Pending - result.Published - result.Abandoned))
	}()

	entries, err := p.wal.Pending(ctx)
	if err != nil {
		return result, fmt.Errorf("list pending entries: %w", err)
	}
	result.Pending = len(entries)
	if len(entries) == 0 {
		return result, nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		p.replayEntry(ctx, entry, result)
	}

	if result.Published > 0 || result.Failed > 0 || result.Abandoned > 0 {
		p.logger.Info().
			Int("pending", result.Pending).
			Int("published", result.Published).
			Int("failed", result.Failed).
			Int("skipped", result.Skipped).
			Int("abandoned", result.Abandoned).
			Msg("WAL replay complete")
	}
	return result, nil
}

func (p *DurablePublisher) replayEntry(ctx context.Context, entry *Entry, result *ReplayResult) {
	if !p.wal.TryClaim(entry.ID) {
		result.Skipped++
		return
	}
	defer p.wal.Release(entry.ID)

	cfg := p.wal.Config()
	now := p.now()

	var reason string
	switch {
	case cfg.EntryTTL > 0 && now.Sub(entry.CreatedAt) > cfg.EntryTTL:
		reason = fmt.Sprintf("expired after %s", cfg.EntryTTL)
	case cfg.MaxRetries > 0 && entry.Attempts >= cfg.MaxRetries:
		reason = fmt.Sprintf("gave up after %d attempts: %s", entry.Attempts, entry.LastError)
	}
	if reason != "" {
		if err := p.wal.Abandon(ctx, entry.ID, reason); err != nil {
			p.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to abandon entry")
			result.Failed++
			return
		}
		metrics.WALOperations.WithLabelValues("abandon", "success").Inc()
		p.logger.Warn().Str("entry_id", entry.ID).Str("reason", reason).Msg("Abandoned WAL entry")
		result.Abandoned++
		return
	}

	if !readyForRetry(entry, cfg.RetryInterval, now) {
		result.Skipped++
		return
	}

	ev := entry.Event
	if err := p.next.PublishInteraction(ctx, &ev); err != nil {
		metrics.WALOperations.WithLabelValues("replay", "error").Inc()
		if recErr := p.wal.RecordAttempt(ctx, entry.ID, err); recErr != nil {
			p.logger.Error().Err(recErr).Str("entry_id", entry.ID).Msg("Failed to record publish attempt")
		}
		result.Failed++
		return
	}
	metrics.WALOperations.WithLabelValues("replay", "success").Inc()

	if err := p.wal.Confirm(ctx, entry.ID); err != nil && !errors.Is(err, ErrEntryNotFound) {
		p.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to confirm replayed entry")
	}
	result.Published++
}

// readyForRetry applies exponential backoff: an entry that failed n times
// waits base * 2^(n-1), capped at maxBackoff. Entries that were never
// attempted (left behind by a crash) are always ready.
func readyForRetry(entry *Entry, base time.Duration, now time.Time) bool {
	if entry.Attempts == 0 || base <= 0 {
		return true
	}
	delay := base
	for i := 1; i < entry.Attempts && delay < maxBackoff; i++ {
		delay *= 2
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return !now.Before(entry.LastAttemptAt.Add(delay))
}
