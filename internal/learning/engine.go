// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package learning aggregates persisted interaction events into learning
// statistics and tags the training records they validate as eligible for
// learning.
//
// Every run recomputes the statistics from scratch over the most recent
// events and replaces the published snapshot only when the whole run,
// tagging included, succeeded. Tags are insert-only, so repeated runs over
// the same data leave the tag table unchanged.
package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
	"github.com/tomtom215/engagefeed/internal/state"
)

// ErrInvalidLimit is returned for a non-positive analysis limit.
var ErrInvalidLimit = errors.New("analysis limit must be positive")

// UnknownCategory buckets dwell for events whose item has no category.
const UnknownCategory = "unknown"

// Store is the slice of the database the engine reads and tags.
type Store interface {
	RecentInteractions(ctx context.Context, limit int) ([]models.EventWithCategory, error)
	TrainingRecordsForItems(ctx context.Context, itemIDs []int64) ([]models.TrainingRecord, error)
	LearningTags(ctx context.Context, tag string) ([]models.LearningTag, error)
	TagRecords(ctx context.Context, recordIDs []int64, tag string, taggedAt time.Time) (int, error)
}

// StatsStore persists the published snapshot across restarts.
type StatsStore interface {
	SaveLearningStats(ctx context.Context, stats *models.LearningStats) error
	LoadLearningStats(ctx context.Context) (*models.LearningStats, error)
}

// Engine runs learning analyses. It is safe for concurrent use; runs are
// serialized and readers always see the last fully published snapshot.
type Engine struct {
	store     Store
	snapshots StatsStore
	logger    zerolog.Logger
	now       func() time.Time

	runMu sync.Mutex

	mu    sync.RWMutex
	stats models.LearningStats
}

// NewEngine creates an engine. stateStore may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(store Store, stateStore StatsStore, logger zerolog.Logger) *Engine {
	return &Engine{
		store:     store,
		snapshots: stateStore,
		logger:    logger.With().Str("component", "learning").Logger(),
		now:       time.Now,
	}
}

// Restore loads the persisted snapshot, if any, as the published stats.
// A missing snapshot is not an error.
func (e *Engine) Restore(ctx context.Context) error {
	if e.snapshots == nil {
		return nil
	}
	stats, err := e.snapshots.LoadLearningStats(ctx)
	if errors.Is(err, state.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load learning stats: %w", err)
	}
	e.mu.Lock()
	e.stats = stats.Clone()
	e.mu.Unlock()
	return nil
}

// GetLearningStats returns a copy of the last published stats. Before the
// first successful run it returns zero stats with a zero LastRunAt.
func (e *Engine) GetLearningStats() models.LearningStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats.Clone()
}

// AnalyzePastInteractions analyzes up to limit of the most recent events,
// publishes the resulting stats and tags eligible training records. On error
// nothing is published and the previous stats stay visible.
func (e *Engine) AnalyzePastInteractions(ctx context.Context, limit int) (models.LearningStats, error) {
	if limit <= 0 {
		return models.LearningStats{}, ErrInvalidLimit
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := time.Now()
	stats, tagged, err := e.run(ctx, limit)
	metrics.RecordLearningRun(time.Since(start), stats.TotalEventsAnalyzed, tagged, err)
	if err != nil {
		e.logger.Error().Err(err).Int("limit", limit).Msg("learning analysis failed")
		return models.LearningStats{}, err
	}

	e.mu.Lock()
	e.stats = stats.Clone()
	e.mu.Unlock()

	if e.snapshots != nil {
		if err := e.snapshots.SaveLearningStats(ctx, &stats); err != nil {
			e.logger.Warn().Err(err).Msg("failed to persist learning stats")
		}
	}

	e.logger.Info().
		Int("events", stats.TotalEventsAnalyzed).
		Int("records", stats.TrainingRecordsAnalyzed).
		Int("eligible", stats.EligibleRecords).
		Int("newly_tagged", tagged).
		Dur("duration", time.Since(start)).
		Msg("learning analysis complete")
	return stats, nil
}

func (e *Engine) run(ctx context.Context, limit int) (models.LearningStats, int, error) {
	var (
		events   []models.EventWithCategory
		existing []models.LearningTag
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = e.store.RecentInteractions(gctx, limit)
		if err != nil {
			return fmt.Errorf("read interactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		existing, err = e.store.LearningTags(gctx, models.LearningEligibleTag)
		if err != nil {
			return fmt.Errorf("read learning tags: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.LearningStats{}, 0, err
	}

	stats, saved := aggregateEvents(events)

	records, err := e.store.TrainingRecordsForItems(ctx, itemIDs(events))
	if err != nil {
		return models.LearningStats{}, 0, fmt.Errorf("read training records: %w", err)
	}

	eligible, accepted := classifyRecords(records, saved)
	stats.TrainingRecordsAnalyzed = len(records)
	stats.EligibleRecords = len(eligible)
	if len(records) > 0 {
		stats.AcceptanceRate = float64(accepted) / float64(len(records))
	}

	already := make(map[int64]struct{}, len(existing))
	for _, t := range existing {
		already[t.RecordID] = struct{}{}
	}
	var toTag []int64
	for _, id := range eligible {
		if _, ok := already[id]; !ok {
			toTag = append(toTag, id)
		}
	}

	now := e.now().UTC()
	tagged, err := e.store.TagRecords(ctx, toTag, models.LearningEligibleTag, now)
	if err != nil {
		return models.LearningStats{}, 0, fmt.Errorf("tag eligible records: %w", err)
	}

	stats.LastRunAt = now
	return stats, tagged, nil
}

// aggregateEvents computes the event-side statistics and returns the set of
// items that received a save.
func aggregateEvents(events []models.EventWithCategory) (models.LearningStats, map[int64]bool) {
	stats := models.LearningStats{
		TotalEventsAnalyzed:    len(events),
		AverageDwellByCategory: make(map[string]float64),
	}
	saved := make(map[int64]bool)

	type acc struct {
		sum   int64
		count int64
	}
	dwell := make(map[string]*acc)

	for _, ev := range events {
		switch ev.Action {
		case models.ActionSave:
			stats.ActionCounts.Save++
			saved[ev.ItemID] = true
		case models.ActionSkip:
			stats.ActionCounts.Skip++
		case models.ActionOpen:
			stats.ActionCounts.Open++
		}

		cat := ev.Category
		if cat == "" {
			cat = UnknownCategory
		}
		a, ok := dwell[cat]
		if !ok {
			a = &acc{}
			dwell[cat] = a
		}
		a.sum += ev.DwellMs
		a.count++
	}

	for cat, a := range dwell {
		stats.AverageDwellByCategory[cat] = float64(a.sum) / float64(a.count)
	}
	if len(events) > 0 {
		stats.ConversionRate = float64(stats.ActionCounts.Save) / float64(len(events))
	}
	return stats, saved
}

// classifyRecords returns the ids of learning-eligible records, ascending,
// and the number of accepted records. A record is eligible when it allows
// training and was either accepted upstream or its item was saved.
func classifyRecords(records []models.TrainingRecord, saved map[int64]bool) (eligible []int64, accepted int) {
	for _, r := range records {
		if r.Accepted {
			accepted++
		}
		if !r.AllowTraining {
			continue
		}
		if r.Accepted || (r.ItemID != nil && saved[*r.ItemID]) {
			eligible = append(eligible, r.ID)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i] < eligible[j] })
	return eligible, accepted
}

func itemIDs(events []models.EventWithCategory) []int64 {
	seen := make(map[int64]struct{}, len(events))
	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev.ItemID]; ok {
			continue
		}
		seen[ev.ItemID] = struct{}{}
		ids = append(ids, ev.ItemID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
