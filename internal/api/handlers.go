// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package api

import (
	"context"
	"time"

	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/feed"
	"github.com/tomtom215/engagefeed/internal/models"
)

// FeedSource serves feed pages and owns the page cache.
type FeedSource interface {
	feed.Fetcher
	ClearCache() int
}

// ItemChecker reports whether an item exists.
type ItemChecker interface {
	ItemExists(ctx context.Context, id int64) (bool, error)
}

// InteractionPublisher hands accepted feedback to the event transport.
type InteractionPublisher interface {
	PublishInteraction(ctx context.Context, ev *models.InteractionEvent) error
}

// LearningService runs and reports learning analysis.
type LearningService interface {
	AnalyzePastInteractions(ctx context.Context, limit int) (models.LearningStats, error)
	GetLearningStats() models.LearningStats
}

// DatasetExporter writes the training dataset.
type DatasetExporter interface {
	ExportDataset(ctx context.Context) (*models.ExportManifest, error)
}

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies groups the services a Handler calls. Items, Learning,
// Curator and DB may be nil; their endpoints then answer 503 or skip the
// check.
type Dependencies struct {
	Feed      FeedSource
	Items     ItemChecker
	Publisher InteractionPublisher
	Learning  LearningService
	Curator   DatasetExporter
	DB        Pinger
}

// Handler holds the HTTP handlers.
type Handler struct {
	deps          Dependencies
	feedCfg       config.FeedConfig
	learningLimit int
	startTime     time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies, feedCfg config.FeedConfig, learningLimit int) *Handler {
	if feedCfg.PageSize <= 0 {
		feedCfg.PageSize = feed.DefaultPageSize
	}
	if feedCfg.MaxPageSize < feedCfg.PageSize {
		feedCfg.MaxPageSize = feedCfg.PageSize
	}
	if learningLimit <= 0 {
		learningLimit = 1000
	}
	return &Handler{
		deps:          deps,
		feedCfg:       feedCfg,
		learningLimit: learningLimit,
		startTime:     time.Now(),
	}
}
