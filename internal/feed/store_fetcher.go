// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/engagefeed/internal/cache"
	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
)

// ItemStore is the read side of the item store that StoreFetcher needs.
type ItemStore interface {
	ItemsAfter(ctx context.Context, afterID int64, limit int, category string) ([]models.Item, error)
}

type pageKey struct {
	afterID  int64
	limit    int
	category string
}

// StoreFetcher serves pages straight from the item store, with an optional
// page cache in front of it.
//
// Only full pages are cached. A short page is the tail of the feed and can
// grow as new items are appended, so it is always read from the store.
// Items are append-only, so a full page never changes except through status
// flips; those become visible once the entry expires or ClearCache runs.
type StoreFetcher struct {
	store ItemStore
	pages *cache.LRU[pageKey, []models.Item]
}

// NewStoreFetcher creates a fetcher over store. A capacity of 0 disables
// the page cache.
func NewStoreFetcher(store ItemStore, capacity int, ttl time.Duration) *StoreFetcher {
	f := &StoreFetcher{store: store}
	if capacity > 0 {
		f.pages = cache.NewLRU[pageKey, []models.Item](capacity, ttl)
	}
	return f
}

// FetchPage implements Fetcher.
func (f *StoreFetcher) FetchPage(ctx context.Context, req PageRequest) ([]models.Item, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("page limit must be positive, got %d", req.Limit)
	}
	key := pageKey{afterID: req.AfterID, limit: req.Limit, category: req.Category}

	if f.pages != nil {
		if page, ok := f.pages.Get(key); ok {
			metrics.FeedPagesServed.WithLabelValues("cache").Inc()
			return clonePage(page), nil
		}
	}

	page, err := f.store.ItemsAfter(ctx, req.AfterID, req.Limit, req.Category)
	if err != nil {
		return nil, fmt.Errorf("fetch items after %d: %w", req.AfterID, err)
	}
	metrics.FeedPagesServed.WithLabelValues("store").Inc()

	if f.pages != nil && len(page) == req.Limit {
		f.pages.Add(key, clonePage(page))
		metrics.FeedPageCacheEntries.Set(float64(f.pages.Len()))
	}
	return page, nil
}

// ClearCache drops every cached page and returns how many were removed.
func (f *StoreFetcher) ClearCache() int {
	if f.pages == nil {
		return 0
	}
	n := f.pages.Clear()
	metrics.FeedPageCacheEntries.Set(0)
	return n
}

// CacheStats reports page cache statistics. ok is false when caching is off.
func (f *StoreFetcher) CacheStats() (stats cache.Stats, ok bool) {
	if f.pages == nil {
		return cache.Stats{}, false
	}
	return f.pages.Stats(), true
}

func clonePage(page []models.Item) []models.Item {
	out := make([]models.Item, len(page))
	copy(out, page)
	return out
}
