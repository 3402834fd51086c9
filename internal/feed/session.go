// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
)

const (
	// DefaultPageSize is the number of items requested per page.
	DefaultPageSize = 10
	// DefaultPrefetchThreshold is how close to the end of the window
	// Advance must get before it prefetches the next page.
	DefaultPrefetchThreshold = 2
)

// SessionConfig tunes a Session.
type SessionConfig struct {
	PageSize          int
	PrefetchThreshold int
	Category          string
	// FetchTimeout bounds background prefetches. Zero means no timeout.
	FetchTimeout time.Duration
}

// State is a copy of a session's state, safe to read without locking.
type State struct {
	Items        []models.Item
	Cursor       int64
	CurrentIndex int
	HasMore      bool
	Loading      bool
	Err          error
	Generation   uint64
}

// Session is one user's window over the feed.
//
// The mutex guards state only for check-and-set and for applying a fetch
// result; it is never held across a fetch. The loading flag is what keeps
// fetches single-flight. Every fetch records the generation it started in,
// and a result arriving after Reset bumped the generation is discarded.
type Session struct {
	fetcher Fetcher
	cfg     SessionConfig
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	items        []models.Item
	seen         map[int64]struct{}
	cursor       int64
	currentIndex int
	hasMore      bool
	loading      bool
	err          error
	generation   uint64
}

// NewSession creates an empty session. Call Load(ctx, true) to fetch the
// first page and Close when done.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSession(fetcher Fetcher, cfg SessionConfig, logger zerolog.Logger) *Session {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PrefetchThreshold < 0 {
		cfg.PrefetchThreshold = DefaultPrefetchThreshold
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With().Str("component", "feed_session").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		seen:    make(map[int64]struct{}),
		hasMore: true,
	}
}

// Load fetches a page. With reset it fetches the first page and, on
// success, replaces the window and rewinds currentIndex to 0. Without reset
// it fetches the page after the cursor and appends it.
//
// Load is a no-op while another load is in flight. Failures are recorded in
// the session's Err and leave items and currentIndex untouched.
func (s *Session) Load(ctx context.Context, reset bool) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return
	}
	s.loading = true
	gen := s.generation
	req := PageRequest{AfterID: s.cursor, Limit: s.cfg.PageSize, Category: s.cfg.Category}
	if reset {
		req.AfterID = 0
	}
	s.mu.Unlock()

	page, err := s.fetcher.FetchPage(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		// Reset ran while we were fetching; it already cleared loading.
		metrics.FeedSessionFetches.WithLabelValues("stale").Inc()
		s.logger.Debug().Uint64("generation", gen).Msg("discarding stale page")
		return
	}
	s.loading = false

	if err != nil {
		s.err = err
		metrics.FeedSessionFetches.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Int64("cursor", req.AfterID).Msg("feed page fetch failed")
		return
	}

	if reset {
		s.items = nil
		s.seen = make(map[int64]struct{}, len(page))
		s.cursor = 0
		s.currentIndex = 0
	}
	s.appendPage(page)
	s.hasMore = len(page) == s.cfg.PageSize
	s.err = nil
	metrics.FeedSessionFetches.WithLabelValues("success").Inc()
}

// appendPage adds items not already in the window and moves the cursor to
// the highest id seen. Must be called with mu held.
func (s *Session) appendPage(page []models.Item) {
	dropped := 0
	for _, it := range page {
		if _, dup := s.seen[it.ID]; dup {
			dropped++
			continue
		}
		s.seen[it.ID] = struct{}{}
		s.items = append(s.items, it)
		if it.ID > s.cursor {
			s.cursor = it.ID
		}
	}
	if dropped > 0 {
		s.logger.Debug().Int("dropped", dropped).Msg("dropped duplicate items from page")
	}
}

// Advance moves past the current item once the user has acted on it. The
// call is ignored when itemID isn't the current item, which makes a repeated
// dispose of the same item harmless. When the remaining window is within the
// prefetch threshold and more pages exist, the next page is loaded in the
// background. Advance never blocks on that load. It reports whether the
// index moved.
func (s *Session) Advance(itemID int64) bool {
	s.mu.Lock()
	advanced := false
	if s.currentIndex < len(s.items) && s.items[s.currentIndex].ID == itemID {
		s.currentIndex++
		advanced = true
	}
	prefetch := len(s.items)-s.currentIndex <= s.cfg.PrefetchThreshold && s.hasMore && !s.loading
	s.mu.Unlock()

	if prefetch {
		metrics.FeedPrefetches.Inc()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ctx := s.ctx
			if s.cfg.FetchTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
				defer cancel()
			}
			s.Load(ctx, false)
		}()
	}
	return advanced
}

// Reset returns the session to its initial state. Any fetch still in
// flight will be discarded when it returns.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.items = nil
	s.seen = make(map[int64]struct{})
	s.cursor = 0
	s.currentIndex = 0
	s.hasMore = true
	s.loading = false
	s.err = nil
}

// SetCategory switches the category filter and resets the session.
func (s *Session) SetCategory(category string) {
	s.mu.Lock()
	s.cfg.Category = category
	s.mu.Unlock()
	s.Reset()
}

// Current returns the item at currentIndex, if any.
func (s *Session) Current() (models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentIndex >= len(s.items) {
		return models.Item{}, false
	}
	return s.items[s.currentIndex], true
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.Item, len(s.items))
	copy(items, s.items)
	return State{
		Items:        items,
		Cursor:       s.cursor,
		CurrentIndex: s.currentIndex,
		HasMore:      s.hasMore,
		Loading:      s.loading,
		Err:          s.err,
		Generation:   s.generation,
	}
}

// Err returns the last fetch error, nil after a successful fetch.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until background prefetches started so far have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels background prefetches and waits for them to exit.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}
