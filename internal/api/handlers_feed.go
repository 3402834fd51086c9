// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/engagefeed/internal/feed"
	"github.com/tomtom215/engagefeed/internal/models"
)

// FeedQuery holds the query parameters of GET /api/v1/feed.
type FeedQuery struct {
	Limit    int    `json:"limit" validate:"min=1,max=1000"`
	Cursor   string `json:"cursor" validate:"omitempty,cursor"`
	Category string `json:"category" validate:"omitempty,category"`
}

// Feed returns one page of active items after the cursor.
//
// limit defaults to the configured page size. A limit above
// feed.max_page_size is a 400, never a silently shorter page: clients read
// a short page as the end of the feed. has_more is true when the page came
// back full; next_cursor is set whenever the page has items, so a client that reached
// the end can poll again later for newly appended items.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, ok := getIntParam(r, "limit", h.feedCfg.PageSize)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
		return
	}

	q := FeedQuery{
		Limit:    limit,
		Cursor:   r.URL.Query().Get("cursor"),
		Category: r.URL.Query().Get("category"),
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if q.Limit > h.feedCfg.MaxPageSize {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("limit must be at most %d", h.feedCfg.MaxPageSize), nil)
		return
	}

	afterID, err := feed.DecodeCursor(q.Cursor)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidCursor, "cursor is not valid", nil)
		return
	}

	items, err := h.deps.Feed.FetchPage(r.Context(), feed.PageRequest{
		AfterID:  afterID,
		Limit:    q.Limit,
		Category: q.Category,
	})
	if err != nil {
		if isClientCancel(r, err) {
			return
		}
		respondError(w, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load feed", err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}

	page := models.FeedPage{
		Items:   items,
		HasMore: len(items) == q.Limit,
	}
	if len(items) > 0 {
		next := feed.EncodeCursor(items[len(items)-1].ID)
		page.NextCursor = &next
	}

	respondSuccess(w, http.StatusOK, page, start)
}

// ClearFeedCache drops every cached feed page.
func (h *Handler) ClearFeedCache(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cleared := h.deps.Feed.ClearCache()
	respondSuccess(w, http.StatusOK, map[string]int{"cleared": cleared}, start)
}

// isClientCancel reports whether err came from the client going away.
func isClientCancel(r *http.Request, err error) bool {
	return r.Context().Err() != nil && errors.Is(err, r.Context().Err())
}
