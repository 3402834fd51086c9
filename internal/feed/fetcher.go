// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package feed implements the client-held feed session: a cursor-paginated
// window over the item store with single-flight loading and prefetch, plus
// the fetchers that back it (direct store access and the HTTP API).
package feed

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/engagefeed/internal/models"
)

// ErrInvalidCursor is returned when a cursor token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// PageRequest asks for up to Limit items after the item with id AfterID.
// AfterID 0 requests the first page.
type PageRequest struct {
	AfterID  int64
	Limit    int
	Category string
}

// Fetcher returns one page of items. A page shorter than the requested
// limit means the feed is exhausted.
type Fetcher interface {
	FetchPage(ctx context.Context, req PageRequest) ([]models.Item, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req PageRequest) ([]models.Item, error)

// FetchPage calls f.
func (f FetcherFunc) FetchPage(ctx context.Context, req PageRequest) ([]models.Item, error) {
	return f(ctx, req)
}

// EncodeCursor turns an item id into the opaque cursor token used on the wire.
func EncodeCursor(id int64) string {
	data, err := json.Marshal(models.FeedCursor{ID: id})
	if err != nil {
		// FeedCursor is a single int64 field; Marshal cannot fail.
		panic(fmt.Sprintf("encode cursor: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor token. The empty token decodes to 0.
func DecodeCursor(token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c models.FeedCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.ID < 0 {
		return 0, fmt.Errorf("%w: negative id", ErrInvalidCursor)
	}
	return c.ID, nil
}
