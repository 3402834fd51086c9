// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package models holds the data types shared across Engagefeed: feed items,
// interaction events, training records, learning statistics and the HTTP
// response envelope.
package models

import "time"

// ItemStatus is the soft lifecycle state of an Item.
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusInactive ItemStatus = "inactive"
)

// Item is a recommendable content unit served by the feed. Items are owned by
// the content-ingestion side; the feed only reads them.
type Item struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	BudgetMin    float64    `json:"budget_min"`
	BudgetMax    float64    `json:"budget_max"`
	QualityScore float64    `json:"quality_score"` // [0,1]
	CreatedAt    time.Time  `json:"created_at"`
	Status       ItemStatus `json:"status"`
}

// FeedPage is one page of the feed as served over HTTP.
//
//	{
//	  "items": [{"id": 11, "title": "..."}],
//	  "next_cursor": "eyJpZCI6MTF9",
//	  "has_more": false
//	}
type FeedPage struct {
	Items      []Item  `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// FeedCursor is the decoded form of the opaque feed cursor: the id of the
// last item on the previous page. It travels as base64 JSON so clients treat
// it as a token rather than doing arithmetic on it.
type FeedCursor struct {
	ID int64 `json:"id"`
}
