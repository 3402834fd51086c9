// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package models

import "time"

// APIResponse is the envelope used by every JSON endpoint.
//
// Success:
//
//	{"status": "success", "data": {...}, "metadata": {"timestamp": "...", "query_time_ms": 3}}
//
// Error:
//
//	{"status": "error", "error": {"code": "VALIDATION_ERROR", "message": "..."}, "metadata": {...}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing and cache information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a machine-readable error body.
//
// Codes in use: VALIDATION_ERROR, INVALID_CURSOR, DATABASE_ERROR,
// LEARNING_ERROR, EXPORT_ERROR, PUBLISH_ERROR, RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
