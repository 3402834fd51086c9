// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package events carries interaction events from the feedback endpoint to
// the database through Watermill.
//
// The transport is either an in-process GoChannel (single binary, the
// default) or NATS JetStream, optionally served by an embedded nats-server.
// A Watermill router runs the persistence consumer with panic recovery and
// retry middleware. Inserts are keyed by the event UUID and ignore
// conflicts, so redelivery after a retry or a JetStream redelivery cannot
// create duplicate rows.
//
// Message flow:
//
//	POST /api/v1/feedback -> Publisher.PublishInteraction -> topic
//	topic -> Router -> PersistHandler -> database.InsertInteraction
package events
