// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

/*
Package wal provides a BadgerDB write-ahead log in front of interaction
publishing.

Accepted feedback is written to the log (fsync when SyncWrites is set)
before it is handed to the event transport. A successful publish confirms
the entry and removes it. A failed publish leaves it pending, and the replay
job publishes it again later with exponential backoff.

# Flow

	POST /api/v1/feedback
	        |
	DurablePublisher.PublishInteraction
	        |-- BadgerWAL.Write          (pending:<event id>)
	        |-- events.Publisher         (Watermill)
	        '-- BadgerWAL.Confirm        (entry deleted)

	replay job (supervised, periodic)
	        '-- DurablePublisher.ReplayPending
	                |-- expired / max retries -> failed:<event id>
	                |-- backoff not elapsed   -> skipped
	                '-- publish -> Confirm, or RecordAttempt on error

# Keys

Entries are keyed by the interaction event id. The API derives that id from
the request id, so a client retry of the same feedback overwrites its own
pending entry instead of adding a second one, and the interaction store's
ON CONFLICT clause drops any duplicate that does get published twice.

# Concurrency

The request path and the replay job can see the same pending entry. An
in-process claim (TryClaim/Release) keeps them from publishing it at the
same time. The log is owned by a single server process, so no durable
lease is needed.
*/
package wal
