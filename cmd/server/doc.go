// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package main is the engagefeed API server.
//
// # Startup Order
//
//  1. Configuration: defaults, optional YAML file, environment (koanf v2)
//  2. Logging: zerolog, with an slog bridge for suture and Watermill
//  3. DuckDB: schema migrations, optional demo items
//  4. Badger state store: learning stats and export manifests
//  5. Event transport: in-process GoChannel, or NATS JetStream (optionally
//     an embedded nats-server)
//  6. Write-ahead log (wal.enabled): feedback is logged before publishing
//  7. Learning engine (stats restored from the state store) and curator
//  8. Supervisor tree: event router, WAL replay, schedulers, HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops every
// service (the HTTP server drains for up to server.timeout), then the
// WAL, transport, embedded NATS server, state store and database are closed
// in reverse order of opening.
//
// # Example Usage
//
//	DUCKDB_PATH=/data/engagefeed.duckdb \
//	EVENTS_BACKEND=nats NATS_EMBEDDED=true \
//	./engagefeed-server
package main
