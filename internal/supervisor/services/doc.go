// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

/*
Package services adapts engagefeed components to suture's Serve pattern.

  - HTTPServerService: ListenAndServe/Shutdown to Serve, with a bounded
    graceful drain
  - EventRouterService: builds a fresh Watermill router on every start and
    runs it until the context ends, so a restart after a crash gets a clean
    router
  - PeriodicJobService: runs a job on a ticker, optionally once at startup;
    used for learning analysis and dataset export

Job failures are logged and the loop keeps its schedule. Only failures to
start, or a crashed HTTP listener, are returned to the supervisor.
*/
package services
