// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

/*
Package middleware provides the chi-compatible HTTP middleware used by the
engagefeed API server.

Components:

  - RequestID: reuses or generates an X-Request-ID and stores it in the
    request context so logging.Ctx picks it up
  - PrometheusMetrics: request count, latency and in-flight instrumentation
    labelled by chi route pattern
  - AccessLog: one structured zerolog line per completed request
  - SecurityHeaders: conservative response headers for JSON endpoints

Middleware Stack:

The router installs the components in this order:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

Route patterns rather than raw paths are used as metric labels so that
query strings and path parameters cannot inflate label cardinality.
*/
package middleware
