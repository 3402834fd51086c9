// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

/*
Package api serves the engagefeed HTTP API on a chi router.

Endpoints:

	GET    /api/v1/feed                 cursor-paginated active items
	DELETE /api/v1/feed/cache           drop the feed page cache
	POST   /api/v1/feedback             accept one interaction event (202)
	GET    /api/v1/learning/stats       last published learning stats
	POST   /api/v1/learning/analyze     run an analysis pass now
	POST   /api/v1/dataset/export       write the training dataset now
	GET    /api/v1/health/live          liveness
	GET    /api/v1/health/ready         readiness (database ping)
	GET    /metrics                     Prometheus exposition

Every JSON response uses the models.APIResponse envelope. Feedback is not
written synchronously. The handler publishes the event to the event
transport and returns 202 once the publish succeeds, and a router consumer
appends it to the store. When the publisher is the write-ahead log
(internal/wal), 202 means the event is logged and will be delivered by
replay if the transport is down.
*/
package api
