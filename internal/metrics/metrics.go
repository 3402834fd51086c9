// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package metrics defines the Prometheus collectors for Engagefeed. All
// collectors register with the default registry and are served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engagefeed_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagefeed_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Feed
	FeedPagesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_feed_pages_served_total",
			Help: "Feed pages served by the item store fetcher",
		},
		[]string{"source"}, // "store", "cache"
	)

	FeedPageCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagefeed_feed_page_cache_entries",
			Help: "Current number of cached feed pages",
		},
	)

	FeedSessionFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_feed_session_fetches_total",
			Help: "Feed session page fetches by outcome",
		},
		[]string{"result"}, // "success", "error", "stale"
	)

	FeedPrefetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagefeed_feed_prefetches_total",
			Help: "Prefetches triggered by advancing near the end of the window",
		},
	)

	// Interaction recording (client side)
	RecorderEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_recorder_events_total",
			Help: "Interaction events handled by the recorder by outcome",
		},
		[]string{"outcome"}, // "sent", "dropped", "failed"
	)

	RecorderQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagefeed_recorder_queue_depth",
			Help: "Interaction events waiting in the recorder queue",
		},
	)

	// Feedback ingestion (server side)
	FeedbackAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagefeed_feedback_accepted_total",
			Help: "Feedback requests accepted and published",
		},
	)

	FeedbackPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_feedback_persisted_total",
			Help: "Feedback messages handled by the persistence consumer",
		},
		[]string{"result"}, // "inserted", "duplicate", "invalid", "error"
	)

	// Learning
	LearningRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_learning_runs_total",
			Help: "Learning analysis runs by result",
		},
		[]string{"result"}, // "success", "error", "skipped"
	)

	LearningRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engagefeed_learning_run_duration_seconds",
			Help:    "Duration of learning analysis runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	LearningEventsAnalyzed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagefeed_learning_events_analyzed",
			Help: "Events analyzed by the last successful learning run",
		},
	)

	LearningTagsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engagefeed_learning_tags_written_total",
			Help: "New learning-eligible tags written to training records",
		},
	)

	// Dataset export
	DatasetExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_dataset_exports_total",
			Help: "Dataset exports by result",
		},
		[]string{"result"}, // "success", "error"
	)

	DatasetExportRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagefeed_dataset_export_rows",
			Help: "Rows written by the last successful dataset export",
		},
	)

	// Event transport
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_events_published_total",
			Help: "Messages published to the event transport by result",
		},
		[]string{"topic", "result"},
	)

	// Write-ahead log
	WALOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagefeed_wal_operations_total",
			Help: "Write-ahead log operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	WALPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engagefeed_wal_pending_entries",
			Help: "Interactions logged but not yet delivered, as of the last replay",
		},
	)
)

// RecordAPIRequest records a completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordLearningRun records one learning analysis run.
func RecordLearningRun(duration time.Duration, eventsAnalyzed, tagsWritten int, err error) {
	if err != nil {
		LearningRuns.WithLabelValues("error").Inc()
		return
	}
	LearningRuns.WithLabelValues("success").Inc()
	LearningRunDuration.Observe(duration.Seconds())
	LearningEventsAnalyzed.Set(float64(eventsAnalyzed))
	LearningTagsWritten.Add(float64(tagsWritten))
}

// RecordDatasetExport records one dataset export.
func RecordDatasetExport(rows int, err error) {
	if err != nil {
		DatasetExports.WithLabelValues("error").Inc()
		return
	}
	DatasetExports.WithLabelValues("success").Inc()
	DatasetExportRows.Set(float64(rows))
}

// RecordPublish records a publish attempt on topic.
func RecordPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}
