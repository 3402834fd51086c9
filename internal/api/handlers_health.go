// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package api

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 2 * time.Second

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status            string  `json:"status"`
	DatabaseConnected bool    `json:"database_connected"`
	Uptime            float64 `json:"uptime_seconds"`
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, HealthStatus{
		Status: "ok",
		Uptime: time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady reports whether the database answers a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	connected := true
	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		connected = h.deps.DB.Ping(ctx) == nil
		cancel()
	}

	status := HealthStatus{
		Status:            "ready",
		DatabaseConnected: connected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	code := http.StatusOK
	if !connected {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondSuccess(w, code, status, start)
}
