// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/engagefeed/internal/learning"
)

// LearningStats returns the last published learning stats.
func (h *Handler) LearningStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Learning == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Learning engine is not configured", nil)
		return
	}
	respondSuccess(w, http.StatusOK, h.deps.Learning.GetLearningStats(), start)
}

// AnalyzeInteractions runs one analysis pass over the most recent events.
// limit defaults to learning.limit.
func (h *Handler) AnalyzeInteractions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Learning == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Learning engine is not configured", nil)
		return
	}

	limit, ok := getIntParam(r, "limit", h.learningLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
		return
	}

	stats, err := h.deps.Learning.AnalyzePastInteractions(r.Context(), limit)
	if err != nil {
		if errors.Is(err, learning.ErrInvalidLimit) {
			respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
			return
		}
		if isClientCancel(r, err) {
			return
		}
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Learning analysis failed", err)
		return
	}

	respondSuccess(w, http.StatusOK, stats, start)
}
