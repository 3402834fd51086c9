// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package api

import (
	"net/http"
	"time"
)

// ExportDataset writes the training dataset and returns its manifest.
func (h *Handler) ExportDataset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Curator == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Dataset export is not configured", nil)
		return
	}

	manifest, err := h.deps.Curator.ExportDataset(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Dataset export failed", err)
		return
	}

	respondSuccess(w, http.StatusOK, manifest, start)
}
