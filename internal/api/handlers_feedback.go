// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/engagefeed/internal/logging"
	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
)

// FeedbackAccepted is the body of a 202 feedback response.
type FeedbackAccepted struct {
	ID string `json:"id"`
}

// Feedback accepts one interaction event and publishes it for persistence.
//
// The event ID is the request's X-Request-ID when that is a UUID, so a
// client retrying with the same request ID produces the same event and the
// store drops the duplicate.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.FeedbackRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Request body must be a JSON feedback object", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	action, err := models.ParseAction(req.Action)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	if h.deps.Items != nil {
		exists, err := h.deps.Items.ItemExists(r.Context(), req.ItemID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to check item", err)
			return
		}
		if !exists {
			respondError(w, http.StatusNotFound, ErrCodeNotFound, "Item not found", nil)
			return
		}
	}

	ev := &models.InteractionEvent{
		ID:        eventID(r),
		UserID:    req.UserID,
		ItemID:    req.ItemID,
		Action:    action,
		DwellMs:   req.DwellMs,
		Timestamp: time.Now().UTC(),
	}

	if err := h.deps.Publisher.PublishInteraction(r.Context(), ev); err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Feedback could not be queued", err)
		return
	}
	metrics.FeedbackAccepted.Inc()

	logging.Ctx(r.Context()).Debug().
		Str("event_id", ev.ID).
		Int64("item_id", ev.ItemID).
		Str("action", string(ev.Action)).
		Msg("feedback accepted")

	respondSuccess(w, http.StatusAccepted, FeedbackAccepted{ID: ev.ID}, start)
}

func eventID(r *http.Request) string {
	if id := logging.RequestIDFromContext(r.Context()); id != "" {
		if parsed, err := uuid.Parse(id); err == nil {
			return parsed.String()
		}
	}
	return uuid.NewString()
}
