// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
)

// PersistHandlerName is the router handler name of the persistence consumer.
const PersistHandlerName = "persist_interactions"

// InteractionStore is the append side of the interaction table.
type InteractionStore interface {
	InsertInteraction(ctx context.Context, ev *models.InteractionEvent) (bool, error)
}

// PersistHandler appends consumed interaction events to the store.
type PersistHandler struct {
	store  InteractionStore
	logger zerolog.Logger
}

// NewPersistHandler creates the consumer.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPersistHandler(store InteractionStore, logger zerolog.Logger) *PersistHandler {
	return &PersistHandler{
		store:  store,
		logger: logger.With().Str("component", "persist_handler").Logger(),
	}
}

// Handle implements message.NoPublishHandlerFunc. Malformed payloads are
// logged and acked since no retry can fix them; store errors are returned
// so the router retries.
func (h *PersistHandler) Handle(msg *message.Message) error {
	ev, err := UnmarshalInteraction(msg.Payload)
	if err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			metrics.FeedbackPersisted.WithLabelValues("invalid").Inc()
			h.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping invalid interaction message")
			return nil
		}
		return err
	}

	inserted, err := h.store.InsertInteraction(msg.Context(), ev)
	if err != nil {
		metrics.FeedbackPersisted.WithLabelValues("error").Inc()
		return fmt.Errorf("persist interaction %s: %w", ev.ID, err)
	}
	if !inserted {
		metrics.FeedbackPersisted.WithLabelValues("duplicate").Inc()
		h.logger.Debug().Str("event_id", ev.ID).Msg("interaction already persisted")
		return nil
	}
	metrics.FeedbackPersisted.WithLabelValues("inserted").Inc()
	return nil
}

// Register adds the handler to router, consuming topic from sub.
func (h *PersistHandler) Register(router *Router, topic string, sub message.Subscriber) {
	router.AddConsumerHandler(PersistHandlerName, topic, sub, h.Handle)
}
