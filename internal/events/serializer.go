// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package events

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/engagefeed/internal/models"
)

// ErrInvalidEvent marks a payload that can never be persisted. The consumer
// acks these instead of retrying them.
var ErrInvalidEvent = errors.New("invalid interaction event")

// ValidateInteraction checks the fields every persisted event must carry.
func ValidateInteraction(ev *models.InteractionEvent) error {
	if _, err := uuid.Parse(ev.ID); err != nil {
		return fmt.Errorf("%w: id %q is not a uuid", ErrInvalidEvent, ev.ID)
	}
	if ev.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidEvent)
	}
	if ev.ItemID <= 0 {
		return fmt.Errorf("%w: item_id must be positive", ErrInvalidEvent)
	}
	if _, err := models.ParseAction(string(ev.Action)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.DwellMs < 0 {
		return fmt.Errorf("%w: dwell_ms must be >= 0", ErrInvalidEvent)
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}
	return nil
}

// MarshalInteraction validates and encodes an event.
func MarshalInteraction(ev *models.InteractionEvent) ([]byte, error) {
	if err := ValidateInteraction(ev); err != nil {
		return nil, err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal interaction: %w", err)
	}
	return data, nil
}

// UnmarshalInteraction decodes and validates an event.
func UnmarshalInteraction(data []byte) (*models.InteractionEvent, error) {
	var ev models.InteractionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ValidateInteraction(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
