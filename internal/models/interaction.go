// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package models

import (
	"errors"
	"fmt"
	"time"
)

// Action is a user's reaction to an item.
type Action string

const (
	ActionSave Action = "save"
	ActionSkip Action = "skip"
	ActionOpen Action = "open"
)

// ErrInvalidAction is returned when an action string is not save, skip or open.
var ErrInvalidAction = errors.New("invalid action")

// ParseAction validates s as an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionSave, ActionSkip, ActionOpen:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// InteractionEvent is an immutable record of one reaction to one item.
// Events are appended once and never updated.
type InteractionEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	Action    Action    `json:"action"`
	DwellMs   int64     `json:"dwell_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackRequest is the body of POST /api/v1/feedback.
type FeedbackRequest struct {
	UserID  string `json:"user_id" validate:"required,max=128"`
	ItemID  int64  `json:"item_id" validate:"required,gt=0"`
	Action  string `json:"action" validate:"required,oneof=save skip open"`
	DwellMs int64  `json:"dwell_ms" validate:"gte=0"`
}

// EventWithCategory is an interaction joined with its item's category, the
// shape the learning engine aggregates over.
type EventWithCategory struct {
	InteractionEvent
	Category string
}
