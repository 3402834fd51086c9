// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package events

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/engagefeed/internal/logging"
)

// NewLogger returns a Watermill logger that writes through the global
// zerolog logger.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger("watermill"))
}
