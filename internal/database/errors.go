// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/engagefeed/internal/logging"
)

// ErrInvalidLimit is returned for non-positive page or batch limits.
var ErrInvalidLimit = errors.New("limit must be positive")

// closeWithLog closes a resource and logs a failure at warn level.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() //nolint:errcheck // best-effort cleanup
	}
}

// rollbackQuietly rolls back tx, ignoring the error from an already-finished transaction.
func rollbackQuietly(tx interface{ Rollback() error }) {
	_ = tx.Rollback() //nolint:errcheck // no-op after Commit
}
