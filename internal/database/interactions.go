// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/engagefeed/internal/models"
)

// InsertInteraction appends an interaction event. Re-delivering an event
// with the same id is a no-op, so at-least-once transports stay append-only.
// It reports whether a row was written.
func (db *DB) InsertInteraction(ctx context.Context, ev *models.InteractionEvent) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	dwell := ev.DwellMs
	if dwell < 0 {
		dwell = 0
	}

	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO interaction_events (id, user_id, item_id, action, dwell_ms, event_time)
		VALUES (CAST(? AS UUID), ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		ev.ID, ev.UserID, ev.ItemID, string(ev.Action), dwell, ev.Timestamp.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert interaction %s: %w", ev.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// RecentInteractions returns up to limit of the most recent interaction
// events, newest first, each joined with its item's category. Events whose
// item is unknown get an empty category.
func (db *DB) RecentInteractions(ctx context.Context, limit int) ([]models.EventWithCategory, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT CAST(e.id AS VARCHAR), e.user_id, e.item_id, e.action, e.dwell_ms, e.event_time,
			COALESCE(i.category, '')
		FROM interaction_events e
		LEFT JOIN items i ON i.id = e.item_id
		ORDER BY e.event_time DESC, e.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer closeWithLog(rows, "interaction rows")

	var events []models.EventWithCategory
	for rows.Next() {
		var ev models.EventWithCategory
		var action string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.ItemID, &action, &ev.DwellMs, &ev.Timestamp, &ev.Category); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		ev.Action = models.Action(action)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}
	return events, nil
}

// CountInteractions returns the number of persisted interaction events.
func (db *DB) CountInteractions(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM interaction_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return n, nil
}
