// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/engagefeed/internal/models"
)

// ItemsAfter returns up to limit active items with id > afterID in ascending
// id order, optionally restricted to one category. afterID 0 starts from the
// beginning.
//
// Pages are keyed by id alone, so an item inserted after a page was served
// always lands beyond the cursor and can never re-surface on an earlier page.
func (db *DB) ItemsAfter(ctx context.Context, afterID int64, limit int, category string) ([]models.Item, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, title, description, category, budget_min, budget_max,
			quality_score, created_at, status
		FROM items
		WHERE status = 'active' AND id > ?`
	args := []interface{}{afterID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += `
		ORDER BY id ASC
		LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer closeWithLog(rows, "item rows")

	items := make([]models.Item, 0, limit)
	for rows.Next() {
		var it models.Item
		var status string
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.Category,
			&it.BudgetMin, &it.BudgetMax, &it.QualityScore, &it.CreatedAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.Status = models.ItemStatus(status)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// InsertItem appends an item and returns its assigned id. Items normally
// arrive through the ingestion pipeline; this exists for seeding and tests.
func (db *DB) InsertItem(ctx context.Context, item *models.Item) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if item.Status == "" {
		item.Status = models.ItemStatusActive
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO items (title, description, category, budget_min, budget_max, quality_score, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		item.Title, item.Description, item.Category, item.BudgetMin, item.BudgetMax,
		item.QualityScore, item.CreatedAt, string(item.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert item: %w", err)
	}
	item.ID = id
	return id, nil
}

// ItemExists reports whether an item with id exists, active or not.
func (db *DB) ItemExists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check item %d: %w", id, err)
	}
	return n > 0, nil
}

// CountItems returns the number of items in the store.
func (db *DB) CountItems(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

var demoItems = []models.Item{
	{Title: "Minimal landing page refresh", Category: "design", BudgetMin: 300, BudgetMax: 800, QualityScore: 0.82},
	{Title: "Checkout funnel audit", Category: "analytics", BudgetMin: 500, BudgetMax: 1500, QualityScore: 0.74},
	{Title: "Onboarding email sequence", Category: "copywriting", BudgetMin: 200, BudgetMax: 600, QualityScore: 0.66},
	{Title: "Mobile nav prototype", Category: "design", BudgetMin: 400, BudgetMax: 900, QualityScore: 0.71},
	{Title: "Pricing page A/B test plan", Category: "analytics", BudgetMin: 250, BudgetMax: 700, QualityScore: 0.9},
	{Title: "Product launch announcement", Category: "copywriting", BudgetMin: 150, BudgetMax: 450, QualityScore: 0.58},
}

// SeedDemoItems inserts a small demo catalogue when the item table is empty.
// It returns the number of items inserted.
func (db *DB) SeedDemoItems(ctx context.Context) (int, error) {
	n, err := db.CountItems(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for i := range demoItems {
		item := demoItems[i]
		item.Description = "Demo item: " + item.Title
		if _, err := db.InsertItem(ctx, &item); err != nil {
			return i, err
		}
	}
	return len(demoItems), nil
}
