// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) getTableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS items_id_seq START 1;`,
		`CREATE TABLE IF NOT EXISTS items (
			id BIGINT PRIMARY KEY DEFAULT nextval('items_id_seq'),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			budget_min DOUBLE NOT NULL DEFAULT 0,
			budget_max DOUBLE NOT NULL DEFAULT 0,
			quality_score DOUBLE NOT NULL DEFAULT 0 CHECK (quality_score >= 0 AND quality_score <= 1),
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive'))
		);`,
		`CREATE TABLE IF NOT EXISTS interaction_events (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			item_id BIGINT NOT NULL,
			action TEXT NOT NULL CHECK (action IN ('save', 'skip', 'open')),
			dwell_ms BIGINT NOT NULL DEFAULT 0 CHECK (dwell_ms >= 0),
			event_time TIMESTAMP NOT NULL
		);`,
		`CREATE SEQUENCE IF NOT EXISTS training_records_id_seq START 1;`,
		`CREATE TABLE IF NOT EXISTS training_records (
			id BIGINT PRIMARY KEY DEFAULT nextval('training_records_id_seq'),
			phase TEXT NOT NULL,
			prompt_hash TEXT NOT NULL,
			output_json TEXT NOT NULL,
			provenance TEXT NOT NULL,
			accepted BOOLEAN NOT NULL DEFAULT false,
			allow_training BOOLEAN NOT NULL DEFAULT false,
			item_id BIGINT,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		);`,
		`CREATE TABLE IF NOT EXISTS learning_tags (
			record_id BIGINT NOT NULL,
			tag TEXT NOT NULL,
			tagged_at TIMESTAMP NOT NULL,
			PRIMARY KEY (record_id, tag)
		);`,
	}
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_items_status_category ON items(status, category);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_time ON interaction_events(event_time);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_item ON interaction_events(item_id);`,
		`CREATE INDEX IF NOT EXISTS idx_training_created ON training_records(created_at, id);`,
		`CREATE INDEX IF NOT EXISTS idx_training_item ON training_records(item_id);`,
	}
	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
