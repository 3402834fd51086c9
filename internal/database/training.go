// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/engagefeed/internal/models"
)

const trainingRecordColumns = `id, phase, prompt_hash, output_json, provenance, accepted, allow_training, item_id, created_at`

// InsertTrainingRecord appends a training record and returns its id.
// Training records are produced upstream; this is used by seeding and tests.
func (db *DB) InsertTrainingRecord(ctx context.Context, rec *models.TrainingRecord) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var itemID sql.NullInt64
	if rec.ItemID != nil {
		itemID = sql.NullInt64{Int64: *rec.ItemID, Valid: true}
	}

	var id int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO training_records (phase, prompt_hash, output_json, provenance, accepted, allow_training, item_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		rec.Phase, rec.PromptHash, string(rec.Output), rec.Provenance,
		rec.Accepted, rec.AllowTraining, itemID, rec.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert training record: %w", err)
	}
	rec.ID = id
	return id, nil
}

// TrainingRecordsForItems returns the training records linked to any of
// itemIDs, ordered by id.
func (db *DB) TrainingRecordsForItems(ctx context.Context, itemIDs []int64) ([]models.TrainingRecord, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	placeholders := make([]string, len(itemIDs))
	args := make([]interface{}, len(itemIDs))
	for i, id := range itemIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM training_records WHERE item_id IN (%s) ORDER BY id`,
		trainingRecordColumns, strings.Join(placeholders, ", "))

	return db.queryTrainingRecords(ctx, query, args...)
}

// ExportableTrainingRecords returns records that allow training and are
// either accepted or carry one of the trusted provenances, ordered by
// created_at then insertion id so equal timestamps still sort stably.
func (db *DB) ExportableTrainingRecords(ctx context.Context, trustedProvenance []string) ([]models.TrainingRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	provenanceClause := "false"
	args := make([]interface{}, 0, len(trustedProvenance))
	if len(trustedProvenance) > 0 {
		placeholders := make([]string, len(trustedProvenance))
		for i, p := range trustedProvenance {
			placeholders[i] = "?"
			args = append(args, p)
		}
		provenanceClause = fmt.Sprintf("provenance IN (%s)", strings.Join(placeholders, ", "))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM training_records
		WHERE allow_training AND (%s OR accepted)
		ORDER BY created_at ASC, id ASC`, trainingRecordColumns, provenanceClause)

	return db.queryTrainingRecords(ctx, query, args...)
}

func (db *DB) queryTrainingRecords(ctx context.Context, query string, args ...interface{}) ([]models.TrainingRecord, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query training records: %w", err)
	}
	defer closeWithLog(rows, "training record rows")

	var records []models.TrainingRecord
	for rows.Next() {
		var rec models.TrainingRecord
		var output string
		var itemID sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Phase, &rec.PromptHash, &output, &rec.Provenance,
			&rec.Accepted, &rec.AllowTraining, &itemID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan training record: %w", err)
		}
		rec.Output = []byte(output)
		if itemID.Valid {
			id := itemID.Int64
			rec.ItemID = &id
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training records: %w", err)
	}
	return records, nil
}

// TagRecords attaches tag to each record id in a single transaction. Rows
// that already carry the tag are left untouched, including their tagged_at.
// It returns how many new tag rows were written.
func (db *DB) TagRecords(ctx context.Context, recordIDs []int64, tag string, taggedAt time.Time) (int, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tag transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO learning_tags (record_id, tag, tagged_at)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare tag insert: %w", err)
	}
	defer closeWithLog(stmt, "tag statement")

	inserted := 0
	for _, id := range recordIDs {
		result, err := stmt.ExecContext(ctx, id, tag, taggedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to tag record %d: %w", id, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tags: %w", err)
	}
	return inserted, nil
}

// LearningTags returns every tag row with the given tag, ordered by record id.
func (db *DB) LearningTags(ctx context.Context, tag string) ([]models.LearningTag, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT record_id, tag, tagged_at FROM learning_tags WHERE tag = ? ORDER BY record_id`, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to query learning tags: %w", err)
	}
	defer closeWithLog(rows, "learning tag rows")

	var tags []models.LearningTag
	for rows.Next() {
		var lt models.LearningTag
		if err := rows.Scan(&lt.RecordID, &lt.Tag, &lt.TaggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learning tag: %w", err)
		}
		tags = append(tags, lt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learning tags: %w", err)
	}
	return tags, nil
}
