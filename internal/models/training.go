// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Provenance classifies where a training record came from.
const (
	ProvenanceHumanValidated = "human_validated"
	ProvenanceABTestWinner   = "ab_test_winner"
	ProvenanceModelGenerated = "model_generated"
)

// LearningEligibleTag marks a training record as usable for learning.
const LearningEligibleTag = "learning_eligible"

// TrainingRecord is an AI pipeline output annotated with provenance and
// eligibility flags. Records are produced upstream; this service only reads
// them and attaches tags.
type TrainingRecord struct {
	ID            int64           `json:"id"`
	Phase         string          `json:"phase"`
	PromptHash    string          `json:"prompt_hash"`
	Output        json.RawMessage `json:"output"`
	Provenance    string          `json:"provenance"`
	Accepted      bool            `json:"accepted"`
	AllowTraining bool            `json:"allow_training"`
	ItemID        *int64          `json:"item_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LearningTag is an annotation on a training record. TaggedAt is set when the
// tag is first written and never changes afterwards.
type LearningTag struct {
	RecordID int64     `json:"record_id"`
	Tag      string    `json:"tag"`
	TaggedAt time.Time `json:"tagged_at"`
}

// ExportManifest describes the last dataset export written to disk.
type ExportManifest struct {
	Path       string    `json:"path"`
	Rows       int       `json:"rows"`
	Bytes      int64     `json:"bytes"`
	SHA256     string    `json:"sha256"`
	ExportedAt time.Time `json:"exported_at"`
}
