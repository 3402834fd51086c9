// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package models

import "time"

// ActionCounts tallies interactions per action.
type ActionCounts struct {
	Save int `json:"save"`
	Skip int `json:"skip"`
	Open int `json:"open"`
}

// Total returns the sum over all actions.
func (c ActionCounts) Total() int {
	return c.Save + c.Skip + c.Open
}

// LearningStats is the aggregate produced by one learning analysis run.
// A zero LastRunAt means no run has completed yet.
type LearningStats struct {
	TotalEventsAnalyzed     int                `json:"total_events_analyzed"`
	ActionCounts            ActionCounts       `json:"action_counts"`
	AverageDwellByCategory  map[string]float64 `json:"average_dwell_by_category"`
	AcceptanceRate          float64            `json:"acceptance_rate"`
	ConversionRate          float64            `json:"conversion_rate"`
	TrainingRecordsAnalyzed int                `json:"training_records_analyzed"`
	EligibleRecords         int                `json:"eligible_records"`
	LastRunAt               time.Time          `json:"last_run_at"`
}

// Clone returns a deep copy so callers can't mutate published stats.
func (s LearningStats) Clone() LearningStats {
	out := s
	if s.AverageDwellByCategory != nil {
		out.AverageDwellByCategory = make(map[string]float64, len(s.AverageDwellByCategory))
		for k, v := range s.AverageDwellByCategory {
			out.AverageDwellByCategory[k] = v
		}
	}
	return out
}
