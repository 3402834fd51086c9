// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(&config.StateConfig{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLearningStats_SaveLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadLearningStats(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	want := &models.LearningStats{
		TotalEventsAnalyzed:    3,
		ActionCounts:           models.ActionCounts{Save: 1, Skip: 1, Open: 1},
		AverageDwellByCategory: map[string]float64{"design": 1250},
		ConversionRate:         1.0 / 3,
		LastRunAt:              time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}
	if err := s.SaveLearningStats(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadLearningStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalEventsAnalyzed != 3 || got.ActionCounts != want.ActionCounts ||
		got.AverageDwellByCategory["design"] != 1250 || !got.LastRunAt.Equal(want.LastRunAt) {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}

func TestExportManifests(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestExportManifest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		m := &models.ExportManifest{
			Path:       "/data/dataset.csv",
			Rows:       i + 1,
			ExportedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveExportManifest(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.LatestExportManifest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Rows != 3 {
		t.Errorf("latest rows = %d, want 3", latest.Rows)
	}

	history, err := s.ExportHistory(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Rows != 3 || history[1].Rows != 2 {
		t.Errorf("history = %+v, want rows 3 then 2", history)
	}

	all, err := s.ExportHistory(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("full history has %d entries, want 3", len(all))
	}
}

func TestOpen_OnDiskPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(&config.StateConfig{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveLearningStats(ctx, &models.LearningStats{TotalEventsAnalyzed: 7}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(&config.StateConfig{Path: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.LoadLearningStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalEventsAnalyzed != 7 {
		t.Errorf("TotalEventsAnalyzed = %d, want 7", got.TotalEventsAnalyzed)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(&config.StateConfig{}); err == nil {
		t.Error("expected error without path")
	}
}
