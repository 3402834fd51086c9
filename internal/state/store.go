// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package state keeps small operational snapshots in BadgerDB: the last
// published learning stats and the history of dataset export manifests.
// Both survive restarts so operators see the last results before the
// schedulers run again.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/models"
)

// ErrNotFound is returned when no value has been stored yet.
var ErrNotFound = errors.New("state not found")

// Key layout
const (
	learningStatsKey       = "learning:stats"
	exportLatestKey        = "export:latest"
	exportHistoryKeyPrefix = "export:history:"

	// Fixed width so history keys sort chronologically.
	historyKeyLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store is a BadgerDB-backed state store.
type Store struct {
	db *badger.DB
}

// Open opens the store described by cfg.
func Open(cfg *config.StateConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("state path is required when not in memory")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveLearningStats replaces the stored learning stats snapshot.
func (s *Store) SaveLearningStats(_ context.Context, stats *models.LearningStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal learning stats: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(learningStatsKey), data)
	})
}

// LoadLearningStats returns the stored learning stats snapshot.
func (s *Store) LoadLearningStats(_ context.Context) (*models.LearningStats, error) {
	var stats models.LearningStats
	if err := s.get(learningStatsKey, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SaveExportManifest records m as the latest export and appends it to the
// export history.
func (s *Store) SaveExportManifest(_ context.Context, m *models.ExportManifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal export manifest: %w", err)
	}
	historyKey := exportHistoryKeyPrefix + m.ExportedAt.UTC().Format(historyKeyLayout)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(exportLatestKey), data); err != nil {
			return fmt.Errorf("set latest manifest: %w", err)
		}
		if err := txn.Set([]byte(historyKey), data); err != nil {
			return fmt.Errorf("set manifest history: %w", err)
		}
		return nil
	})
}

// LatestExportManifest returns the most recently saved manifest.
func (s *Store) LatestExportManifest(_ context.Context) (*models.ExportManifest, error) {
	var m models.ExportManifest
	if err := s.get(exportLatestKey, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ExportHistory returns up to limit manifests, newest first.
func (s *Store) ExportHistory(_ context.Context, limit int) ([]models.ExportManifest, error) {
	var out []models.ExportManifest

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(exportHistoryKeyPrefix)
		// Reverse iteration must seek past the last key with the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var m models.ExportManifest
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list export history: %w", err)
	}
	return out, nil
}

func (s *Store) get(key string, v interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}
