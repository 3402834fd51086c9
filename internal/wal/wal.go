// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/models"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("wal is closed")
	// ErrEntryNotFound is returned when confirming or updating an entry
	// that is no longer pending.
	ErrEntryNotFound = errors.New("wal entry not found")
	// ErrNilEvent is returned by Write for a nil event.
	ErrNilEvent = errors.New("event is nil")
)

// Key prefixes
const (
	prefixPending = "pending:"
	prefixFailed  = "failed:"
)

// Entry is one logged interaction and its delivery history.
type Entry struct {
	ID            string                  `json:"id"`
	Event         models.InteractionEvent `json:"event"`
	CreatedAt     time.Time               `json:"created_at"`
	Attempts      int                     `json:"attempts"`
	LastAttemptAt time.Time               `json:"last_attempt_at,omitempty"`
	LastError     string                  `json:"last_error,omitempty"`
}

// Stats contains WAL counters for monitoring.
type Stats struct {
	PendingCount   int64
	FailedCount    int64
	TotalWrites    int64
	TotalConfirms  int64
	TotalRetries   int64
	TotalAbandoned int64
}

// BadgerWAL is a write-ahead log of interaction events stored in BadgerDB.
type BadgerWAL struct {
	db  *badger.DB
	cfg config.WALConfig
	now func() time.Time

	totalWrites    atomic.Int64
	totalConfirms  atomic.Int64
	totalRetries   atomic.Int64
	totalAbandoned atomic.Int64

	mu     sync.RWMutex
	closed bool

	// entry id -> claim time; see TryClaim
	processing sync.Map
}

// Open opens (or creates) the log described by cfg.
func Open(cfg *config.WALConfig) (*BadgerWAL, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("wal path is required when not in memory")
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	return &BadgerWAL{db: db, cfg: *cfg, now: time.Now}, nil
}

// Config returns the configuration the log was opened with.
func (w *BadgerWAL) Config() config.WALConfig {
	return w.cfg
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	return nil
}

// Write persists ev as a pending entry and returns the entry id, which is
// the event id when it has one.
func (w *BadgerWAL) Write(_ context.Context, ev *models.InteractionEvent) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if ev == nil {
		return "", ErrNilEvent
	}

	id := ev.ID
	if id == "" {
		id = uuid.New().String()
	}
	entry := &Entry{
		ID:        id,
		Event:     *ev,
		CreatedAt: w.now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	err = w.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(prefixPending+id), data)
		if w.cfg.EntryTTL > 0 {
			e = e.WithTTL(w.cfg.EntryTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", fmt.Errorf("write entry: %w", err)
	}

	w.totalWrites.Add(1)
	return id, nil
}

// Confirm removes a delivered entry.
func (w *BadgerWAL) Confirm(_ context.Context, id string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	key := []byte(prefixPending + id)
	err := w.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("get pending entry: %w", err)
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}

	w.totalConfirms.Add(1)
	return nil
}

// RecordAttempt bumps an entry's attempt count after a failed publish.
func (w *BadgerWAL) RecordAttempt(_ context.Context, id string, publishErr error) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	key := []byte(prefixPending + id)
	err := w.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, key)
		if err != nil {
			return err
		}
		entry.Attempts++
		entry.LastAttemptAt = w.now().UTC()
		if publishErr != nil {
			entry.LastError = publishErr.Error()
		}
		return setEntry(txn, key, entry, w.remainingTTL(entry))
	})
	if err != nil {
		return err
	}

	w.totalRetries.Add(1)
	return nil
}

// Abandon moves a pending entry to the failed set, where it stays for
// inspection until its TTL runs out.
func (w *BadgerWAL) Abandon(_ context.Context, id, reason string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}

	pendingKey := []byte(prefixPending + id)
	err := w.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, pendingKey)
		if err != nil {
			return err
		}
		if reason != "" {
			entry.LastError = reason
		}
		if err := setEntry(txn, []byte(prefixFailed+id), entry, w.cfg.EntryTTL); err != nil {
			return err
		}
		return txn.Delete(pendingKey)
	})
	if err != nil {
		return err
	}

	w.totalAbandoned.Add(1)
	return nil
}

// Pending returns every pending entry in key order from one snapshot.
func (w *BadgerWAL) Pending(ctx context.Context) ([]*Entry, error) {
	return w.list(ctx, prefixPending)
}

// Failed returns every abandoned entry.
func (w *BadgerWAL) Failed(ctx context.Context) ([]*Entry, error) {
	return w.list(ctx, prefixFailed)
}

func (w *BadgerWAL) list(ctx context.Context, prefix string) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("unmarshal entry %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// TryClaim marks an entry as being published by the caller. It returns
// false when someone else holds the claim. Callers must Release.
func (w *BadgerWAL) TryClaim(id string) bool {
	_, held := w.processing.LoadOrStore(id, w.now())
	return !held
}

// Release drops a claim taken with TryClaim.
func (w *BadgerWAL) Release(id string) {
	w.processing.Delete(id)
}

// Stats returns counters and current entry counts.
func (w *BadgerWAL) Stats() Stats {
	s := Stats{
		TotalWrites:    w.totalWrites.Load(),
		TotalConfirms:  w.totalConfirms.Load(),
		TotalRetries:   w.totalRetries.Load(),
		TotalAbandoned: w.totalAbandoned.Load(),
	}
	if w.checkOpen() != nil {
		return s
	}

	_ = w.db.View(func(txn *badger.Txn) error {
		s.PendingCount = countKeys(txn, prefixPending)
		s.FailedCount = countKeys(txn, prefixFailed)
		return nil
	})
	return s
}

// Close closes the underlying database. Further calls return ErrClosed.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.db.Close()
}

// remainingTTL keeps an updated entry's expiry anchored to CreatedAt.
func (w *BadgerWAL) remainingTTL(entry *Entry) time.Duration {
	if w.cfg.EntryTTL <= 0 {
		return 0
	}
	left := w.cfg.EntryTTL - w.now().Sub(entry.CreatedAt)
	if left < time.Second {
		left = time.Second
	}
	return left
}

func getEntry(txn *badger.Txn, key []byte) (*Entry, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	var entry Entry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}

func setEntry(txn *badger.Txn, key []byte, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	e := badger.NewEntry(key, data)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return txn.SetEntry(e)
}

func countKeys(txn *badger.Txn, prefix string) int64 {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var n int64
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}
