// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package wal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/models"
)

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []models.InteractionEvent
}

func (f *fakePublisher) PublishInteraction(_ context.Context, ev *models.InteractionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, *ev)
	return nil
}

func (f *fakePublisher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

// clock is a settable time source shared by the log and the publisher.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func openTestWAL(t *testing.T, mutate func(*config.WALConfig)) (*BadgerWAL, *clock) {
	t.Helper()
	cfg := config.WALConfig{
		Enabled:       true,
		InMemory:      true,
		RetryInterval: time.Second,
		MaxRetries:    3,
		EntryTTL:      24 * time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	w.now = c.now
	return w, c
}

func newTestPublisher(w *BadgerWAL, c *clock, next Publisher) *DurablePublisher {
	p := NewDurablePublisher(w, next, zerolog.Nop())
	p.now = c.now
	return p
}

func testEvent(id string) *models.InteractionEvent {
	return &models.InteractionEvent{
		ID:        id,
		UserID:    "alice",
		ItemID:    7,
		Action:    models.ActionSave,
		DwellMs:   1200,
		Timestamp: time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC),
	}
}

func TestOpen_RequiresPathOnDisk(t *testing.T) {
	if _, err := Open(&config.WALConfig{Enabled: true}); err == nil {
		t.Fatal("Open() error = nil, want missing path error")
	}
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.WALConfig{Enabled: true, Path: dir, SyncWrites: true}

	w, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := w.Write(context.Background(), testEvent("persisted")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	w, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer w.Close()

	pending, err := w.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "persisted" {
		t.Fatalf("pending after reopen = %+v, want the persisted entry", pending)
	}
}

func TestWriteConfirm(t *testing.T) {
	w, _ := openTestWAL(t, nil)
	ctx := context.Background()

	id, err := w.Write(ctx, testEvent("ev-1"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if id != "ev-1" {
		t.Errorf("entry id = %q, want the event id", id)
	}

	pending, err := w.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	if got := pending[0].Event; got.UserID != "alice" || got.ItemID != 7 || got.Action != models.ActionSave {
		t.Errorf("stored event = %+v", got)
	}

	if err := w.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if err := w.Confirm(ctx, id); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("second Confirm() error = %v, want ErrEntryNotFound", err)
	}

	stats := w.Stats()
	if stats.PendingCount != 0 || stats.TotalWrites != 1 || stats.TotalConfirms != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestWrite_GeneratesIDAndRejectsNil(t *testing.T) {
	w, _ := openTestWAL(t, nil)

	id, err := w.Write(context.Background(), testEvent(""))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(id) != 36 {
		t.Errorf("generated id = %q, want a UUID", id)
	}

	if _, err := w.Write(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Errorf("Write(nil) error = %v, want ErrNilEvent", err)
	}
}

func TestWrite_SameIDOverwrites(t *testing.T) {
	w, _ := openTestWAL(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := w.Write(ctx, testEvent("retry-me")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if n := w.Stats().PendingCount; n != 1 {
		t.Errorf("PendingCount = %d, want 1", n)
	}
}

func TestClosed(t *testing.T) {
	w, _ := openTestWAL(t, nil)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	ctx := context.Background()
	if _, err := w.Write(ctx, testEvent("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() error = %v, want ErrClosed", err)
	}
	if _, err := w.Pending(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Pending() error = %v, want ErrClosed", err)
	}
	if err := w.Confirm(ctx, "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Confirm() error = %v, want ErrClosed", err)
	}
}

func TestClaim(t *testing.T) {
	w, _ := openTestWAL(t, nil)

	if !w.TryClaim("a") {
		t.Fatal("first TryClaim() = false")
	}
	if w.TryClaim("a") {
		t.Error("second TryClaim() = true while held")
	}
	w.Release("a")
	if !w.TryClaim("a") {
		t.Error("TryClaim() after Release = false")
	}
}

func TestDurablePublisher_Success(t *testing.T) {
	w, c := openTestWAL(t, nil)
	next := &fakePublisher{}
	p := newTestPublisher(w, c, next)

	if err := p.PublishInteraction(context.Background(), testEvent("ok-1")); err != nil {
		t.Fatalf("PublishInteraction() error = %v", err)
	}
	if next.count() != 1 {
		t.Errorf("published %d, want 1", next.count())
	}
	if n := w.Stats().PendingCount; n != 0 {
		t.Errorf("PendingCount = %d, want 0 after confirm", n)
	}
}

func TestDurablePublisher_FailureIsKeptAndReplayed(t *testing.T) {
	w, c := openTestWAL(t, nil)
	next := &fakePublisher{err: errors.New("transport down")}
	p := newTestPublisher(w, c, next)
	ctx := context.Background()

	if err := p.PublishInteraction(ctx, testEvent("later")); err != nil {
		t.Fatalf("PublishInteraction() error = %v, want nil once logged", err)
	}

	pending, err := w.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 || !strings.Contains(pending[0].LastError, "transport down") {
		t.Fatalf("pending = %+v, want one entry with 1 attempt", pending)
	}

	next.setErr(nil)

	// Backoff for one failure is RetryInterval.
	res, err := p.ReplayPending(ctx)
	if err != nil {
		t.Fatalf("ReplayPending() error = %v", err)
	}
	if res.Skipped != 1 || res.Published != 0 {
		t.Errorf("replay before backoff = %+v, want skipped", res)
	}

	c.advance(time.Second)
	res, err = p.ReplayPending(ctx)
	if err != nil {
		t.Fatalf("ReplayPending() error = %v", err)
	}
	if res.Published != 1 {
		t.Errorf("replay after backoff = %+v, want 1 published", res)
	}
	if next.count() != 1 {
		t.Errorf("published %d, want 1", next.count())
	}
	if n := w.Stats().PendingCount; n != 0 {
		t.Errorf("PendingCount = %d, want 0", n)
	}
}

func TestDurablePublisher_WriteFailureIsReturned(t *testing.T) {
	w, c := openTestWAL(t, nil)
	p := newTestPublisher(w, c, &fakePublisher{})
	_ = w.Close()

	if err := p.PublishInteraction(context.Background(), testEvent("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("PublishInteraction() error = %v, want ErrClosed", err)
	}
}

func TestReplay_CrashLeftoverIsPublishedImmediately(t *testing.T) {
	w, c := openTestWAL(t, nil)
	next := &fakePublisher{}
	p := newTestPublisher(w, c, next)
	ctx := context.Background()

	// Written but never attempted, as after a crash between write and publish.
	if _, err := w.Write(ctx, testEvent("orphan")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	res, err := p.ReplayPending(ctx)
	if err != nil {
		t.Fatalf("ReplayPending() error = %v", err)
	}
	if res.Pending != 1 || res.Published != 1 {
		t.Errorf("ReplayPending() = %+v, want 1 published", res)
	}
}

func TestReplay_SkipsClaimedEntries(t *testing.T) {
	w, c := openTestWAL(t, nil)
	next := &fakePublisher{}
	p := newTestPublisher(w, c, next)
	ctx := context.Background()

	if _, err := w.Write(ctx, testEvent("busy")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	w.TryClaim("busy")
	defer w.Release("busy")

	res, err := p.ReplayPending(ctx)
	if err != nil {
		t.Fatalf("ReplayPending() error = %v", err)
	}
	if res.Skipped != 1 || next.count() != 0 {
		t.Errorf("ReplayPending() = %+v, published %d; want skipped", res, next.count())
	}
}

func TestReplay_AbandonsAfterMaxRetries(t *testing.T) {
	w, c := openTestWAL(t, func(cfg *config.WALConfig) { cfg.MaxRetries = 2 })
	next := &fakePublisher{err: errors.New("still down")}
	p := newTestPublisher(w, c, next)
	ctx := context.Background()

	if err := p.PublishInteraction(ctx, testEvent("doomed")); err != nil {
		t.Fatalf("PublishInteraction() error = %v", err)
	}

	c.advance(time.Second)
	res, err := p.ReplayPending(ctx)
	if err != nil {
		t.Fatalf("ReplayPending() error = %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("second attempt = %+v, want failed", res)
	}

	c.advance(time.Hour)
	res, err = p.ReplayPending(ctx)
	if err != nil {
		t.Fatalf("ReplayPending() error = %v", err)
	}
	if res.Abandoned != 1 {
		t.Fatalf("third pass = %+v, want abandoned", res)
	}

	failed, err := w.Failed(ctx)
	if err != nil {
		t.Fatalf("Failed() error = %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "doomed" || !strings.Contains(failed[0].LastError, "2 attempts") {
		t.Errorf("failed = %+v", failed)
	}
	stats := w.Stats()
	if stats.PendingCount != 0 || stats.FailedCount != 1 || stats.TotalAbandoned != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestReplay_AbandonsExpiredEntries(t *testing.T) {
	w, c := openTestWAL(t, func(cfg *config.WALConfig) { cfg.EntryTTL = time.Hour })
	p := newTestPublisher(w, c, &fakePublisher{})
	ctx := context.Background()

	if _, err := w.Write(ctx, testEvent("stale")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	c.advance(2 * time.Hour)

	res, err := p.ReplayPending(ctx)
	if err != nil {
		t.Fatalf("ReplayPending() error = %v", err)
	}
	if res.Abandoned != 1 || res.Published != 0 {
		t.Errorf("ReplayPending() = %+v, want abandoned", res)
	}
}

func TestReplay_CanceledContext(t *testing.T) {
	w, c := openTestWAL(t, nil)
	p := newTestPublisher(w, c, &fakePublisher{})
	if _, err := w.Write(context.Background(), testEvent("a")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.ReplayPending(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ReplayPending() error = %v, want context.Canceled", err)
	}
}

func TestReadyForRetry(t *testing.T) {
	base := time.Minute
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		attempts int
		elapsed  time.Duration
		want     bool
	}{
		{"never attempted", 0, 0, true},
		{"first failure waits base", 1, 59 * time.Second, false},
		{"first failure ready", 1, time.Minute, true},
		{"third failure waits 4x", 3, 3 * time.Minute, false},
		{"third failure ready", 3, 4 * time.Minute, true},
		{"capped at max backoff", 30, maxBackoff, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Attempts: tt.attempts, LastAttemptAt: last}
			if got := readyForRetry(entry, base, last.Add(tt.elapsed)); got != tt.want {
				t.Errorf("readyForRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}
