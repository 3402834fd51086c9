// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/database"
	"github.com/tomtom215/engagefeed/internal/models"
)

const testTopic = "feed_interactions"

func newEvent(itemID int64) *models.InteractionEvent {
	return &models.InteractionEvent{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		ItemID:    itemID,
		Action:    models.ActionSave,
		DwellMs:   800,
		Timestamp: time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestValidateInteraction(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ev *models.InteractionEvent)
	}{
		{"bad id", func(ev *models.InteractionEvent) { ev.ID = "not-a-uuid" }},
		{"missing user", func(ev *models.InteractionEvent) { ev.UserID = "" }},
		{"zero item", func(ev *models.InteractionEvent) { ev.ItemID = 0 }},
		{"bad action", func(ev *models.InteractionEvent) { ev.Action = "like" }},
		{"negative dwell", func(ev *models.InteractionEvent) { ev.DwellMs = -1 }},
		{"zero timestamp", func(ev *models.InteractionEvent) { ev.Timestamp = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := newEvent(1)
			tt.mutate(ev)
			if err := ValidateInteraction(ev); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("error = %v, want ErrInvalidEvent", err)
			}
		})
	}
	if err := ValidateInteraction(newEvent(1)); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}
}

func TestMarshalUnmarshalInteraction(t *testing.T) {
	ev := newEvent(9)
	data, err := MarshalInteraction(ev)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalInteraction(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != ev.ID || got.ItemID != 9 || got.Action != models.ActionSave || !got.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("decoded %+v, want %+v", got, ev)
	}

	if _, err := UnmarshalInteraction([]byte("{")); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("error = %v, want ErrInvalidEvent", err)
	}
}

// memStore is a concurrency-safe InteractionStore that can fail on demand.
type memStore struct {
	mu       sync.Mutex
	rows     map[string]models.InteractionEvent
	failures int
	calls    int
	inserted chan string
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]models.InteractionEvent{}, inserted: make(chan string, 16)}
}

func (s *memStore) InsertInteraction(_ context.Context, ev *models.InteractionEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return false, errors.New("database is locked")
	}
	if _, ok := s.rows[ev.ID]; ok {
		return false, nil
	}
	s.rows[ev.ID] = *ev
	s.inserted <- ev.ID
	return true, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// startPipeline wires a GoChannel transport, a router and the persist
// handler over store, and returns a publisher for the topic.
func startPipeline(t *testing.T, store InteractionStore) *Publisher {
	t.Helper()

	ps, err := NewPubSub(&config.EventsConfig{Backend: BackendGoChannel, OutputBuffer: 16}, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	router, err := NewRouter(RouterConfig{
		CloseTimeout:         time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
		RetryMultiplier:      2,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	NewPersistHandler(store, zerolog.Nop()).Register(router, testTopic, ps.Subscriber)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(ctx) }()

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	if !router.IsRunning() {
		t.Error("IsRunning = false after Running closed")
	}

	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Logf("router: %v", err)
		}
		if err := ps.Close(); err != nil {
			t.Logf("pubsub close: %v", err)
		}
	})
	return NewPublisher(ps.Publisher, testTopic)
}

func waitInserted(t *testing.T, store *memStore, id string) {
	t.Helper()
	select {
	case got := <-store.inserted:
		if got != id {
			t.Fatalf("inserted %s, want %s", got, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("event %s was not persisted", id)
	}
}

func TestPipeline_PersistsPublishedEvent(t *testing.T) {
	store := newMemStore()
	pub := startPipeline(t, store)

	ev := newEvent(3)
	if err := pub.PublishInteraction(context.Background(), ev); err != nil {
		t.Fatalf("PublishInteraction: %v", err)
	}
	waitInserted(t, store, ev.ID)

	// Redelivery of the same event does not add a row.
	if err := pub.PublishInteraction(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	next := newEvent(4)
	if err := pub.PublishInteraction(context.Background(), next); err != nil {
		t.Fatal(err)
	}
	waitInserted(t, store, next.ID)
	if got := store.count(); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
}

func TestPipeline_RetriesStoreErrors(t *testing.T) {
	store := newMemStore()
	store.failures = 2
	pub := startPipeline(t, store)

	ev := newEvent(5)
	if err := pub.PublishInteraction(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	waitInserted(t, store, ev.ID)

	store.mu.Lock()
	calls := store.calls
	store.mu.Unlock()
	if calls != 3 {
		t.Errorf("insert attempts = %d, want 3", calls)
	}
}

func TestPersistHandler_AcksInvalidPayload(t *testing.T) {
	store := newMemStore()
	h := NewPersistHandler(store, zerolog.Nop())

	msg := message.NewMessage(uuid.NewString(), []byte(`{"id":"x"}`))
	if err := h.Handle(msg); err != nil {
		t.Errorf("Handle returned %v for an invalid payload, want nil", err)
	}
	if store.calls != 0 {
		t.Errorf("store called %d times for an invalid payload", store.calls)
	}
}

func TestPersistHandler_ReturnsStoreError(t *testing.T) {
	store := newMemStore()
	store.failures = 1
	h := NewPersistHandler(store, zerolog.Nop())

	data, err := MarshalInteraction(newEvent(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Handle(message.NewMessage(uuid.NewString(), data)); err == nil {
		t.Error("expected store error to be returned for retry")
	}
}

func TestPublisher_RejectsInvalidAndClosed(t *testing.T) {
	store := newMemStore()
	pub := startPipeline(t, store)

	bad := newEvent(1)
	bad.Action = "like"
	if err := pub.PublishInteraction(context.Background(), bad); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("error = %v, want ErrInvalidEvent", err)
	}

	pub.Close()
	if err := pub.PublishInteraction(context.Background(), newEvent(1)); err == nil {
		t.Error("expected error after Close")
	}
}

func TestPipeline_DuckDB(t *testing.T) {
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	notify := &notifyingStore{InteractionStore: db, done: make(chan struct{}, 4)}
	pub := startPipeline(t, notify)

	ev := newEvent(1)
	for i := 0; i < 2; i++ {
		if err := pub.PublishInteraction(context.Background(), ev); err != nil {
			t.Fatal(err)
		}
		select {
		case <-notify.done:
		case <-time.After(5 * time.Second):
			t.Fatal("event not handled")
		}
	}

	n, err := db.CountInteractions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("interaction rows = %d, want 1", n)
	}
}

type notifyingStore struct {
	InteractionStore
	done chan struct{}
}

func (s *notifyingStore) InsertInteraction(ctx context.Context, ev *models.InteractionEvent) (bool, error) {
	ok, err := s.InteractionStore.InsertInteraction(ctx, ev)
	s.done <- struct{}{}
	return ok, err
}

func TestNewPubSub_UnknownBackend(t *testing.T) {
	if _, err := NewPubSub(&config.EventsConfig{Backend: "kafka"}, "", nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestEmbeddedServer_NATSPubSub(t *testing.T) {
	srv, err := StartEmbeddedServer(EmbeddedConfig{Host: "127.0.0.1", Port: -1, StoreDir: t.TempDir()})
	if err != nil {
		t.Fatalf("StartEmbeddedServer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}()

	if !srv.IsRunning() {
		t.Fatal("server not running")
	}
	if srv.ClientURL() == "" {
		t.Fatal("empty client URL")
	}

	ps, err := NewPubSub(&config.EventsConfig{Backend: BackendNATS}, srv.ClientURL(), nil)
	if err != nil {
		t.Fatalf("NewPubSub: %v", err)
	}
	if ps.Backend != BackendNATS {
		t.Errorf("backend = %s, want nats", ps.Backend)
	}
	if err := ps.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestEmbeddedConfigFromURL(t *testing.T) {
	cfg, err := EmbeddedConfigFromURL("nats://0.0.0.0:4333", "/data/nats")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 4333 || cfg.StoreDir != "/data/nats" {
		t.Errorf("got %+v", cfg)
	}

	cfg, err = EmbeddedConfigFromURL("", "")
	if err != nil || cfg.Port != 4222 || cfg.Host != "127.0.0.1" {
		t.Errorf("defaults = %+v, %v", cfg, err)
	}

	if _, err := EmbeddedConfigFromURL("nats://host:abc", ""); err == nil {
		t.Error("expected error for non-numeric port")
	}
}
