// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/engagefeed/internal/config"
	"github.com/tomtom215/engagefeed/internal/database"
	"github.com/tomtom215/engagefeed/internal/feed"
	"github.com/tomtom215/engagefeed/internal/learning"
	"github.com/tomtom215/engagefeed/internal/models"
)

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.InteractionEvent
	err    error
}

func (p *recordingPublisher) PublishInteraction(_ context.Context, ev *models.InteractionEvent) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *recordingPublisher) published() []models.InteractionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.InteractionEvent(nil), p.events...)
}

type stubItems map[int64]bool

func (s stubItems) ItemExists(_ context.Context, id int64) (bool, error) {
	return s[id], nil
}

type stubLearning struct {
	stats     models.LearningStats
	err       error
	lastLimit int
}

func (l *stubLearning) AnalyzePastInteractions(_ context.Context, limit int) (models.LearningStats, error) {
	l.lastLimit = limit
	if limit <= 0 {
		return models.LearningStats{}, learning.ErrInvalidLimit
	}
	if l.err != nil {
		return models.LearningStats{}, l.err
	}
	return l.stats, nil
}

func (l *stubLearning) GetLearningStats() models.LearningStats { return l.stats }

type stubCurator struct {
	manifest *models.ExportManifest
	err      error
}

func (c *stubCurator) ExportDataset(context.Context) (*models.ExportManifest, error) {
	return c.manifest, c.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type sliceStore []models.Item

func (s sliceStore) ItemsAfter(_ context.Context, afterID int64, limit int, category string) ([]models.Item, error) {
	var out []models.Item
	for _, it := range s {
		if it.ID > afterID && (category == "" || it.Category == category) {
			out = append(out, it)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{PageSize: 10, MaxPageSize: 100}
}

func newTestServer(t *testing.T, deps Dependencies, feedCfg config.FeedConfig) http.Handler {
	t.Helper()
	if deps.Feed == nil {
		deps.Feed = feed.NewStoreFetcher(sliceStore(nil), 0, 0)
	}
	if deps.Publisher == nil {
		deps.Publisher = &recordingPublisher{}
	}
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.RateLimitDisabled = true
	return NewRouter(NewHandler(deps, feedCfg, 500), NewChiMiddleware(mwCfg)).SetupChi()
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (body %q)", method, target, err, rec.Body.String())
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func setupFeedDB(t *testing.T, n int) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for i := 0; i < n; i++ {
		category := "design"
		if i%2 == 1 {
			category = "writing"
		}
		if _, err := db.InsertItem(context.Background(), &models.Item{Title: "item", Category: category}); err != nil {
			t.Fatalf("InsertItem: %v", err)
		}
	}
	return db
}

func TestFeed_PaginatesToExhaustion(t *testing.T) {
	db := setupFeedDB(t, 14)
	h := newTestServer(t, Dependencies{Feed: feed.NewStoreFetcher(db, 16, time.Minute), DB: db}, testFeedConfig())

	seen := make(map[int64]bool)
	cursor := ""
	var pages []models.FeedPage
	for i := 0; i < 5; i++ {
		rec, env := do(t, h, http.MethodGet, "/api/v1/feed?cursor="+cursor, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("page %d: status %d: %s", i, rec.Code, rec.Body.String())
		}
		var page models.FeedPage
		decodeData(t, env, &page)
		pages = append(pages, page)
		for _, it := range page.Items {
			if seen[it.ID] {
				t.Fatalf("duplicate item %d", it.ID)
			}
			seen[it.ID] = true
		}
		if !page.HasMore {
			break
		}
		if page.NextCursor == nil {
			t.Fatal("has_more without next_cursor")
		}
		cursor = *page.NextCursor
	}

	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if len(pages[0].Items) != 10 || !pages[0].HasMore {
		t.Errorf("first page = %d items, has_more %v", len(pages[0].Items), pages[0].HasMore)
	}
	if len(pages[1].Items) != 4 || pages[1].HasMore {
		t.Errorf("second page = %d items, has_more %v", len(pages[1].Items), pages[1].HasMore)
	}
	if len(seen) != 14 {
		t.Errorf("distinct items = %d, want 14", len(seen))
	}
}

func TestFeed_CategoryAndLimit(t *testing.T) {
	db := setupFeedDB(t, 10)
	h := newTestServer(t, Dependencies{Feed: feed.NewStoreFetcher(db, 0, 0)}, testFeedConfig())

	rec, env := do(t, h, http.MethodGet, "/api/v1/feed?category=writing&limit=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var page models.FeedPage
	decodeData(t, env, &page)
	if len(page.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(page.Items))
	}
	for _, it := range page.Items {
		if it.Category != "writing" {
			t.Errorf("item %d category %q", it.ID, it.Category)
		}
	}
}

func TestFeed_RejectsLimitAboveMaxPageSize(t *testing.T) {
	items := make(sliceStore, 20)
	for i := range items {
		items[i] = models.Item{ID: int64(i + 1), Category: "design"}
	}
	h := newTestServer(t, Dependencies{Feed: feed.NewStoreFetcher(items, 0, 0)}, config.FeedConfig{PageSize: 2, MaxPageSize: 5})

	rec, env := do(t, h, http.MethodGet, "/api/v1/feed?limit=50", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeBadRequest || !strings.Contains(env.Error.Message, "at most 5") {
		t.Errorf("error = %+v", env.Error)
	}

	var page models.FeedPage
	_, env = do(t, h, http.MethodGet, "/api/v1/feed?limit=5", "")
	decodeData(t, env, &page)
	if len(page.Items) != 5 || !page.HasMore {
		t.Errorf("got %d items, has_more %v; want 5, true", len(page.Items), page.HasMore)
	}

	_, env = do(t, h, http.MethodGet, "/api/v1/feed", "")
	decodeData(t, env, &page)
	if len(page.Items) != 2 {
		t.Errorf("default page = %d items, want 2", len(page.Items))
	}
}

// A session asking for more than the server allows must see an error, not a
// short page it would mistake for the end of the feed.
func TestFeed_SessionOverHTTPWithServerCap(t *testing.T) {
	items := make(sliceStore, 20)
	for i := range items {
		items[i] = models.Item{ID: int64(i + 1), Category: "design"}
	}
	h := newTestServer(t, Dependencies{Feed: feed.NewStoreFetcher(items, 0, 0)}, config.FeedConfig{PageSize: 5, MaxPageSize: 5})
	srv := httptest.NewServer(h)
	defer srv.Close()

	fetcher, err := feed.NewHTTPFetcher(feed.DefaultHTTPFetcherConfig(srv.URL), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Run("page size above cap", func(t *testing.T) {
		s := feed.NewSession(fetcher, feed.SessionConfig{PageSize: 8}, zerolog.Nop())
		defer s.Close()
		s.Load(ctx, true)

		st := s.Snapshot()
		if st.Err == nil || !strings.Contains(st.Err.Error(), ErrCodeBadRequest) {
			t.Fatalf("err = %v, want %s", st.Err, ErrCodeBadRequest)
		}
		if len(st.Items) != 0 || !st.HasMore {
			t.Errorf("items = %d hasMore = %v; want 0, true", len(st.Items), st.HasMore)
		}
	})

	t.Run("page size at cap reaches every item", func(t *testing.T) {
		s := feed.NewSession(fetcher, feed.SessionConfig{PageSize: 5}, zerolog.Nop())
		defer s.Close()
		s.Load(ctx, true)
		for i := 0; i < 10 && s.Snapshot().HasMore; i++ {
			s.Load(ctx, false)
		}

		st := s.Snapshot()
		if st.Err != nil {
			t.Fatalf("session error: %v", st.Err)
		}
		if len(st.Items) != 20 || st.HasMore {
			t.Errorf("items = %d hasMore = %v; want 20, false", len(st.Items), st.HasMore)
		}
	})

	if fetcher.BreakerState() != gobreaker.StateClosed {
		t.Errorf("breaker = %v, want closed after client errors", fetcher.BreakerState())
	}
}

func TestFeed_EmptyFeed(t *testing.T) {
	h := newTestServer(t, Dependencies{}, testFeedConfig())

	rec, env := do(t, h, http.MethodGet, "/api/v1/feed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var page models.FeedPage
	decodeData(t, env, &page)
	if len(page.Items) != 0 || page.HasMore || page.NextCursor != nil {
		t.Errorf("empty feed = %+v", page)
	}
	if !strings.Contains(string(env.Data), `"items":[]`) {
		t.Errorf("items should encode as an empty array: %s", env.Data)
	}
}

func TestFeed_RejectsBadParameters(t *testing.T) {
	h := newTestServer(t, Dependencies{}, testFeedConfig())

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"non-numeric limit", "limit=ten", ErrCodeBadRequest},
		{"zero limit", "limit=0", "VALIDATION_ERROR"},
		{"garbage cursor", "cursor=%21%21%21", "VALIDATION_ERROR"},
		{"bad category", "category=Not%20A%20Slug", "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodGet, "/api/v1/feed?"+tt.query, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestFeed_StoreFailure(t *testing.T) {
	failing := feed.NewStoreFetcher(feedStoreFunc(func(context.Context, int64, int, string) ([]models.Item, error) {
		return nil, errors.New("disk on fire")
	}), 0, 0)
	h := newTestServer(t, Dependencies{Feed: failing}, testFeedConfig())

	rec, env := do(t, h, http.MethodGet, "/api/v1/feed", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeDatabaseError {
		t.Errorf("error = %+v", env.Error)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Error("internal error text leaked to the client")
	}
}

type feedStoreFunc func(ctx context.Context, afterID int64, limit int, category string) ([]models.Item, error)

func (f feedStoreFunc) ItemsAfter(ctx context.Context, afterID int64, limit int, category string) ([]models.Item, error) {
	return f(ctx, afterID, limit, category)
}

func TestClearFeedCache(t *testing.T) {
	items := make(sliceStore, 4)
	for i := range items {
		items[i] = models.Item{ID: int64(i + 1)}
	}
	fetcher := feed.NewStoreFetcher(items, 8, time.Minute)
	h := newTestServer(t, Dependencies{Feed: fetcher}, config.FeedConfig{PageSize: 2, MaxPageSize: 2})

	do(t, h, http.MethodGet, "/api/v1/feed", "")
	do(t, h, http.MethodGet, "/api/v1/feed?cursor="+feed.EncodeCursor(2), "")

	rec, env := do(t, h, http.MethodDelete, "/api/v1/feed/cache", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]int
	decodeData(t, env, &body)
	if body["cleared"] != 2 {
		t.Errorf("cleared = %d, want 2", body["cleared"])
	}
}

func TestFeedback_Accepted(t *testing.T) {
	pub := &recordingPublisher{}
	h := newTestServer(t, Dependencies{Publisher: pub, Items: stubItems{7: true}}, testFeedConfig())

	requestID := uuid.NewString()
	rec, env := do(t, h, http.MethodPost, "/api/v1/feedback",
		`{"user_id":"u1","item_id":7,"action":"save","dwell_ms":1200}`,
		"X-Request-ID", requestID)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var accepted FeedbackAccepted
	decodeData(t, env, &accepted)
	if accepted.ID != requestID {
		t.Errorf("event id = %q, want request id %q", accepted.ID, requestID)
	}

	events := pub.published()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.ID != requestID || ev.UserID != "u1" || ev.ItemID != 7 || ev.Action != models.ActionSave || ev.DwellMs != 1200 {
		t.Errorf("event = %+v", ev)
	}
	if ev.Timestamp.IsZero() || ev.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v, want UTC", ev.Timestamp)
	}
}

func TestFeedback_GeneratesIDForNonUUIDRequestID(t *testing.T) {
	pub := &recordingPublisher{}
	h := newTestServer(t, Dependencies{Publisher: pub}, testFeedConfig())

	rec, _ := do(t, h, http.MethodPost, "/api/v1/feedback",
		`{"user_id":"u1","item_id":3,"action":"skip","dwell_ms":0}`,
		"X-Request-ID", "trace-123")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, err := uuid.Parse(pub.published()[0].ID); err != nil {
		t.Errorf("event id is not a UUID: %v", err)
	}
}

func TestFeedback_Rejected(t *testing.T) {
	pub := &recordingPublisher{}
	h := newTestServer(t, Dependencies{Publisher: pub, Items: stubItems{1: true}}, testFeedConfig())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"user_id":`, http.StatusBadRequest},
		{"unknown field", `{"user_id":"u","item_id":1,"action":"save","score":3}`, http.StatusBadRequest},
		{"unknown action", `{"user_id":"u","item_id":1,"action":"like"}`, http.StatusBadRequest},
		{"missing user", `{"item_id":1,"action":"open"}`, http.StatusBadRequest},
		{"zero item", `{"user_id":"u","item_id":0,"action":"open"}`, http.StatusBadRequest},
		{"negative dwell", `{"user_id":"u","item_id":1,"action":"open","dwell_ms":-5}`, http.StatusBadRequest},
		{"unknown item", `{"user_id":"u","item_id":99,"action":"open"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/v1/feedback", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if env.Error == nil {
				t.Error("missing error body")
			}
		})
	}
	if n := len(pub.published()); n != 0 {
		t.Errorf("published %d events for rejected requests", n)
	}
}

func TestFeedback_PublishFailure(t *testing.T) {
	h := newTestServer(t, Dependencies{Publisher: &recordingPublisher{err: errors.New("broker down")}}, testFeedConfig())

	rec, env := do(t, h, http.MethodPost, "/api/v1/feedback", `{"user_id":"u","item_id":1,"action":"open"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestLearningEndpoints(t *testing.T) {
	runAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := &stubLearning{stats: models.LearningStats{
		TotalEventsAnalyzed: 4,
		ActionCounts:        models.ActionCounts{Save: 2, Skip: 1, Open: 1},
		LastRunAt:           runAt,
	}}
	h := newTestServer(t, Dependencies{Learning: engine}, testFeedConfig())

	rec, env := do(t, h, http.MethodGet, "/api/v1/learning/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats models.LearningStats
	decodeData(t, env, &stats)
	if stats.TotalEventsAnalyzed != 4 || stats.ActionCounts.Save != 2 || !stats.LastRunAt.Equal(runAt) {
		t.Errorf("stats = %+v", stats)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/v1/learning/analyze", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", rec.Code)
	}
	if engine.lastLimit != 500 {
		t.Errorf("default limit = %d, want 500", engine.lastLimit)
	}

	do(t, h, http.MethodPost, "/api/v1/learning/analyze?limit=25", "")
	if engine.lastLimit != 25 {
		t.Errorf("limit = %d, want 25", engine.lastLimit)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/v1/learning/analyze?limit=-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/v1/learning/analyze?limit=x", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed limit status = %d, want 400", rec.Code)
	}

	engine.err = errors.New("store unavailable")
	rec, env = do(t, h, http.MethodPost, "/api/v1/learning/analyze", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("failed run status = %d, want 500", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeInternalError {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestLearningEndpoints_NotConfigured(t *testing.T) {
	h := newTestServer(t, Dependencies{}, testFeedConfig())

	for _, path := range []string{"/api/v1/learning/stats", "/api/v1/learning/analyze"} {
		method := http.MethodGet
		if strings.HasSuffix(path, "analyze") {
			method = http.MethodPost
		}
		rec, _ := do(t, h, method, path, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, rec.Code)
		}
	}
}

func TestExportDataset(t *testing.T) {
	manifest := &models.ExportManifest{Path: "/data/out.csv", Rows: 3, SHA256: "abc"}
	h := newTestServer(t, Dependencies{Curator: &stubCurator{manifest: manifest}}, testFeedConfig())

	rec, env := do(t, h, http.MethodPost, "/api/v1/dataset/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got models.ExportManifest
	decodeData(t, env, &got)
	if got.Path != manifest.Path || got.Rows != 3 || got.SHA256 != "abc" {
		t.Errorf("manifest = %+v", got)
	}

	h = newTestServer(t, Dependencies{Curator: &stubCurator{err: errors.New("rename failed")}}, testFeedConfig())
	rec, _ = do(t, h, http.MethodPost, "/api/v1/dataset/export", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("failure status = %d, want 500", rec.Code)
	}

	h = newTestServer(t, Dependencies{}, testFeedConfig())
	rec, _ = do(t, h, http.MethodPost, "/api/v1/dataset/export", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured status = %d, want 503", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, Dependencies{DB: stubPinger{}}, testFeedConfig())

	rec, env := do(t, h, http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}
	var status HealthStatus
	decodeData(t, env, &status)
	if status.Status != "ok" {
		t.Errorf("live = %+v", status)
	}

	rec, env = do(t, h, http.MethodGet, "/api/v1/health/ready", "")
	decodeData(t, env, &status)
	if rec.Code != http.StatusOK || !status.DatabaseConnected {
		t.Errorf("ready = %d %+v", rec.Code, status)
	}

	h = newTestServer(t, Dependencies{DB: stubPinger{err: errors.New("closed")}}, testFeedConfig())
	rec, env = do(t, h, http.MethodGet, "/api/v1/health/ready", "")
	decodeData(t, env, &status)
	if rec.Code != http.StatusServiceUnavailable || status.Status != "degraded" || status.DatabaseConnected {
		t.Errorf("degraded ready = %d %+v", rec.Code, status)
	}
}

func newEmptyFeed() FeedSource {
	return feed.NewStoreFetcher(sliceStore(nil), 0, 0)
}
