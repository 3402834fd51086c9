// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func captureGlobal(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	cfg.Output = &buf
	Init(cfg)
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit_FiltersBelowLevel(t *testing.T) {
	buf := captureGlobal(t, Config{Level: "warn", Format: "json"})

	Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	Warn().Str("k", "v").Msg("shown")
	m := decodeLine(t, buf)
	if m["message"] != "shown" || m["k"] != "v" || m["level"] != "warn" {
		t.Errorf("unexpected log line: %v", m)
	}
}

func TestWithComponent(t *testing.T) {
	buf := captureGlobal(t, Config{Level: "debug"})

	l := WithComponent("feed")
	l.Debug().Msg("loaded")

	m := decodeLine(t, buf)
	if m["component"] != "feed" {
		t.Errorf("component = %v, want feed", m["component"])
	}
}

func TestCtx_AddsRequestAndSessionIDs(t *testing.T) {
	buf := captureGlobal(t, Config{Level: "info"})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "sess-9")
	Ctx(ctx).Info().Msg("page")

	m := decodeLine(t, buf)
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	if m["session_id"] != "sess-9" {
		t.Errorf("session_id = %v", m["session_id"])
	}
}

func TestCtx_EmptyContext(t *testing.T) {
	buf := captureGlobal(t, Config{Level: "info"})

	Ctx(context.Background()).Info().Msg("plain")
	m := decodeLine(t, buf)
	if _, ok := m["request_id"]; ok {
		t.Error("request_id should be absent")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("expected empty request id")
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf)))

	logger.WithGroup("svc").With("name", "learning").Info("restart",
		slog.Int("attempt", 2),
		slog.Group("backoff", slog.Float64("seconds", 1.5)),
		slog.Any("err", errors.New("boom")),
	)

	m := decodeLine(t, &buf)
	if m["message"] != "restart" {
		t.Errorf("message = %v", m["message"])
	}
	if m["svc.name"] != "learning" {
		t.Errorf("svc.name = %v", m["svc.name"])
	}
	if m["svc.attempt"] != float64(2) {
		t.Errorf("svc.attempt = %v", m["svc.attempt"])
	}
	if m["svc.backoff.seconds"] != 1.5 {
		t.Errorf("svc.backoff.seconds = %v", m["svc.backoff.seconds"])
	}
	if m["svc.err"] != "boom" {
		t.Errorf("svc.err = %v", m["svc.err"])
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	h := NewSlogHandler(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled on a warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled on a warn logger")
	}
}

func TestNewSlogLogger_TagsComponent(t *testing.T) {
	buf := captureGlobal(t, Config{Level: "info"})

	NewSlogLogger("supervisor").Info("tree started")
	m := decodeLine(t, buf)
	if m["component"] != "supervisor" {
		t.Errorf("component = %v", m["component"])
	}
}
