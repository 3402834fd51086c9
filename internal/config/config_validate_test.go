// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "unknown environment",
			mutate:  func(c *Config) { c.Server.Environment = "staging" },
			wantErr: "ENVIRONMENT",
		},
		{
			name:    "zero page size",
			mutate:  func(c *Config) { c.Feed.PageSize = 0 },
			wantErr: "FEED_PAGE_SIZE",
		},
		{
			name:    "max page size below page size",
			mutate:  func(c *Config) { c.Feed.MaxPageSize = 5 },
			wantErr: "FEED_MAX_PAGE_SIZE",
		},
		{
			name:    "negative prefetch threshold",
			mutate:  func(c *Config) { c.Feed.PrefetchThreshold = -1 },
			wantErr: "FEED_PREFETCH_THRESHOLD",
		},
		{
			name:    "base url with path",
			mutate:  func(c *Config) { c.Feed.BaseURL = "http://host/api" },
			wantErr: "FEED_BASE_URL",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Recorder.Workers = 0 },
			wantErr: "RECORDER_WORKERS",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Events.Backend = "kafka" },
			wantErr: "EVENTS_BACKEND",
		},
		{
			name: "nats with bad url",
			mutate: func(c *Config) {
				c.Events.Backend = "nats"
				c.Events.NATSURL = "http://broker:4222"
			},
			wantErr: "NATS_URL",
		},
		{
			name:    "dotted topic",
			mutate:  func(c *Config) { c.Events.Topic = "feed.interactions" },
			wantErr: "EVENTS_TOPIC",
		},
		{
			name:    "learning interval too short",
			mutate:  func(c *Config) { c.Learning.Interval = 10 * time.Millisecond },
			wantErr: "LEARNING_INTERVAL",
		},
		{
			name: "learning disabled skips interval check",
			mutate: func(c *Config) {
				c.Learning.Enabled = false
				c.Learning.Interval = 0
			},
		},
		{
			name: "curator enabled without path",
			mutate: func(c *Config) {
				c.Curator.Enabled = true
				c.Curator.OutputPath = ""
			},
			wantErr: "CURATOR_OUTPUT_PATH",
		},
		{
			name:    "empty trusted provenance",
			mutate:  func(c *Config) { c.Curator.TrustedProvenance = nil },
			wantErr: "CURATOR_TRUSTED_PROVENANCE",
		},
		{
			name: "state path required on disk",
			mutate: func(c *Config) {
				c.State.Path = ""
			},
			wantErr: "STATE_PATH",
		},
		{
			name: "in-memory state needs no path",
			mutate: func(c *Config) {
				c.State.Path = ""
				c.State.InMemory = true
			},
		},
		{
			name:    "wal path required when enabled",
			mutate:  func(c *Config) { c.WAL.Path = "" },
			wantErr: "WAL_PATH",
		},
		{
			name: "disabled wal needs no path",
			mutate: func(c *Config) {
				c.WAL.Enabled = false
				c.WAL.Path = ""
			},
		},
		{
			name:    "wal retry interval too short",
			mutate:  func(c *Config) { c.WAL.RetryInterval = 10 * time.Millisecond },
			wantErr: "WAL_RETRY_INTERVAL",
		},
		{
			name:    "negative wal retries",
			mutate:  func(c *Config) { c.WAL.MaxRetries = -1 },
			wantErr: "WAL_MAX_RETRIES",
		},
		{
			name:    "rate limit window too short",
			mutate:  func(c *Config) { c.Security.RateLimitWindow = time.Millisecond },
			wantErr: "RATE_LIMIT_WINDOW",
		},
		{
			name: "rate limit disabled skips checks",
			mutate: func(c *Config) {
				c.Security.RateLimitDisabled = true
				c.Security.RateLimitReqs = 0
			},
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := defaultConfig()
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
	cfg.Server.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("IsProduction() should be true")
	}
}
