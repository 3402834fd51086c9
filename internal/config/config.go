// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

// Package config loads Engagefeed configuration from defaults, an optional
// YAML file and environment variables (in that order of precedence, lowest
// first) using koanf.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Feed     FeedConfig     `koanf:"feed"`
	Recorder RecorderConfig `koanf:"recorder"`
	Events   EventsConfig   `koanf:"events"`
	Learning LearningConfig `koanf:"learning"`
	Curator  CuratorConfig  `koanf:"curator"`
	State    StateConfig    `koanf:"state"`
	WAL      WALConfig      `koanf:"wal"`
	Cache    CacheConfig    `koanf:"cache"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // ":memory:" for an ephemeral database
	MaxMemory string `koanf:"max_memory"` // DuckDB memory_limit, e.g. "1GB"
	Threads   int    `koanf:"threads"`    // 0 = DuckDB default
	SeedDemo  bool   `koanf:"seed_demo"`  // insert a handful of demo items on an empty store
}

// FeedConfig controls feed paging.
type FeedConfig struct {
	PageSize          int           `koanf:"page_size"`
	MaxPageSize       int           `koanf:"max_page_size"`
	PrefetchThreshold int           `koanf:"prefetch_threshold"`
	BaseURL           string        `koanf:"base_url"` // used by feedctl to reach the server
	FetchTimeout      time.Duration `koanf:"fetch_timeout"`
}

// RecorderConfig controls the client-side interaction recorder.
type RecorderConfig struct {
	QueueSize     int           `koanf:"queue_size"`
	Workers       int           `koanf:"workers"`
	RatePerSecond float64       `koanf:"rate_per_second"` // 0 = unlimited
	SubmitTimeout time.Duration `koanf:"submit_timeout"`
	UserID        string        `koanf:"user_id"`
}

// EventsConfig selects and tunes the interaction event transport.
type EventsConfig struct {
	Backend              string        `koanf:"backend"` // gochannel or nats
	Topic                string        `koanf:"topic"`
	NATSURL              string        `koanf:"nats_url"`
	EmbeddedServer       bool          `koanf:"embedded_server"`
	StoreDir             string        `koanf:"store_dir"`
	OutputBuffer         int64         `koanf:"output_buffer"`
	RouterCloseTimeout   time.Duration `koanf:"router_close_timeout"`
	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
}

// LearningConfig controls the scheduled learning analysis.
type LearningConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	Limit        int           `koanf:"limit"`
	RunOnStartup bool          `koanf:"run_on_startup"`
}

// CuratorConfig controls scheduled dataset exports.
type CuratorConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Interval          time.Duration `koanf:"interval"`
	OutputPath        string        `koanf:"output_path"`
	TrustedProvenance []string      `koanf:"trusted_provenance"`
}

// StateConfig holds the Badger state store location.
type StateConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// WALConfig controls the write-ahead log in front of event publishing.
type WALConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	InMemory      bool          `koanf:"in_memory"`
	SyncWrites    bool          `koanf:"sync_writes"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxRetries    int           `koanf:"max_retries"` // 0 = retry until EntryTTL
	EntryTTL      time.Duration `koanf:"entry_ttl"`
}

// CacheConfig sizes the feed page cache.
type CacheConfig struct {
	Capacity int           `koanf:"capacity"`
	TTL      time.Duration `koanf:"ttl"`
}

// SecurityConfig holds HTTP hardening settings. Authentication lives upstream.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config for the file/env layers.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
