// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is looked for, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/engagefeed/config.yaml",
	"/etc/engagefeed/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8417,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/engagefeed.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Feed: FeedConfig{
			PageSize:          10,
			MaxPageSize:       100,
			PrefetchThreshold: 2,
			BaseURL:           "http://127.0.0.1:8417",
			FetchTimeout:      10 * time.Second,
		},
		Recorder: RecorderConfig{
			QueueSize:     256,
			Workers:       2,
			RatePerSecond: 20,
			SubmitTimeout: 5 * time.Second,
		},
		Events: EventsConfig{
			Backend:              "gochannel",
			Topic:                "feed_interactions",
			NATSURL:              "nats://127.0.0.1:4222",
			EmbeddedServer:       false,
			StoreDir:             "/data/nats",
			OutputBuffer:         1024,
			RouterCloseTimeout:   10 * time.Second,
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
		},
		Learning: LearningConfig{
			Enabled:      true,
			Interval:     15 * time.Minute,
			Limit:        1000,
			RunOnStartup: true,
		},
		Curator: CuratorConfig{
			Enabled:           false,
			Interval:          24 * time.Hour,
			OutputPath:        "/data/exports/training_dataset.csv",
			TrustedProvenance: []string{"human_validated", "ab_test_winner"},
		},
		State: StateConfig{
			Path: "/data/state",
		},
		WAL: WALConfig{
			Enabled:       true,
			Path:          "/data/wal",
			SyncWrites:    true,
			RetryInterval: 30 * time.Second,
			MaxRetries:    100,
			EntryTTL:      7 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			Capacity: 256,
			TTL:      30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from three layers:
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. mapped environment variables
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as env strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"curator.trusted_provenance",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot leak
// arbitrary keys into the config tree.
var envMappings = map[string]string{
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_demo_data":    "database.seed_demo",

	"feed_page_size":          "feed.page_size",
	"feed_max_page_size":      "feed.max_page_size",
	"feed_prefetch_threshold": "feed.prefetch_threshold",
	"feed_base_url":           "feed.base_url",
	"feed_fetch_timeout":      "feed.fetch_timeout",

	"recorder_queue_size":      "recorder.queue_size",
	"recorder_workers":         "recorder.workers",
	"recorder_rate_per_second": "recorder.rate_per_second",
	"recorder_submit_timeout":  "recorder.submit_timeout",
	"recorder_user_id":         "recorder.user_id",

	"events_backend":                "events.backend",
	"events_topic":                  "events.topic",
	"nats_url":                      "events.nats_url",
	"nats_embedded":                 "events.embedded_server",
	"nats_store_dir":                "events.store_dir",
	"events_output_buffer":          "events.output_buffer",
	"events_router_close_timeout":   "events.router_close_timeout",
	"events_retry_count":            "events.retry_count",
	"events_retry_initial_interval": "events.retry_initial_interval",

	"learning_enabled":        "learning.enabled",
	"learning_interval":       "learning.interval",
	"learning_limit":          "learning.limit",
	"learning_run_on_startup": "learning.run_on_startup",

	"curator_enabled":            "curator.enabled",
	"curator_interval":           "curator.interval",
	"curator_output_path":        "curator.output_path",
	"curator_trusted_provenance": "curator.trusted_provenance",

	"state_path":      "state.path",
	"state_in_memory": "state.in_memory",

	"wal_enabled":        "wal.enabled",
	"wal_path":           "wal.path",
	"wal_in_memory":      "wal.in_memory",
	"wal_sync_writes":    "wal.sync_writes",
	"wal_retry_interval": "wal.retry_interval",
	"wal_max_retries":    "wal.max_retries",
	"wal_entry_ttl":      "wal.entry_ttl",

	"cache_capacity": "cache.capacity",
	"cache_ttl":      "cache.ttl",

	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
