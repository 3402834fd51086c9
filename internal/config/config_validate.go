// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateRecorder(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateLearning(); err != nil {
		return err
	}
	if err := c.validateCurator(); err != nil {
		return err
	}
	if err := c.validateState(); err != nil {
		return err
	}
	if err := c.validateWAL(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.PageSize < 1 {
		return fmt.Errorf("FEED_PAGE_SIZE must be at least 1, got %d", c.Feed.PageSize)
	}
	if c.Feed.MaxPageSize < c.Feed.PageSize {
		return fmt.Errorf("FEED_MAX_PAGE_SIZE (%d) must be >= FEED_PAGE_SIZE (%d)", c.Feed.MaxPageSize, c.Feed.PageSize)
	}
	if c.Feed.PrefetchThreshold < 0 {
		return fmt.Errorf("FEED_PREFETCH_THRESHOLD must be >= 0, got %d", c.Feed.PrefetchThreshold)
	}
	if c.Feed.BaseURL != "" {
		if err := validateHTTPURL(c.Feed.BaseURL, "FEED_BASE_URL"); err != nil {
			return err
		}
	}
	if c.Feed.FetchTimeout <= 0 {
		return fmt.Errorf("FEED_FETCH_TIMEOUT must be positive, got %v", c.Feed.FetchTimeout)
	}
	return nil
}

func (c *Config) validateRecorder() error {
	if c.Recorder.QueueSize < 1 {
		return fmt.Errorf("RECORDER_QUEUE_SIZE must be at least 1, got %d", c.Recorder.QueueSize)
	}
	if c.Recorder.Workers < 1 {
		return fmt.Errorf("RECORDER_WORKERS must be at least 1, got %d", c.Recorder.Workers)
	}
	if c.Recorder.RatePerSecond < 0 {
		return fmt.Errorf("RECORDER_RATE_PER_SECOND must be >= 0, got %v", c.Recorder.RatePerSecond)
	}
	if c.Recorder.SubmitTimeout <= 0 {
		return fmt.Errorf("RECORDER_SUBMIT_TIMEOUT must be positive, got %v", c.Recorder.SubmitTimeout)
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Backend {
	case "gochannel":
	case "nats":
		if err := validateNATSURL(c.Events.NATSURL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
		if c.Events.EmbeddedServer && c.Events.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be gochannel or nats, got %q", c.Events.Backend)
	}

	// NATS stream names are derived from the topic and may not contain dots.
	if c.Events.Topic == "" || strings.ContainsAny(c.Events.Topic, ". *>") {
		return fmt.Errorf("EVENTS_TOPIC must be non-empty without dots, spaces or wildcards, got %q", c.Events.Topic)
	}
	if c.Events.RetryCount < 0 {
		return fmt.Errorf("EVENTS_RETRY_COUNT must be >= 0, got %d", c.Events.RetryCount)
	}
	if c.Events.RouterCloseTimeout <= 0 {
		return fmt.Errorf("EVENTS_ROUTER_CLOSE_TIMEOUT must be positive, got %v", c.Events.RouterCloseTimeout)
	}
	return nil
}

func (c *Config) validateLearning() error {
	if !c.Learning.Enabled {
		return nil
	}
	if c.Learning.Interval < time.Second {
		return fmt.Errorf("LEARNING_INTERVAL must be at least 1s, got %v", c.Learning.Interval)
	}
	if c.Learning.Limit < 1 {
		return fmt.Errorf("LEARNING_LIMIT must be at least 1, got %d", c.Learning.Limit)
	}
	return nil
}

func (c *Config) validateCurator() error {
	if len(c.Curator.TrustedProvenance) == 0 {
		return fmt.Errorf("CURATOR_TRUSTED_PROVENANCE must list at least one provenance")
	}
	if !c.Curator.Enabled {
		return nil
	}
	if c.Curator.OutputPath == "" {
		return fmt.Errorf("CURATOR_OUTPUT_PATH is required when CURATOR_ENABLED=true")
	}
	if c.Curator.Interval < time.Minute {
		return fmt.Errorf("CURATOR_INTERVAL must be at least 1m, got %v", c.Curator.Interval)
	}
	return nil
}

func (c *Config) validateState() error {
	if !c.State.InMemory && c.State.Path == "" {
		return fmt.Errorf("STATE_PATH is required unless STATE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateWAL() error {
	if !c.WAL.Enabled {
		return nil
	}
	if !c.WAL.InMemory && c.WAL.Path == "" {
		return fmt.Errorf("WAL_PATH is required when WAL_ENABLED=true unless WAL_IN_MEMORY=true")
	}
	if c.WAL.RetryInterval < time.Second {
		return fmt.Errorf("WAL_RETRY_INTERVAL must be at least 1s, got %v", c.WAL.RetryInterval)
	}
	if c.WAL.MaxRetries < 0 {
		return fmt.Errorf("WAL_MAX_RETRIES must be >= 0, got %d", c.WAL.MaxRetries)
	}
	if c.WAL.EntryTTL < 0 {
		return fmt.Errorf("WAL_ENTRY_TTL must be >= 0, got %v", c.WAL.EntryTTL)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("CACHE_CAPACITY must be >= 0, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("CACHE_TTL must be >= 0, got %v", c.Cache.TTL)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a recognised level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// HasWildcardCORS reports whether any CORS origin is "*".
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
