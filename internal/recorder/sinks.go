// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package recorder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/engagefeed/internal/models"
)

// HTTPSink posts events to POST /api/v1/feedback.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker[struct{}]
}

// NewHTTPSink creates a sink against the server at baseURL. After
// failureThreshold consecutive failures the breaker opens and submissions
// fail fast until it half-opens again.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHTTPSink(baseURL string, timeout time.Duration, failureThreshold uint32, logger zerolog.Logger) (*HTTPSink, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid feedback base URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if failureThreshold == 0 {
		failureThreshold = 5
	}

	log := logger.With().Str("component", "http_sink").Logger()
	return &HTTPSink{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/v1/feedback",
		client:   &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:    "feedback-sink",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		}),
	}, nil
}

// Submit implements Sink.
func (s *HTTPSink) Submit(ctx context.Context, ev *models.InteractionEvent) error {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, ev)
	})
	return err
}

func (s *HTTPSink) post(ctx context.Context, ev *models.InteractionEvent) error {
	body, err := json.Marshal(models.FeedbackRequest{
		UserID:  ev.UserID,
		ItemID:  ev.ItemID,
		Action:  string(ev.Action),
		DwellMs: ev.DwellMs,
	})
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", ev.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("feedback rejected with status %d", resp.StatusCode)
	}
	return nil
}

// InteractionStore is the append side of the interaction store.
type InteractionStore interface {
	InsertInteraction(ctx context.Context, ev *models.InteractionEvent) (bool, error)
}

// StoreSink appends events straight to the database.
type StoreSink struct {
	store InteractionStore
}

// NewStoreSink wraps store.
func NewStoreSink(store InteractionStore) *StoreSink {
	return &StoreSink{store: store}
}

// Submit implements Sink. A duplicate event id is not an error.
func (s *StoreSink) Submit(ctx context.Context, ev *models.InteractionEvent) error {
	if _, err := s.store.InsertInteraction(ctx, ev); err != nil {
		return fmt.Errorf("store interaction: %w", err)
	}
	return nil
}

// InteractionPublisher publishes events onto the event transport.
type InteractionPublisher interface {
	PublishInteraction(ctx context.Context, ev *models.InteractionEvent) error
}

// PublisherSink hands events to the event transport, where the persistence
// consumer appends them.
type PublisherSink struct {
	pub InteractionPublisher
}

// NewPublisherSink wraps pub.
func NewPublisherSink(pub InteractionPublisher) *PublisherSink {
	return &PublisherSink{pub: pub}
}

// Submit implements Sink.
func (s *PublisherSink) Submit(ctx context.Context, ev *models.InteractionEvent) error {
	if err := s.pub.PublishInteraction(ctx, ev); err != nil {
		return fmt.Errorf("publish interaction: %w", err)
	}
	return nil
}
