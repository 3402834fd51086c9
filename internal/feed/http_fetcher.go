// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/engagefeed/internal/models"
)

// HTTPFetcherConfig configures an HTTPFetcher.
type HTTPFetcherConfig struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string
	Timeout time.Duration

	// Circuit breaker settings.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultHTTPFetcherConfig returns the defaults used by feedctl.
func DefaultHTTPFetcherConfig(baseURL string) HTTPFetcherConfig {
	return HTTPFetcherConfig{
		BaseURL:          baseURL,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// HTTPFetcher fetches pages from GET /api/v1/feed. Consecutive failures
// open a circuit breaker so a down server fails fast instead of stacking up
// prefetch requests.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[[]models.Item]
	logger  zerolog.Logger
}

// feedEnvelope is the API response wrapper with Data typed as a feed page.
type feedEnvelope struct {
	Status string           `json:"status"`
	Data   models.FeedPage  `json:"data"`
	Error  *models.APIError `json:"error,omitempty"`
}

// statusError is a non-200 response from the feed endpoint.
type statusError struct {
	status int
	apiErr *models.APIError
}

func (e *statusError) Error() string {
	if e.apiErr != nil {
		return fmt.Sprintf("server returned %d: %s: %s", e.status, e.apiErr.Code, e.apiErr.Message)
	}
	return fmt.Sprintf("server returned %d", e.status)
}

// countsAsSuccess keeps cancellations and 4xx responses out of the breaker's
// failure count. Neither says anything about server health.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.status >= 400 && se.status < 500
}

// NewHTTPFetcher creates a fetcher against cfg.BaseURL.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHTTPFetcher(cfg HTTPFetcherConfig, logger zerolog.Logger) (*HTTPFetcher, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid feed base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	f := &HTTPFetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With().Str("component", "http_fetcher").Logger(),
	}

	threshold := cfg.FailureThreshold
	f.cb = gobreaker.NewCircuitBreaker[[]models.Item](gobreaker.Settings{
		Name:    "feed-fetcher",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return f, nil
}

// FetchPage implements Fetcher.
func (f *HTTPFetcher) FetchPage(ctx context.Context, req PageRequest) ([]models.Item, error) {
	page, err := f.cb.Execute(func() ([]models.Item, error) {
		return f.fetch(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed page: %w", err)
	}
	return page, nil
}

// BreakerState reports the circuit breaker state.
func (f *HTTPFetcher) BreakerState() gobreaker.State {
	return f.cb.State()
}

func (f *HTTPFetcher) fetch(ctx context.Context, req PageRequest) ([]models.Item, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(req.Limit))
	if req.AfterID > 0 {
		q.Set("cursor", EncodeCursor(req.AfterID))
	}
	if req.Category != "" {
		q.Set("category", req.Category)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/v1/feed?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env feedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.StatusCode, apiErr: env.Error}
	}
	return env.Data.Items, nil
}
