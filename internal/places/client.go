// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

/*
Package places is the external tier: a client for the Google Places web
service.

Client Features:
  - Rate limiting with golang.org/x/time/rate (Wait honors the context)
  - Circuit breaker protection via sony/gobreaker (see breaker.go)
  - Per-call timeout on top of the caller's context
  - Place-ID memo so repeated text searches cost one findplace call
  - Status mapping: OK, ZERO_RESULTS, OVER_QUERY_LIMIT and the rest

Endpoints Used:
  - findplacefromtext: resolve a restaurant name to a place
  - details: reviews, rating and photo fallback
  - nearbysearch: candidate stores around a point
  - photo: only linked, never fetched
*/
package places

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/dinemap/internal/cache"
	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/logging"
	"github.com/tomtom215/dinemap/internal/metrics"
)

// Sentinel errors. Callers treat ErrNotFound as a clean miss.
var (
	ErrNotFound  = errors.New("places: no matching place")
	ErrQuota     = errors.New("places: quota exceeded")
	ErrUpstream  = errors.New("places: upstream error")
	ErrNoAPIKey  = errors.New("places: API key not configured")
	errBadStatus = errors.New("places: unexpected HTTP status")
)

// Places API status values.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
)

// maxErrorBodySize bounds how much of a failed response is read for logging.
const maxErrorBodySize = 64 * 1024

// placeIDTTL is how long a resolved place ID is remembered.
const placeIDTTL = 24 * time.Hour

// Client talks to the Places API. Safe for concurrent use.
type Client struct {
	baseURL       string
	apiKey        string
	querySuffix   string
	language      string
	photoMaxWidth int
	timeout       time.Duration

	http     *http.Client
	limiter  *rate.Limiter
	breaker  *breaker
	placeIDs *cache.LRU[string]
}

// New creates a Client from cfg. A nil httpClient uses a default client.
func New(cfg *config.PlacesConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	width := cfg.PhotoMaxWidth
	if width <= 0 {
		width = 400
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		querySuffix:   cfg.QuerySuffix,
		language:      cfg.Language,
		photoMaxWidth: width,
		timeout:       cfg.Timeout,
		http:          httpClient,
		limiter:       rate.NewLimiter(limit, burst),
		breaker:       newBreaker("google-places"),
		placeIDs:      cache.NewLRU[string](cfg.PlaceIDCacheSize, placeIDTTL),
	}
}

// apiStatus is the envelope shared by every Places response.
type apiStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (s apiStatus) statusOf() apiStatus { return s }

type statusCarrier interface {
	statusOf() apiStatus
}

// get performs one GET against endpoint and decodes the body into out.
// The API key is added here.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out statusCarrier) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	_, err := c.breaker.execute(func() (interface{}, error) {
		return nil, c.do(ctx, endpoint, params, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values, out statusCarrier) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordExternalRequest(endpoint, time.Since(start), ignoreNotFound(err))
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s/json?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w (HTTP 429)", endpoint, ErrQuota)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("%s: %w %d: %s", endpoint, errBadStatus, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	return checkStatus(endpoint, out.statusOf())
}

// checkStatus maps a Places status to the package errors.
func checkStatus(endpoint string, s apiStatus) error {
	switch s.Status {
	case statusOK:
		return nil
	case statusZeroResults:
		return ErrNotFound
	case statusOverQueryLimit:
		return fmt.Errorf("%s: %w: %s", endpoint, ErrQuota, s.ErrorMessage)
	default:
		return fmt.Errorf("%s: %w: %s %s", endpoint, ErrUpstream, s.Status, s.ErrorMessage)
	}
}

func ignoreNotFound(err error) error {
	if isNotFound(err) {
		return nil
	}
	return err
}

// query appends the configured suffix, e.g. "Din Tai Fung" -> "Din Tai Fung Taiwan".
func (c *Client) query(name string) string {
	if c.querySuffix == "" {
		return name
	}
	return name + c.querySuffix
}

// photoURL builds the public photo link for a photo reference.
func (c *Client) photoURL(ref string) string {
	v := url.Values{}
	v.Set("maxwidth", fmt.Sprintf("%d", c.photoMaxWidth))
	v.Set("photo_reference", ref)
	v.Set("key", c.apiKey)
	return fmt.Sprintf("%s/photo?%s", c.baseURL, v.Encode())
}

// BreakerState reports the circuit breaker state as closed, half-open or open.
func (c *Client) BreakerState() string {
	return stateToString(c.breaker.cb.State())
}

func logUpstream(ctx context.Context, endpoint, name string, err error) {
	if err == nil || isNotFound(err) {
		return
	}
	logging.Ctx(ctx).Debug().Err(err).Str("endpoint", endpoint).Str("name", name).Msg("Places call failed")
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
