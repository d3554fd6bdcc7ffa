// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package woo is a small client for the WooCommerce REST API (wc/v3).

Every request carries HTTP basic credentials and a per-request timeout, and
transient failures are retried with exponential backoff:

  - Retried: 429, 500, 502, 503, 504 and transport errors.
  - 429 with a Retry-After header waits that long and retries once inline
    before the backoff schedule is consulted.
  - Any other status is returned as a [*StatusError] immediately.
*/
package woo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
	"github.com/taibuivan/opsdash/internal/platform/metrics"
)

// # Defaults

const (
	// DefaultTimeout bounds one HTTP round trip.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 3

	// DefaultBackoff is the wait before the first retry; it doubles each time.
	DefaultBackoff = time.Second

	// PerPage is the page size used for every listing.
	PerPage = 100

	// MaxPages caps the X-WP-TotalPages value a listing will follow.
	MaxPages = 500
)

// Config holds the connection settings of a [Client].
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string

	// Optional. Zero values fall back to the defaults above.
	HTTPClient *http.Client
	Retries    int
	Backoff    time.Duration
	Workers    int

	Metrics *metrics.Metrics
}

// Client talks to one WooCommerce store.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	retries int
	backoff time.Duration
	workers int
	metrics *metrics.Metrics
}

// basicAuthTransport stamps the consumer credentials on every request.
type basicAuthTransport struct {
	base   http.RoundTripper
	key    string
	secret string
}

func (t *basicAuthTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	clone := request.Clone(request.Context())
	clone.SetBasicAuth(t.key, t.secret)
	clone.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(clone)
}

// New validates cfg and builds a [Client].
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("woo: invalid base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	client := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   httpClient.Timeout,
			Transport: &basicAuthTransport{base: transport, key: cfg.ConsumerKey, secret: cfg.ConsumerSecret},
		},
		retries: cfg.Retries,
		backoff: cfg.Backoff,
		workers: cfg.Workers,
		metrics: cfg.Metrics,
	}
	if client.retries <= 0 {
		client.retries = DefaultRetries
	}
	if client.backoff <= 0 {
		client.backoff = DefaultBackoff
	}
	if client.workers <= 0 {
		client.workers = FetchWorkers
	}
	return client, nil
}

// # Errors

// StatusError is a non-success response from the store.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("woo: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// # Transport

// response is a fully read reply.
type response struct {
	status int
	header http.Header
	body   []byte
}

/*
do performs one logical request with the retry policy applied.

Returns:
  - *response: The first 2xx reply
  - error: *StatusError for a final non-2xx reply, the transport error, or ctx.Err()
*/
func (client *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*response, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("woo: encode %s: %w", path, err)
		}
		body = encoded
	}

	target := client.baseURL.JoinPath(path)
	target.RawQuery = query.Encode()

	var lastErr error
	for attempt := 0; attempt <= client.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, client.backoff<<(attempt-1)); err != nil {
				return nil, err
			}
		}

		reply, err := client.roundTrip(ctx, method, target.String(), body)

		// One inline retry honoring the server's requested pause.
		if err == nil && reply.status == http.StatusTooManyRequests {
			if wait, ok := retryAfter(reply.header); ok {
				if err := sleep(ctx, wait); err != nil {
					return nil, err
				}
				reply, err = client.roundTrip(ctx, method, target.String(), body)
			}
		}

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		case reply.status >= 200 && reply.status < 300:
			return reply, nil
		default:
			lastErr = &StatusError{Method: method, Path: path, StatusCode: reply.status, Body: snippet(reply.body)}
			if !retryableStatus(reply.status) {
				return nil, lastErr
			}
		}

		if attempt < client.retries {
			client.metrics.WooPage(metrics.PageRetry)
			ctxutil.GetLogger(ctx).Debug("woo_request_retry",
				slog.String("path", path),
				slog.Int("attempt", attempt+1),
				slog.Any("error", lastErr),
			)
		}
	}
	return nil, lastErr
}

func (client *Client) roundTrip(ctx context.Context, method, target string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	reply, err := client.http.Do(request)
	if err != nil {
		return nil, err
	}
	defer reply.Body.Close()

	data, err := io.ReadAll(reply.Body)
	if err != nil {
		return nil, err
	}
	return &response{status: reply.StatusCode, header: reply.Header, body: data}, nil
}

// get decodes a JSON reply into dest and returns the headers.
func (client *Client) get(ctx context.Context, path string, query url.Values, dest any) (http.Header, error) {
	reply, err := client.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reply.body, dest); err != nil {
		return nil, fmt.Errorf("woo: decode %s: %w", path, err)
	}
	return reply.header, nil
}

func (client *Client) put(ctx context.Context, path string, payload, dest any) error {
	reply, err := client.do(ctx, http.MethodPut, path, nil, payload)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(reply.body, dest); err != nil {
		return fmt.Errorf("woo: decode %s: %w", path, err)
	}
	return nil
}

// # Helpers

func retryAfter(header http.Header) (time.Duration, bool) {
	raw := strings.TrimSpace(header.Get(constants.HeaderRetryAfter))
	if raw == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// totalPages reads X-WP-TotalPages, clamped to 1..[MaxPages].
func totalPages(header http.Header) int {
	pages, err := strconv.Atoi(header.Get(constants.HeaderTotalPages))
	if err != nil || pages < 1 {
		return 1
	}
	return min(pages, MaxPages)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func snippet(body []byte) string {
	const max = 200
	text := strings.TrimSpace(string(body))
	if len(text) > max {
		return text[:max]
	}
	return text
}
