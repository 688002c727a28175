// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package fetch provides the single retrying HTTP fetcher shared by every
// upstream client. One policy lives here so all upstreams behave the same:
// transient failures (HTTP 429, 5xx, timeouts) are retried with exponential
// backoff and jitter, everything else fails fast, and a per-host circuit
// breaker sheds load when an upstream is down.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/logging"
	"github.com/what2watch/server/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024

// Client performs GET requests against upstream APIs with retries, per-host
// circuit breaking and credential redaction. Safe for concurrent use.
type Client struct {
	http *http.Client
	cfg  config.FetchConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// New creates a fetcher from configuration. The underlying http.Client has
// no global timeout; each attempt gets its own deadline from
// cfg.AttemptTimeout.
func New(cfg config.FetchConfig) *Client {
	return &Client{
		http:     &http.Client{},
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

// GetJSON fetches reqURL and decodes the response body into out. It retries
// transient failures up to cfg.MaxRetries times (so MaxRetries+1 attempts
// total) with exponential backoff, and returns a typed *Error on failure.
func (c *Client) GetJSON(ctx context.Context, reqURL string, out interface{}) error {
	body, err := c.Get(ctx, reqURL)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		host := hostOf(reqURL)
		metrics.RecordUpstreamAttempt(host, "malformed", 0)
		return &Error{Kind: KindMalformed, Host: host, Err: err}
	}
	return nil
}

// Get fetches reqURL with the retry and breaker policy and returns the raw
// response body.
func (c *Client) Get(ctx context.Context, reqURL string) ([]byte, error) {
	host := hostOf(reqURL)
	br := c.breaker(host)

	attempts := 0
	operation := func() ([]byte, error) {
		attempts++
		if attempts > 1 {
			metrics.UpstreamRetriesTotal.WithLabelValues(host).Inc()
			logging.Ctx(ctx).Debug().
				Str("host", host).
				Int("attempt", attempts).
				Msg("retrying upstream request")
		}

		body, err := br.Execute(func() ([]byte, error) {
			return c.attempt(ctx, host, reqURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				metrics.SetBreakerOpen(host, true)
				return nil, backoff.Permanent(&Error{Kind: KindBreakerOpen, Host: host, Err: err})
			}
			var fe *Error
			if errors.As(err, &fe) && !fe.Retryable() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		metrics.SetBreakerOpen(host, false)
		return body, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.BackoffBase
	expo.Multiplier = 2
	expo.RandomizationFactor = 0.2
	expo.MaxElapsedTime = 0 // bounded by retry count, not wall clock

	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(c.cfg.MaxRetries)), ctx)

	body, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			logging.Ctx(ctx).Warn().
				Str("host", host).
				Str("kind", string(fe.Kind)).
				Int("status", fe.Status).
				Int("attempts", attempts).
				Msg("upstream request failed")
			return nil, fe
		}
		// context cancellation or other transport-level abort
		return nil, &Error{Kind: KindTimeout, Host: host, Err: err}
	}
	return body, nil
}

// attempt performs a single request with its own deadline and classifies
// the outcome.
func (c *Client) attempt(ctx context.Context, host, reqURL string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, Host: host,
			Err: fmt.Errorf("building request for %s: %w", Redact(reqURL), err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamAttempt(host, "timeout", time.Since(start))
		return nil, &Error{Kind: KindTimeout, Host: host,
			Err: fmt.Errorf("requesting %s: %w", Redact(reqURL), err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := readBodyForError(resp.Body)
		fe := &Error{Kind: KindHTTP, Host: host, Status: resp.StatusCode,
			Err: fmt.Errorf("%s: %s", Redact(reqURL), snippet)}
		if fe.Retryable() {
			metrics.RecordUpstreamAttempt(host, "retryable", time.Since(start))
		} else {
			metrics.RecordUpstreamAttempt(host, "fatal", time.Since(start))
		}
		return nil, fe
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstreamAttempt(host, "timeout", time.Since(start))
		return nil, &Error{Kind: KindTimeout, Host: host,
			Err: fmt.Errorf("reading body from %s: %w", Redact(reqURL), err)}
	}

	metrics.RecordUpstreamAttempt(host, "success", time.Since(start))
	return body, nil
}

// breaker returns the circuit breaker for host, creating it on first use.
// A disabled breaker configuration yields a breaker that never trips.
func (c *Client) breaker(host string) *gobreaker.CircuitBreaker[[]byte] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if br, ok := c.breakers[host]; ok {
		return br
	}

	settings := gobreaker.Settings{
		Name:    host,
		Timeout: c.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if !c.cfg.BreakerEnabled {
				return false
			}
			return counts.ConsecutiveFailures >= c.cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("host", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("upstream circuit breaker state change")
			metrics.SetBreakerOpen(name, to == gobreaker.StateOpen)
		},
		// Fail-fast 4xx responses are well-formed answers from a healthy
		// upstream, so they do not count toward tripping.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var fe *Error
			if errors.As(err, &fe) {
				return !fe.Retryable()
			}
			return false
		},
	}

	br := gobreaker.NewCircuitBreaker[[]byte](settings)
	c.breakers[host] = br
	return br
}

// hostOf extracts the host from a URL for metric labels, falling back to
// the raw string when parsing fails.
func hostOf(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// Redact replaces API credential query parameters in a URL so keys never
// reach logs or error messages.
func Redact(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		return "(unparseable URL)"
	}
	q := u.Query()
	for _, param := range []string{"api_key", "apikey", "apiKey", "token"} {
		if q.Has(param) {
			q.Set(param, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// readBodyForError reads up to maxErrorBodySize bytes of an error response
// for diagnostics.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	if len(body) == maxErrorBodySize {
		return string(body) + "... (truncated)"
	}
	return string(body)
}
