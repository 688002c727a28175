// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/logging"
	"github.com/what2watch/server/internal/ratelimit"
)

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsUpstreamHeader(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "proxy-assigned-id")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "proxy-assigned-id", captured)
	assert.Equal(t, "proxy-assigned-id", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDPopulatesLoggingContext(t *testing.T) {
	var fromLogging string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromLogging = logging.RequestIDFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.NotEmpty(t, fromLogging)
}

func TestPrometheusPassesThrough(t *testing.T) {
	handler := Prometheus(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestOperationLimitRejectsOverBudget(t *testing.T) {
	set := ratelimit.NewSet(config.RateLimitConfig{
		Search:  config.WindowLimit{MaxRequests: 2, Window: time.Minute},
		General: config.WindowLimit{MaxRequests: 2, Window: time.Minute},
		Gems:    config.WindowLimit{MaxRequests: 2, Window: time.Minute},
		Chat:    config.WindowLimit{MaxRequests: 2, Window: time.Minute},
	})

	limited := 0
	handler := OperationLimit(set, ratelimit.OpSearch, func(w http.ResponseWriter, r *http.Request) {
		limited++
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/search", nil)
		req.RemoteAddr = "10.0.0.1:4312"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.RemoteAddr = "10.0.0.1:4312"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, limited)
}

func TestOperationLimitKeysByClientIP(t *testing.T) {
	set := ratelimit.NewSet(config.RateLimitConfig{
		Search:  config.WindowLimit{MaxRequests: 1, Window: time.Minute},
		General: config.WindowLimit{MaxRequests: 1, Window: time.Minute},
		Gems:    config.WindowLimit{MaxRequests: 1, Window: time.Minute},
		Chat:    config.WindowLimit{MaxRequests: 1, Window: time.Minute},
	})

	handler := OperationLimit(set, ratelimit.OpSearch, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodGet, "/search", nil)
	first.RemoteAddr = "10.0.0.1:1000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same client is now out of budget.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client still has its own window.
	second := httptest.NewRequest(http.MethodGet, "/search", nil)
	second.RemoteAddr = "10.0.0.2:1000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIPWithoutPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.7"
	assert.Equal(t, "192.168.1.7", clientIP(r))

	r.RemoteAddr = "192.168.1.7:8080"
	assert.Equal(t, "192.168.1.7", clientIP(r))
}
