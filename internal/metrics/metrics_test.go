// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/gems", "200"))

	RecordAPIRequest("GET", "/api/v1/gems", "200", 50*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/gems", "200"))
	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != base+1 {
		t.Errorf("expected gauge %v, got %v", base+1, got)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != base {
		t.Errorf("expected gauge %v, got %v", base, got)
	}
}

func TestSetBreakerOpen(t *testing.T) {
	SetBreakerOpen("api.example.com", true)
	if got := testutil.ToFloat64(UpstreamBreakerState.WithLabelValues("api.example.com")); got != 1 {
		t.Errorf("expected breaker gauge 1, got %v", got)
	}

	SetBreakerOpen("api.example.com", false)
	if got := testutil.ToFloat64(UpstreamBreakerState.WithLabelValues("api.example.com")); got != 0 {
		t.Errorf("expected breaker gauge 0, got %v", got)
	}
}
