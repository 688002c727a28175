// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/what2watch/server/internal/config"
)

func TestLimiterAllowsUpToMax(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client-a"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Allow("client-a"), "request over budget should be denied")
	assert.False(t, l.Allow("client-a"), "denials should repeat within the window")
}

func TestLimiterWindowReset(t *testing.T) {
	current := time.Now()
	l := New(2, time.Minute)
	l.now = func() time.Time { return current }

	require.True(t, l.Allow("client-a"))
	require.True(t, l.Allow("client-a"))
	require.False(t, l.Allow("client-a"))

	// advance past the window boundary
	current = current.Add(time.Minute + time.Second)
	assert.True(t, l.Allow("client-a"), "budget should reset after the window elapses")
	assert.Equal(t, 1, l.Remaining("client-a"))
}

func TestLimiterIndependentClients(t *testing.T) {
	l := New(1, time.Minute)

	require.True(t, l.Allow("client-a"))
	require.False(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-b"), "one client's exhaustion must not affect another")
}

func TestLimiterRemaining(t *testing.T) {
	l := New(5, time.Minute)

	assert.Equal(t, 5, l.Remaining("fresh"), "untracked client has the full budget")
	l.Allow("fresh")
	l.Allow("fresh")
	assert.Equal(t, 3, l.Remaining("fresh"))
}

func TestLimiterPrune(t *testing.T) {
	current := time.Now()
	l := New(10, time.Minute)
	l.now = func() time.Time { return current }

	l.Allow("client-a")
	l.Allow("client-b")
	require.Equal(t, 2, l.Len())

	removed := l.Prune()
	assert.Zero(t, removed, "live windows must survive pruning")

	current = current.Add(2 * time.Minute)
	removed = l.Prune()
	assert.Equal(t, 2, removed)
	assert.Zero(t, l.Len())
}

func TestLimiterConcurrentAccess(t *testing.T) {
	l := New(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("client-%d", n%3)
			for j := 0; j < 100; j++ {
				l.Allow(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, l.Len())
}

func TestSetPerOperationBudgets(t *testing.T) {
	cfg := config.RateLimitConfig{
		Search:  config.WindowLimit{MaxRequests: 2, Window: time.Minute},
		General: config.WindowLimit{MaxRequests: 5, Window: time.Minute},
		Gems:    config.WindowLimit{MaxRequests: 5, Window: time.Minute},
		Chat:    config.WindowLimit{MaxRequests: 1, Window: time.Minute},
	}
	s := NewSet(cfg)

	require.True(t, s.Allow(OpSearch, "client-a"))
	require.True(t, s.Allow(OpSearch, "client-a"))
	assert.False(t, s.Allow(OpSearch, "client-a"))

	// chat has its own budget, untouched by search traffic
	assert.True(t, s.Allow(OpChat, "client-a"))
	assert.False(t, s.Allow(OpChat, "client-a"))

	// general remains available
	assert.True(t, s.Allow(OpGeneral, "client-a"))
}

func TestSetUnknownOperationUsesGeneral(t *testing.T) {
	cfg := config.RateLimitConfig{
		Search:  config.WindowLimit{MaxRequests: 10, Window: time.Minute},
		General: config.WindowLimit{MaxRequests: 1, Window: time.Minute},
		Gems:    config.WindowLimit{MaxRequests: 10, Window: time.Minute},
		Chat:    config.WindowLimit{MaxRequests: 10, Window: time.Minute},
	}
	s := NewSet(cfg)

	require.True(t, s.Allow(Operation("mystery"), "client-a"))
	assert.False(t, s.Allow(Operation("mystery"), "client-a"))
}

func TestSetDisabled(t *testing.T) {
	cfg := config.RateLimitConfig{
		Disabled: true,
		Search:   config.WindowLimit{MaxRequests: 1, Window: time.Minute},
		General:  config.WindowLimit{MaxRequests: 1, Window: time.Minute},
		Gems:     config.WindowLimit{MaxRequests: 1, Window: time.Minute},
		Chat:     config.WindowLimit{MaxRequests: 1, Window: time.Minute},
	}
	s := NewSet(cfg)

	for i := 0; i < 50; i++ {
		require.True(t, s.Allow(OpSearch, "client-a"))
	}
}
