// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package ratelimit implements fixed-window request limiting per client
// identity. Each logical operation (search, chat, gems) gets its own
// Limiter instance with its own budget; expensive operations get tighter
// limits.
//
// This is advisory backpressure, not a security boundary.
package ratelimit

import (
	"sync"
	"time"
)

// window tracks request counts for one client within the current window.
type window struct {
	start time.Time
	count int
}

// Limiter is a fixed-window rate limiter keyed by client identity.
// Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxRequests int
	windowSize  time.Duration
	now         func() time.Time
}

// New creates a limiter permitting maxRequests per windowSize per client.
func New(maxRequests int, windowSize time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 60
	}
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	return &Limiter{
		windows:     make(map[string]*window),
		maxRequests: maxRequests,
		windowSize:  windowSize,
		now:         time.Now,
	}
}

// Allow reports whether clientID may proceed, counting this request against
// the client's window. Once a window's budget is exhausted, requests are
// denied until the window rolls over.
func (l *Limiter) Allow(clientID string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[clientID]
	if !exists || now.Sub(w.start) >= l.windowSize {
		l.windows[clientID] = &window{start: now, count: 1}
		return true
	}

	if w.count >= l.maxRequests {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests clientID has left in the current
// window. A client with no window has the full budget.
func (l *Limiter) Remaining(clientID string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[clientID]
	if !exists || now.Sub(w.start) >= l.windowSize {
		return l.maxRequests
	}
	if w.count >= l.maxRequests {
		return 0
	}
	return l.maxRequests - w.count
}

// Prune removes windows that have fully elapsed. Returns the number of
// clients removed. Run periodically to bound memory.
func (l *Limiter) Prune() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for clientID, w := range l.windows {
		if now.Sub(w.start) >= l.windowSize {
			delete(l.windows, clientID)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
