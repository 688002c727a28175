// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package ratelimit

import (
	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/metrics"
)

// Operation names a rate-limited surface of the API.
type Operation string

const (
	OpSearch  Operation = "search"
	OpGeneral Operation = "general"
	OpGems    Operation = "gems"
	OpChat    Operation = "chat"
)

// Set holds one Limiter per operation. A disabled Set allows everything.
type Set struct {
	limiters map[Operation]*Limiter
	disabled bool
}

// NewSet builds limiters from configuration.
func NewSet(cfg config.RateLimitConfig) *Set {
	return &Set{
		disabled: cfg.Disabled,
		limiters: map[Operation]*Limiter{
			OpSearch:  New(cfg.Search.MaxRequests, cfg.Search.Window),
			OpGeneral: New(cfg.General.MaxRequests, cfg.General.Window),
			OpGems:    New(cfg.Gems.MaxRequests, cfg.Gems.Window),
			OpChat:    New(cfg.Chat.MaxRequests, cfg.Chat.Window),
		},
	}
}

// Allow checks clientID against the limiter for op. Unknown operations
// fall back to the general limiter. Rejections are counted in metrics.
func (s *Set) Allow(op Operation, clientID string) bool {
	if s.disabled {
		return true
	}
	l, ok := s.limiters[op]
	if !ok {
		l = s.limiters[OpGeneral]
	}
	allowed := l.Allow(clientID)
	if !allowed {
		metrics.RateLimitRejections.WithLabelValues(string(op)).Inc()
	}
	return allowed
}

// Remaining reports the budget left for clientID under op.
func (s *Set) Remaining(op Operation, clientID string) int {
	l, ok := s.limiters[op]
	if !ok {
		l = s.limiters[OpGeneral]
	}
	return l.Remaining(clientID)
}

// Prune drops elapsed windows across all operations and returns the
// total number of client entries removed.
func (s *Set) Prune() int {
	total := 0
	for _, l := range s.limiters {
		total += l.Prune()
	}
	return total
}
