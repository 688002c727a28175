// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Pruner is anything holding expirable in-memory state: the response cache,
// the rate limit windows, and the chat session store all satisfy it.
type Pruner interface {
	// Prune drops expired entries and reports how many were removed.
	Prune() int
}

// PrunerFunc adapts a plain function to the Pruner interface.
type PrunerFunc func() int

func (f PrunerFunc) Prune() int { return f() }

// JanitorService periodically sweeps expired entries out of in-memory
// stores. Without it, caches for keys that are never read again would grow
// without bound.
type JanitorService struct {
	pruners  map[string]Pruner
	interval time.Duration
	logger   zerolog.Logger
}

// NewJanitorService creates a janitor sweeping the given stores.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewJanitorService(pruners map[string]Pruner, interval time.Duration, logger zerolog.Logger) *JanitorService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &JanitorService{
		pruners:  pruners,
		interval: interval,
		logger:   logger.With().Str("service", "janitor").Logger(),
	}
}

// Serve implements suture.Service.
func (s *JanitorService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("stores", len(s.pruners)).
		Msg("janitor starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("janitor shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *JanitorService) sweep() {
	total := 0
	for name, p := range s.pruners {
		removed := p.Prune()
		total += removed
		if removed > 0 {
			s.logger.Debug().Str("store", name).Int("removed", removed).Msg("pruned expired entries")
		}
	}
	if total > 0 {
		s.logger.Debug().Int("total_removed", total).Msg("sweep complete")
	}
}

func (s *JanitorService) String() string {
	return "janitor"
}
