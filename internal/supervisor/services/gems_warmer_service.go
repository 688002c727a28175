// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/what2watch/server/internal/models"
)

// GemsEngine is the slice of the gems engine the warmer needs.
type GemsEngine interface {
	// Get returns the current gems list, computing it when the cached
	// result has expired.
	Get(ctx context.Context) ([]models.ScoredItem, error)
}

// GemsWarmerService keeps the hidden gems list warm so user-facing requests
// never pay the fan-out cost. It refreshes on startup and then on an
// interval slightly inside the result TTL. A zero interval disables the
// warmer entirely; gems are then computed lazily on first request.
type GemsWarmerService struct {
	engine   GemsEngine
	interval time.Duration
	logger   zerolog.Logger
}

// NewGemsWarmerService creates a warmer for the given engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGemsWarmerService(engine GemsEngine, interval time.Duration, logger zerolog.Logger) *GemsWarmerService {
	return &GemsWarmerService{
		engine:   engine,
		interval: interval,
		logger:   logger.With().Str("service", "gems-warmer").Logger(),
	}
}

// Serve implements suture.Service.
func (s *GemsWarmerService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info().Msg("gems warmer disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	s.logger.Info().Dur("interval", s.interval).Msg("gems warmer starting")

	// Warm immediately so the first request after boot hits the cache.
	s.warm(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("gems warmer shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.warm(ctx)
		}
	}
}

func (s *GemsWarmerService) warm(ctx context.Context) {
	start := time.Now()
	items, err := s.engine.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("gems refresh failed (will retry on schedule)")
		return
	}
	s.logger.Info().
		Int("items", len(items)).
		Dur("took", time.Since(start)).
		Msg("gems list warm")
}

func (s *GemsWarmerService) String() string {
	return "gems-warmer"
}
