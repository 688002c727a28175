// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package gems implements the hidden-gems ranking engine: a concurrent
// multi-page fan-out over the catalog, hard quality gates, a composite
// score that rewards quality and penalizes mainstream popularity, and a
// time-decayed rotation so the same titles are not shown twice in a day.
package gems

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/what2watch/server/internal/cache"
	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/logging"
	"github.com/what2watch/server/internal/metrics"
	"github.com/what2watch/server/internal/models"
	"github.com/what2watch/server/internal/upstream"
)

const (
	resultKey = "gems:result"
	seenKey   = "gems:seen"
)

// ErrAllPagesFailed means every fan-out fetch failed; there is nothing to
// rank and no stale result to serve.
var ErrAllPagesFailed = errors.New("gems: all catalog pages failed")

// CatalogSource is the slice of the catalog client the engine needs.
type CatalogSource interface {
	DiscoverMovies(ctx context.Context, params upstream.DiscoverParams) ([]models.CatalogItem, error)
	DiscoverSeries(ctx context.Context, params upstream.DiscoverParams) ([]models.CatalogItem, error)
}

// Engine computes and caches the hidden-gems result set.
type Engine struct {
	source CatalogSource
	store  *cache.Tiered
	cfg    config.GemsConfig

	allowedLangs   map[string]bool
	excludedGenres map[int]bool

	// serializes recomputation so concurrent misses do one fan-out
	computeMu sync.Mutex

	now func() time.Time
}

// New creates the engine. store holds both the ranked result and the seen
// records; both survive restarts when the persistent tier is configured.
func New(source CatalogSource, store *cache.Tiered, cfg config.GemsConfig) *Engine {
	langs := make(map[string]bool, len(cfg.Languages))
	for _, l := range cfg.Languages {
		langs[l] = true
	}
	genres := make(map[int]bool, len(cfg.ExcludedGenres))
	for _, g := range cfg.ExcludedGenres {
		genres[g] = true
	}
	return &Engine{
		source:         source,
		store:          store,
		cfg:            cfg,
		allowedLangs:   langs,
		excludedGenres: genres,
		now:            time.Now,
	}
}

// Get returns the current hidden-gems set, recomputing when the cached
// result has expired.
func (e *Engine) Get(ctx context.Context) ([]models.ScoredItem, error) {
	var cached []models.ScoredItem
	if ok, err := e.store.GetJSON(ctx, resultKey, &cached); err == nil && ok {
		return cached, nil
	}

	e.computeMu.Lock()
	defer e.computeMu.Unlock()

	// another request may have finished the computation while we waited
	if ok, err := e.store.GetJSON(ctx, resultKey, &cached); err == nil && ok {
		return cached, nil
	}
	return e.Compute(ctx)
}

// Compute runs the full ranking pass: fan-out, gates, scoring, decay,
// truncation, and seen-record update. The result is cached for the
// configured TTL.
func (e *Engine) Compute(ctx context.Context) ([]models.ScoredItem, error) {
	start := e.now()

	candidates, err := e.fanOut(ctx)
	if err != nil {
		return nil, err
	}

	seen := e.loadSeen(ctx)

	gated := make([]models.ScoredItem, 0, len(candidates))
	for _, item := range candidates {
		if !e.passesGates(item) {
			continue
		}
		base := baseScore(item)
		gated = append(gated, models.ScoredItem{
			CatalogItem: item,
			BaseScore:   base,
			FinalScore:  base - e.decay(seen, item),
		})
	}
	metrics.GemsCandidates.Observe(float64(len(gated)))

	sort.SliceStable(gated, func(i, j int) bool {
		return gated[i].FinalScore > gated[j].FinalScore
	})
	if len(gated) > e.cfg.Limit {
		gated = gated[:e.cfg.Limit]
	}

	e.markSeen(ctx, seen, gated)

	if err := e.store.SetJSON(ctx, resultKey, gated, e.cfg.ResultTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("gems: caching result failed")
	}

	metrics.GemsComputations.Inc()
	metrics.GemsComputationDuration.Observe(e.now().Sub(start).Seconds())
	logging.Ctx(ctx).Info().
		Int("candidates", len(candidates)).
		Int("emitted", len(gated)).
		Dur("elapsed", e.now().Sub(start)).
		Msg("hidden gems recomputed")

	return gated, nil
}

// fanOut fetches cfg.Pages pages of both movies and series concurrently.
// Individual page failures are tolerated; only a clean sweep of failures
// is an error.
func (e *Engine) fanOut(ctx context.Context) ([]models.CatalogItem, error) {
	var (
		mu       sync.Mutex
		items    []models.CatalogItem
		failures int
		fetches  int
	)

	g, gctx := errgroup.WithContext(ctx)

	collect := func(fetch func() ([]models.CatalogItem, error)) {
		fetches++
		g.Go(func() error {
			page, err := fetch()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				logging.Ctx(ctx).Warn().Err(err).Msg("gems: page fetch failed")
				return nil // partial failure is fine
			}
			items = append(items, page...)
			return nil
		})
	}

	for p := 1; p <= e.cfg.Pages; p++ {
		page := p
		params := upstream.DiscoverParams{
			SortBy:   "vote_average.desc",
			MinVotes: e.cfg.MinVotes,
			Page:     page,
		}
		collect(func() ([]models.CatalogItem, error) {
			return e.source.DiscoverMovies(gctx, params)
		})
		collect(func() ([]models.CatalogItem, error) {
			return e.source.DiscoverSeries(gctx, params)
		})
	}

	_ = g.Wait() // workers never return errors

	if failures == fetches {
		return nil, ErrAllPagesFailed
	}

	return dedupe(items), nil
}

// dedupe drops repeated items, keeping first occurrence. The same title
// can appear on multiple pages or in both trending windows.
func dedupe(items []models.CatalogItem) []models.CatalogItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		k := item.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}

// passesGates applies the hard inclusion gates.
func (e *Engine) passesGates(item models.CatalogItem) bool {
	if item.VoteAverage < e.cfg.MinRating {
		return false
	}
	if item.VoteCount < e.cfg.MinVotes || item.VoteCount > e.cfg.MaxVotes {
		return false
	}
	if item.Popularity > e.cfg.MaxPopularity {
		return false
	}
	if item.ReleaseYear == 0 || e.now().Year()-item.ReleaseYear < e.cfg.MinAgeYears {
		return false
	}
	if !e.allowedLangs[item.OriginalLanguage] {
		return false
	}
	if item.PosterPath == "" {
		return false
	}
	for _, g := range item.GenreIDs {
		if e.excludedGenres[g] {
			return false
		}
	}
	return true
}

// baseScore rewards quality and vote volume, penalizes mainstream
// popularity.
func baseScore(item models.CatalogItem) float64 {
	return item.VoteAverage*2.1 + math.Log(float64(item.VoteCount)) - item.Popularity*0.5
}

// decay returns the rotation penalty for an item shown within the seen
// window: DecayMax at "just shown", linearly down to 0 at the window edge.
func (e *Engine) decay(seen map[string]time.Time, item models.CatalogItem) float64 {
	shownAt, ok := seen[item.Key()]
	if !ok {
		return 0
	}
	age := e.now().Sub(shownAt)
	if age < 0 || age >= e.cfg.SeenTTL {
		return 0
	}
	return e.cfg.DecayMax * (1 - float64(age)/float64(e.cfg.SeenTTL))
}

// loadSeen reads the seen-record map and drops entries past the window.
func (e *Engine) loadSeen(ctx context.Context) map[string]time.Time {
	seen := make(map[string]time.Time)
	if ok, err := e.store.GetJSON(ctx, seenKey, &seen); err != nil || !ok {
		return make(map[string]time.Time)
	}
	cutoff := e.now().Add(-e.cfg.SeenTTL)
	for k, t := range seen {
		if t.Before(cutoff) {
			delete(seen, k)
		}
	}
	return seen
}

// markSeen stamps every emitted item and persists the record map for the
// seen window.
func (e *Engine) markSeen(ctx context.Context, seen map[string]time.Time, emitted []models.ScoredItem) {
	now := e.now()
	for _, item := range emitted {
		seen[item.Key()] = now
	}
	if err := e.store.SetJSON(ctx, seenKey, seen, e.cfg.SeenTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("gems: persisting seen records failed")
	}
}
