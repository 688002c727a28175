// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package gems

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/what2watch/server/internal/cache"
	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/models"
	"github.com/what2watch/server/internal/upstream"
)

type stubSource struct {
	movies      []models.CatalogItem
	series      []models.CatalogItem
	movieErr    error
	seriesErr   error
	movieCalls  atomic.Int32
	seriesCalls atomic.Int32
}

func (s *stubSource) DiscoverMovies(_ context.Context, _ upstream.DiscoverParams) ([]models.CatalogItem, error) {
	s.movieCalls.Add(1)
	return s.movies, s.movieErr
}

func (s *stubSource) DiscoverSeries(_ context.Context, _ upstream.DiscoverParams) ([]models.CatalogItem, error) {
	s.seriesCalls.Add(1)
	return s.series, s.seriesErr
}

func testGemsConfig() config.GemsConfig {
	return config.GemsConfig{
		Pages:          2,
		Limit:          15,
		MinRating:      7.2,
		MinVotes:       300,
		MaxVotes:       6000,
		MaxPopularity:  90,
		MinAgeYears:    2,
		Languages:      []string{"en", "hi"},
		ExcludedGenres: []int{99, 16},
		DecayMax:       3.5,
		SeenTTL:        24 * time.Hour,
		ResultTTL:      6 * time.Hour,
	}
}

func testStore() *cache.Tiered {
	return cache.NewTiered(cache.NewMemory(time.Minute), nil, time.Minute)
}

// gem returns an item that passes every gate.
func gem(id int) models.CatalogItem {
	return models.CatalogItem{
		ID:               id,
		Type:             models.MediaMovie,
		Title:            fmt.Sprintf("Gem %d", id),
		PosterPath:       "/p.jpg",
		VoteAverage:      7.8,
		VoteCount:        1200,
		Popularity:       20,
		OriginalLanguage: "en",
		GenreIDs:         []int{18},
		ReleaseYear:      time.Now().Year() - 5,
	}
}

func TestGateCorrectness(t *testing.T) {
	e := New(&stubSource{}, testStore(), testGemsConfig())
	currentYear := time.Now().Year()

	boundary := models.CatalogItem{
		ID: 1, Type: models.MediaMovie, Title: "Boundary",
		PosterPath: "/p.jpg", VoteAverage: 7.2, VoteCount: 300,
		Popularity: 10, OriginalLanguage: "en", GenreIDs: []int{18},
		ReleaseYear: currentYear - 2,
	}
	assert.True(t, e.passesGates(boundary), "boundary values must be included")

	tests := []struct {
		name   string
		mutate func(*models.CatalogItem)
	}{
		{"votes below floor", func(c *models.CatalogItem) { c.VoteCount = 250 }},
		{"votes above ceiling", func(c *models.CatalogItem) { c.VoteCount = 6001 }},
		{"rating below floor", func(c *models.CatalogItem) { c.VoteAverage = 7.1 }},
		{"too popular", func(c *models.CatalogItem) { c.Popularity = 91 }},
		{"too recent", func(c *models.CatalogItem) { c.ReleaseYear = currentYear - 1 }},
		{"unknown year", func(c *models.CatalogItem) { c.ReleaseYear = 0 }},
		{"language not allowed", func(c *models.CatalogItem) { c.OriginalLanguage = "xx" }},
		{"no poster", func(c *models.CatalogItem) { c.PosterPath = "" }},
		{"excluded genre", func(c *models.CatalogItem) { c.GenreIDs = []int{18, 99} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := boundary
			tt.mutate(&item)
			assert.False(t, e.passesGates(item))
		})
	}
}

func TestBaseScoreFormula(t *testing.T) {
	item := gem(1)
	item.VoteAverage = 8.0
	item.VoteCount = 1000
	item.Popularity = 30

	// 8.0*2.1 + ln(1000) - 30*0.5 = 16.8 + 6.9077... - 15
	assert.InDelta(t, 8.70775, baseScore(item), 0.001)
}

func TestDecayMonotonicity(t *testing.T) {
	cfg := testGemsConfig()
	e := New(&stubSource{}, testStore(), cfg)

	now := time.Now()
	e.now = func() time.Time { return now }

	shown := gem(1)
	fresh := gem(2)
	seen := map[string]time.Time{shown.Key(): now.Add(-time.Hour)}

	shownScore := baseScore(shown) - e.decay(seen, shown)
	freshScore := baseScore(fresh) - e.decay(seen, fresh)

	assert.Greater(t, freshScore, shownScore,
		"a never-shown item must outrank an identical one shown an hour ago")

	// penalty shrinks linearly with age
	older := map[string]time.Time{shown.Key(): now.Add(-23 * time.Hour)}
	assert.Greater(t, e.decay(seen, shown), e.decay(older, shown))

	// fully aged out
	expired := map[string]time.Time{shown.Key(): now.Add(-25 * time.Hour)}
	assert.Zero(t, e.decay(expired, shown))
}

func TestComputeRanksAndTruncates(t *testing.T) {
	var movies []models.CatalogItem
	for i := 1; i <= 30; i++ {
		item := gem(i)
		item.VoteCount = 300 + i*100 // higher id → more votes → higher score
		movies = append(movies, item)
	}

	src := &stubSource{movies: movies}
	e := New(src, testStore(), testGemsConfig())

	result, err := e.Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 15)

	for i := 1; i < len(result); i++ {
		assert.GreaterOrEqual(t, result[i-1].FinalScore, result[i].FinalScore,
			"results must be sorted by final score")
	}
	assert.Equal(t, 30, result[0].ID, "highest-scoring item first")
}

func TestComputeToleratesPartialFailure(t *testing.T) {
	src := &stubSource{
		movies:    []models.CatalogItem{gem(1)},
		seriesErr: errors.New("upstream down"),
	}
	e := New(src, testStore(), testGemsConfig())

	result, err := e.Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 1, result[0].ID)
}

func TestComputeAllFailed(t *testing.T) {
	src := &stubSource{
		movieErr:  errors.New("down"),
		seriesErr: errors.New("down"),
	}
	e := New(src, testStore(), testGemsConfig())

	result, err := e.Compute(context.Background())
	assert.ErrorIs(t, err, ErrAllPagesFailed)
	assert.Empty(t, result)
}

func TestGetServesCachedResult(t *testing.T) {
	src := &stubSource{movies: []models.CatalogItem{gem(1)}}
	e := New(src, testStore(), testGemsConfig())

	first, err := e.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	movieCalls := src.movieCalls.Load()
	second, err := e.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, movieCalls, src.movieCalls.Load(), "cached result must not refetch")
}

func TestComputeRotatesSeenItems(t *testing.T) {
	// two gems with identical stats; after the first pass both are marked
	// seen, so decay applies on the next pass
	src := &stubSource{movies: []models.CatalogItem{gem(1), gem(2)}}
	store := testStore()
	e := New(src, store, testGemsConfig())

	first, err := e.Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Zero(t, first[0].BaseScore-first[0].FinalScore, "no decay on first emission")

	second, err := e.Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 2)
	for _, item := range second {
		assert.Greater(t, item.BaseScore, item.FinalScore,
			"recently emitted items must carry a decay penalty")
	}
}

func TestComputeDeduplicatesAcrossPages(t *testing.T) {
	// both fan-out pages return the same item
	src := &stubSource{movies: []models.CatalogItem{gem(7)}, series: nil}
	e := New(src, testStore(), testGemsConfig())

	result, err := e.Compute(context.Background())
	require.NoError(t, err)
	assert.Len(t, result, 1)
}
