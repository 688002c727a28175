// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/what2watch/server/internal/cache"
	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/fetch"
	"github.com/what2watch/server/internal/models"
)

func testTTLs() config.CacheConfig {
	return config.CacheConfig{
		SearchTTL:          5 * time.Minute,
		TrendingTTL:        15 * time.Minute,
		DiscoverTTL:        30 * time.Minute,
		RatingsTTL:         12 * time.Hour,
		RatingsNegativeTTL: time.Hour,
		StreamingTTL:       6 * time.Hour,
	}
}

func testFetcher() *fetch.Client {
	return fetch.New(config.FetchConfig{
		MaxRetries:     0,
		AttemptTimeout: 2 * time.Second,
		BackoffBase:    time.Millisecond,
	})
}

func TestSearchMultiCachesSecondCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "dune", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"page":1,"results":[
			{"id":1,"title":"Dune","media_type":"movie","release_date":"2021-09-15","poster_path":"/d.jpg"},
			{"id":2,"name":"Dune: Prophecy","media_type":"tv","first_air_date":"2024-11-17"}
		]}`))
	}))
	defer srv.Close()

	c := NewCatalog(testFetcher(), cache.NewMemory(time.Minute),
		config.CatalogConfig{BaseURL: srv.URL, APIKey: "k"}, testTTLs())

	first, err := c.SearchMulti(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, models.MediaMovie, first[0].Type)
	assert.Equal(t, "Dune", first[0].Title)
	assert.Equal(t, 2021, first[0].ReleaseYear)
	assert.Equal(t, models.MediaSeries, first[1].Type)
	assert.Equal(t, "Dune: Prophecy", first[1].Title)

	second, err := c.SearchMulti(context.Background(), "dune")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "identical search must be served from cache")
}

func TestDiscoverMoviesBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/discover/movie", r.URL.Path)
		assert.Equal(t, "28", q.Get("with_genres"))
		assert.Equal(t, "hi", q.Get("with_original_language"))
		assert.Equal(t, "2020", q.Get("primary_release_year"))
		assert.Equal(t, "100", q.Get("vote_count.gte"))
		assert.Equal(t, "popularity.desc", q.Get("sort_by"))
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":7,"title":"War","release_date":"2020-02-01"}]}`))
	}))
	defer srv.Close()

	c := NewCatalog(testFetcher(), cache.NewMemory(time.Minute),
		config.CatalogConfig{BaseURL: srv.URL, APIKey: "k"}, testTTLs())

	items, err := c.DiscoverMovies(context.Background(), DiscoverParams{
		GenreID: 28, Language: "hi", Year: 2020, MinVotes: 100,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.MediaMovie, items[0].Type)
}

func TestDiscoverSeriesUsesFirstAirDateYear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/tv", r.URL.Path)
		assert.Equal(t, "2019", r.URL.Query().Get("first_air_date_year"))
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":9,"name":"Dark","first_air_date":"2017-12-01"}]}`))
	}))
	defer srv.Close()

	c := NewCatalog(testFetcher(), cache.NewMemory(time.Minute),
		config.CatalogConfig{BaseURL: srv.URL, APIKey: "k"}, testTTLs())

	items, err := c.DiscoverSeries(context.Background(), DiscoverParams{Year: 2019})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.MediaSeries, items[0].Type)
	assert.Equal(t, "Dark", items[0].Title)
}

func TestRatingsByTitleFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Dune", r.URL.Query().Get("t"))
		assert.Equal(t, "2021", r.URL.Query().Get("y"))
		_, _ = w.Write([]byte(`{"Response":"True","Title":"Dune","Year":"2021","imdbRating":"8.0","imdbID":"tt1160419"}`))
	}))
	defer srv.Close()

	r := NewRatings(testFetcher(), cache.NewMemory(time.Minute),
		config.RatingsConfig{BaseURL: srv.URL, APIKey: "k"}, testTTLs())

	rating, err := r.ByTitle(context.Background(), "Dune", 2021)
	require.NoError(t, err)
	assert.True(t, rating.Found)
	assert.Equal(t, "8.0", rating.IMDBRating)
}

func TestRatingsByTitleNotFoundCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	}))
	defer srv.Close()

	r := NewRatings(testFetcher(), cache.NewMemory(time.Minute),
		config.RatingsConfig{BaseURL: srv.URL, APIKey: "k"}, testTTLs())

	rating, err := r.ByTitle(context.Background(), "No Such Film", 0)
	require.NoError(t, err)
	assert.False(t, rating.Found)

	// the miss itself is cached
	_, err = r.ByTitle(context.Background(), "No Such Film", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookupIDMatchLadder(t *testing.T) {
	candidates := []searchResult{
		{ID: 1, Name: "Dune Documentary", Year: 2019, CatalogID: 900},
		{ID: 2, Name: "Dune", Year: 1984, CatalogID: 841},
		{ID: 3, Name: "Dune", Year: 2021, CatalogID: 438631},
	}

	tests := []struct {
		name      string
		title     string
		year      int
		catalogID int
		want      int
	}{
		{"catalog id wins", "Dune", 1984, 438631, 3},
		{"exact name and year", "Dune", 1984, 0, 2},
		{"exact name alone takes first exact", "dune", 0, 0, 2},
		{"contains fallback", "Docu", 0, 0, 1},
		{"first result as last resort", "Arrival", 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickMatch(candidates, tt.title, tt.year, tt.catalogID))
		})
	}
}

func TestLookupIDNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title_results":[]}`))
	}))
	defer srv.Close()

	s := NewStreaming(testFetcher(), cache.NewMemory(time.Minute),
		config.StreamingConfig{BaseURL: srv.URL, APIKey: "k", Region: "IN"}, testTTLs())

	_, err := s.LookupID(context.Background(), "Nothing", 0, 0)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSourcesFilteredAndDeduped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/title/42/sources/", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"name":"Netflix","type":"sub","region":"IN","web_url":"https://n/1"},
			{"name":"Netflix","type":"sub","region":"IN","web_url":"https://n/2"},
			{"name":"Netflix","type":"sub","region":"US","web_url":"https://n/3"},
			{"name":"Obscure TV","type":"sub","region":"IN","web_url":"https://o/1"},
			{"name":"Prime Video","type":"free","region":"IN","web_url":"https://p/1"},
			{"name":"Prime Video","type":"rent","region":"IN","web_url":""}
		]`))
	}))
	defer srv.Close()

	s := NewStreaming(testFetcher(), cache.NewMemory(time.Minute),
		config.StreamingConfig{
			BaseURL:            srv.URL,
			APIKey:             "k",
			Region:             "IN",
			PreferredPlatforms: []string{"Netflix", "Prime Video"},
		}, testTTLs())

	sources, err := s.Sources(context.Background(), 42)
	require.NoError(t, err)

	// wrong region, unknown platform, wrong offer type, missing URL and
	// the duplicate (Netflix, sub) are all dropped
	require.Len(t, sources, 1)
	assert.Equal(t, "Netflix", sources[0].Name)
	assert.Equal(t, "sub", sources[0].Type)
	assert.Equal(t, "https://n/1", sources[0].WebURL)
}
