// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package upstream holds the clients for the third-party content APIs:
// the metadata catalog, the ratings service, and the streaming
// availability service. All requests go through the shared retrying
// fetcher and all responses are memoized with per-endpoint TTLs.
package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/what2watch/server/internal/cache"
	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/logging"
	"github.com/what2watch/server/internal/models"
)

// Fetcher is the slice of the fetch client the upstream clients need.
// Narrowed to an interface so tests can stub the transport.
type Fetcher interface {
	GetJSON(ctx context.Context, reqURL string, out interface{}) error
}

// DiscoverParams narrows discover queries. Zero values mean "no filter".
type DiscoverParams struct {
	GenreID  int
	Language string // ISO code
	Year     int
	MinVotes int
	SortBy   string // default popularity.desc
	Page     int
}

// Catalog is the movie/TV metadata catalog client.
type Catalog struct {
	fetcher Fetcher
	memory  *cache.Memory
	cfg     config.CatalogConfig
	ttls    config.CacheConfig
}

// NewCatalog creates a catalog client backed by the shared fetcher and the
// in-process cache.
func NewCatalog(fetcher Fetcher, memory *cache.Memory, cfg config.CatalogConfig, ttls config.CacheConfig) *Catalog {
	return &Catalog{fetcher: fetcher, memory: memory, cfg: cfg, ttls: ttls}
}

// SearchMulti searches movies and series by free-text query. Results are
// cached for the search TTL keyed by the query.
func (c *Catalog) SearchMulti(ctx context.Context, query string) ([]models.CatalogItem, error) {
	key := cache.Key("catalog", "search", query)
	if cached, ok := c.memory.Get(key); ok {
		return cached.([]models.CatalogItem), nil
	}

	q := url.Values{}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("query", query)
	q.Set("language", "en-US")
	q.Set("include_adult", "false")
	reqURL := fmt.Sprintf("%s/search/multi?%s", c.cfg.BaseURL, q.Encode())

	var page models.Page
	if err := c.fetcher.GetJSON(ctx, reqURL, &page); err != nil {
		return nil, err
	}

	items := normalizePage(page, models.MediaMovie)
	c.memory.SetWithTTL(key, items, c.ttls.SearchTTL)
	return items, nil
}

// Trending returns the trending feed for a time window ("day" or "week").
func (c *Catalog) Trending(ctx context.Context, window string, pageNum int) ([]models.CatalogItem, error) {
	if window != "week" {
		window = "day"
	}
	if pageNum < 1 {
		pageNum = 1
	}

	key := cache.Key("catalog", "trending", window, strconv.Itoa(pageNum))
	if cached, ok := c.memory.Get(key); ok {
		return cached.([]models.CatalogItem), nil
	}

	q := url.Values{}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("page", strconv.Itoa(pageNum))
	reqURL := fmt.Sprintf("%s/trending/all/%s?%s", c.cfg.BaseURL, window, q.Encode())

	var page models.Page
	if err := c.fetcher.GetJSON(ctx, reqURL, &page); err != nil {
		return nil, err
	}

	items := normalizePage(page, models.MediaMovie)
	c.memory.SetWithTTL(key, items, c.ttls.TrendingTTL)
	return items, nil
}

// DiscoverMovies runs a filtered movie discover query.
func (c *Catalog) DiscoverMovies(ctx context.Context, params DiscoverParams) ([]models.CatalogItem, error) {
	page, err := c.discover(ctx, "movie", params)
	if err != nil {
		return nil, err
	}
	return normalizePage(page, models.MediaMovie), nil
}

// DiscoverSeries runs a filtered series discover query.
func (c *Catalog) DiscoverSeries(ctx context.Context, params DiscoverParams) ([]models.CatalogItem, error) {
	page, err := c.discover(ctx, "tv", params)
	if err != nil {
		return nil, err
	}
	return normalizePage(page, models.MediaSeries), nil
}

func (c *Catalog) discover(ctx context.Context, kind string, params DiscoverParams) (models.Page, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.SortBy == "" {
		params.SortBy = "popularity.desc"
	}

	key := cache.GenerateKey("catalog.discover."+kind, params)
	if cached, ok := c.memory.Get(key); ok {
		return cached.(models.Page), nil
	}

	q := url.Values{}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("sort_by", params.SortBy)
	q.Set("include_adult", "false")
	q.Set("page", strconv.Itoa(params.Page))
	if params.GenreID > 0 {
		q.Set("with_genres", strconv.Itoa(params.GenreID))
	}
	if params.Language != "" {
		q.Set("with_original_language", params.Language)
	}
	if params.Year > 0 {
		if kind == "tv" {
			q.Set("first_air_date_year", strconv.Itoa(params.Year))
		} else {
			q.Set("primary_release_year", strconv.Itoa(params.Year))
		}
	}
	if params.MinVotes > 0 {
		q.Set("vote_count.gte", strconv.Itoa(params.MinVotes))
	}
	reqURL := fmt.Sprintf("%s/discover/%s?%s", c.cfg.BaseURL, kind, q.Encode())

	var page models.Page
	if err := c.fetcher.GetJSON(ctx, reqURL, &page); err != nil {
		return models.Page{}, err
	}

	logging.Ctx(ctx).Debug().
		Str("kind", kind).
		Int("page", params.Page).
		Int("results", len(page.Results)).
		Msg("catalog discover fetched")

	c.memory.SetWithTTL(key, page, c.ttls.DiscoverTTL)
	return page, nil
}

func normalizePage(page models.Page, fallback models.MediaType) []models.CatalogItem {
	items := make([]models.CatalogItem, 0, len(page.Results))
	for _, raw := range page.Results {
		if raw.Adult {
			continue
		}
		items = append(items, models.Normalize(raw, fallback))
	}
	return items
}
