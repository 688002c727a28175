// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/what2watch/server/internal/models"
	"github.com/what2watch/server/internal/upstream"
)

const (
	minReleaseYear = 1888
	maxReleaseYear = 2100
)

// CatalogSearch handles GET /api/v1/catalog/search?q=
func (h *Handler) CatalogSearch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		rw.BadRequest("Query parameter 'q' is required")
		return
	}

	items, err := h.catalog.SearchMulti(r.Context(), query)
	if err != nil {
		upstreamError(rw, "catalog", err)
		return
	}

	rw.SuccessList(items, len(items))
}

// CatalogTrending handles GET /api/v1/catalog/trending?time=&page=
func (h *Handler) CatalogTrending(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	window := r.URL.Query().Get("time")
	if window == "" {
		window = "day"
	}
	if window != "day" && window != "week" {
		rw.BadRequest("Parameter 'time' must be 'day' or 'week'")
		return
	}

	pageNum, ok := parsePage(rw, r.URL.Query().Get("page"))
	if !ok {
		return
	}

	items, err := h.catalog.Trending(r.Context(), window, pageNum)
	if err != nil {
		upstreamError(rw, "catalog", err)
		return
	}

	rw.SuccessList(items, len(items))
}

// CatalogDiscover handles GET /api/v1/catalog/discover?genre=&language=&year=&type=&page=
func (h *Handler) CatalogDiscover(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	params := upstream.DiscoverParams{
		MinVotes: 100,
		SortBy:   "popularity.desc",
	}

	if genre := strings.TrimSpace(q.Get("genre")); genre != "" {
		id, ok := models.GenreID(genre)
		if !ok {
			rw.BadRequest("Unknown genre: " + genre)
			return
		}
		params.GenreID = id
	}

	if lang := strings.TrimSpace(q.Get("language")); lang != "" {
		code, ok := models.LanguageCode(lang)
		if !ok {
			rw.BadRequest("Unknown language: " + lang)
			return
		}
		params.Language = code
	}

	if yearStr := q.Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil || year < minReleaseYear || year > maxReleaseYear {
			rw.BadRequest("Parameter 'year' must be a four digit year")
			return
		}
		params.Year = year
	}

	pageNum, ok := parsePage(rw, q.Get("page"))
	if !ok {
		return
	}
	params.Page = pageNum

	mediaType := q.Get("type")
	if mediaType == "" {
		mediaType = "movie"
	}

	var (
		items []models.CatalogItem
		err   error
	)
	switch mediaType {
	case "movie":
		items, err = h.catalog.DiscoverMovies(r.Context(), params)
	case "series", "tv":
		items, err = h.catalog.DiscoverSeries(r.Context(), params)
	default:
		rw.BadRequest("Parameter 'type' must be 'movie' or 'series'")
		return
	}
	if err != nil {
		upstreamError(rw, "catalog", err)
		return
	}

	rw.SuccessList(items, len(items))
}

// parsePage parses an optional page parameter, writing a 400 on bad input.
// The catalog API caps pagination at 500 pages.
func parsePage(rw *ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 1, true
	}
	pageNum, err := strconv.Atoi(raw)
	if err != nil || pageNum < 1 || pageNum > 500 {
		rw.BadRequest("Parameter 'page' must be an integer between 1 and 500")
		return 0, false
	}
	return pageNum, true
}
