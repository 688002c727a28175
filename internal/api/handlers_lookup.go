// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/what2watch/server/internal/upstream"
)

// Ratings handles GET /api/v1/ratings?title=&year=
// A title the ratings service does not know yields a 404 envelope; the
// negative result is cached upstream so repeat misses stay cheap.
func (h *Handler) Ratings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		rw.BadRequest("Query parameter 'title' is required")
		return
	}

	year := 0
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil || parsed < minReleaseYear || parsed > maxReleaseYear {
			rw.BadRequest("Parameter 'year' must be a four digit year")
			return
		}
		year = parsed
	}

	rating, err := h.ratings.ByTitle(r.Context(), title, year)
	if err != nil {
		upstreamError(rw, "ratings", err)
		return
	}
	if !rating.Found {
		rw.NotFound("No rating found for " + title)
		return
	}

	rw.Success(rating)
}

// StreamingID handles GET /api/v1/streaming/id?title=&year=&catalog_id=
func (h *Handler) StreamingID(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	title := strings.TrimSpace(q.Get("title"))
	if title == "" {
		rw.BadRequest("Query parameter 'title' is required")
		return
	}

	year := 0
	if yearStr := q.Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil {
			rw.BadRequest("Parameter 'year' must be an integer")
			return
		}
		year = parsed
	}

	catalogID := 0
	if idStr := q.Get("catalog_id"); idStr != "" {
		parsed, err := strconv.Atoi(idStr)
		if err != nil {
			rw.BadRequest("Parameter 'catalog_id' must be an integer")
			return
		}
		catalogID = parsed
	}

	id, err := h.streaming.LookupID(r.Context(), title, year, catalogID)
	if err != nil {
		if errors.Is(err, upstream.ErrNoMatch) {
			rw.NotFound("No streaming record found for " + title)
			return
		}
		upstreamError(rw, "streaming", err)
		return
	}

	rw.Success(map[string]int{"id": id})
}

// StreamingSources handles GET /api/v1/streaming/sources/{id}
func (h *Handler) StreamingSources(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		rw.BadRequest("Path parameter 'id' must be a positive integer")
		return
	}

	sources, err := h.streaming.Sources(r.Context(), id)
	if err != nil {
		upstreamError(rw, "streaming", err)
		return
	}

	rw.SuccessList(sources, len(sources))
}

// Gems handles GET /api/v1/gems
func (h *Handler) Gems(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	items, err := h.gems.Get(r.Context())
	if err != nil {
		upstreamError(rw, "catalog", err)
		return
	}

	rw.SuccessList(items, len(items))
}
