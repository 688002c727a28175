// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package conversation

import (
	"context"

	"github.com/what2watch/server/internal/models"
	"github.com/what2watch/server/internal/upstream"
)

// discoverSource is the slice of the catalog client the recommender needs.
type discoverSource interface {
	DiscoverMovies(ctx context.Context, params upstream.DiscoverParams) ([]models.CatalogItem, error)
}

// CatalogRecommender turns filled slots into a catalog discover query.
// Unknown genre names fall back to an unfiltered query; unknown languages
// fall back to English.
type CatalogRecommender struct {
	source discoverSource
}

// NewCatalogRecommender creates the discover-backed recommender.
func NewCatalogRecommender(source discoverSource) *CatalogRecommender {
	return &CatalogRecommender{source: source}
}

// Recommend implements Recommender.
func (r *CatalogRecommender) Recommend(ctx context.Context, genre, language string, year int) ([]models.CatalogItem, error) {
	params := upstream.DiscoverParams{
		MinVotes: 100,
		Year:     year,
	}
	if id, ok := models.GenreID(genre); ok {
		params.GenreID = id
	}
	if code, ok := models.LanguageCode(language); ok {
		params.Language = code
	} else {
		params.Language = "en"
	}
	return r.source.DiscoverMovies(ctx, params)
}
