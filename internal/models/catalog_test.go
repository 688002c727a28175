// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMovie(t *testing.T) {
	raw := RawItem{
		ID:               550,
		Title:            "Fight Club",
		ReleaseDate:      "1999-10-15",
		PosterPath:       "/poster.jpg",
		VoteAverage:      8.4,
		VoteCount:        27000,
		Popularity:       61.4,
		OriginalLanguage: "en",
		GenreIDs:         []int{18, 53},
	}

	item := Normalize(raw, MediaMovie)
	assert.Equal(t, MediaMovie, item.Type)
	assert.Equal(t, "Fight Club", item.Title)
	assert.Equal(t, 1999, item.ReleaseYear)
	assert.Equal(t, "movie_550", item.Key())
}

func TestNormalizeSeriesUsesNameAndFirstAirDate(t *testing.T) {
	raw := RawItem{
		ID:           1396,
		Name:         "Breaking Bad",
		FirstAirDate: "2008-01-20",
	}

	item := Normalize(raw, MediaSeries)
	assert.Equal(t, MediaSeries, item.Type)
	assert.Equal(t, "Breaking Bad", item.Title)
	assert.Equal(t, 2008, item.ReleaseYear)
}

func TestNormalizeMediaTypeFieldWins(t *testing.T) {
	// multi-search tags each result; the tag overrides the caller's default
	raw := RawItem{ID: 1, MediaType: "tv", Name: "Dark", FirstAirDate: "2017-12-01"}
	item := Normalize(raw, MediaMovie)
	assert.Equal(t, MediaSeries, item.Type)
	assert.Equal(t, "Dark", item.Title)
}

func TestReleaseYear(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2014-11-05", 2014},
		{"1999", 1999},
		{"", 0},
		{"n/a", 0},
		{"20", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReleaseYear(tt.date), "date %q", tt.date)
	}
}

func TestGenreMapRoundTrip(t *testing.T) {
	id, ok := GenreID("Action")
	assert.True(t, ok)
	assert.Equal(t, 28, id)

	name, ok := GenreName(28)
	assert.True(t, ok)
	assert.Equal(t, "action", name)

	_, ok = GenreID("telenovela")
	assert.False(t, ok)
}

func TestGenreIDSciFiSpellings(t *testing.T) {
	for _, spelling := range []string{"scifi", "sci-fi", "Sci Fi", "science fiction"} {
		id, ok := GenreID(spelling)
		assert.True(t, ok, spelling)
		assert.Equal(t, 878, id, spelling)
	}
}

func TestLanguageCode(t *testing.T) {
	code, ok := LanguageCode("Hindi")
	assert.True(t, ok)
	assert.Equal(t, "hi", code)

	code, ok = LanguageCode("en")
	assert.True(t, ok)
	assert.Equal(t, "en", code)

	_, ok = LanguageCode("klingon")
	assert.False(t, ok)
}

func TestPosterURL(t *testing.T) {
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/x.jpg", PosterURL("/x.jpg"))
	assert.Empty(t, PosterURL(""))
}
