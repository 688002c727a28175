// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package models holds the normalized domain types shared across upstream
// clients, the ranking engine, and the API layer.
package models

import (
	"strconv"
	"strings"
)

// MediaType distinguishes movies from series in normalized items.
type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaSeries MediaType = "series"
)

// RawItem is the upstream catalog list-item shape. Movies carry
// title/release_date, series carry name/first_air_date; normalization
// collapses the two.
type RawItem struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	MediaType        string  `json:"media_type"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	Overview         string  `json:"overview"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int   `json:"genre_ids"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	Adult            bool    `json:"adult"`
}

// Page is the upstream paginated list envelope.
type Page struct {
	Page         int       `json:"page"`
	Results      []RawItem `json:"results"`
	TotalPages   int       `json:"total_pages"`
	TotalResults int       `json:"total_results"`
}

// CatalogItem is the normalized item shape. ReleaseYear is 0 when the
// upstream date string has no parseable 4-digit year prefix.
type CatalogItem struct {
	ID               int       `json:"id"`
	Type             MediaType `json:"type"`
	Title            string    `json:"title"`
	PosterPath       string    `json:"poster_path,omitempty"`
	Overview         string    `json:"overview,omitempty"`
	VoteAverage      float64   `json:"vote_average"`
	VoteCount        int       `json:"vote_count"`
	Popularity       float64   `json:"popularity"`
	OriginalLanguage string    `json:"original_language"`
	GenreIDs         []int     `json:"genre_ids"`
	ReleaseYear      int       `json:"release_year,omitempty"`
}

// Key returns the "{type}_{id}" identity used for seen records and
// worth-it cache entries.
func (c CatalogItem) Key() string {
	return string(c.Type) + "_" + strconv.Itoa(c.ID)
}

// ScoredItem is a CatalogItem with ranking scores attached. Computed fresh
// per ranking pass.
type ScoredItem struct {
	CatalogItem
	BaseScore  float64 `json:"base_score"`
	FinalScore float64 `json:"final_score"`
}

// Normalize converts a raw upstream item into a CatalogItem. mediaType is
// the caller's knowledge of what endpoint produced the item; a non-empty
// media_type field on the item itself wins (multi-search mixes both).
func Normalize(raw RawItem, mediaType MediaType) CatalogItem {
	t := mediaType
	switch raw.MediaType {
	case "movie":
		t = MediaMovie
	case "tv":
		t = MediaSeries
	}

	title := raw.Title
	date := raw.ReleaseDate
	if t == MediaSeries {
		title = raw.Name
		date = raw.FirstAirDate
	}
	if title == "" {
		// mixed feeds occasionally carry the other shape's field
		if raw.Title != "" {
			title = raw.Title
		} else {
			title = raw.Name
		}
	}
	if date == "" {
		if raw.ReleaseDate != "" {
			date = raw.ReleaseDate
		} else {
			date = raw.FirstAirDate
		}
	}

	return CatalogItem{
		ID:               raw.ID,
		Type:             t,
		Title:            title,
		PosterPath:       raw.PosterPath,
		Overview:         raw.Overview,
		VoteAverage:      raw.VoteAverage,
		VoteCount:        raw.VoteCount,
		Popularity:       raw.Popularity,
		OriginalLanguage: raw.OriginalLanguage,
		GenreIDs:         raw.GenreIDs,
		ReleaseYear:      ReleaseYear(date),
	}
}

// ReleaseYear extracts the 4-digit year prefix of an upstream date string
// ("2014-11-05" → 2014). Returns 0 when absent or unparseable.
func ReleaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

// PosterURL builds the full image URL for a poster path, or "" when the
// item has no poster.
func PosterURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + posterPath
}

// genrePairs maps user-facing genre names to upstream genre IDs.
var genrePairs = []struct {
	Name string
	ID   int
}{
	{"action", 28},
	{"adventure", 12},
	{"animation", 16},
	{"comedy", 35},
	{"crime", 80},
	{"documentary", 99},
	{"drama", 18},
	{"family", 10751},
	{"fantasy", 14},
	{"history", 36},
	{"horror", 27},
	{"music", 10402},
	{"mystery", 9648},
	{"romance", 10749},
	{"scifi", 878},
	{"thriller", 53},
	{"war", 10752},
	{"western", 37},
}

var (
	genreByName = func() map[string]int {
		m := make(map[string]int, len(genrePairs))
		for _, p := range genrePairs {
			m[p.Name] = p.ID
		}
		return m
	}()
	genreByID = func() map[int]string {
		m := make(map[int]string, len(genrePairs))
		for _, p := range genrePairs {
			m[p.ID] = p.Name
		}
		return m
	}()
)

// GenreID resolves a user-facing genre name to the upstream genre ID.
// Hyphenated and spaced spellings of sci-fi collapse to the canonical key.
func GenreID(name string) (int, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "sci-fi", "scifi")
	key = strings.ReplaceAll(key, "sci fi", "scifi")
	key = strings.ReplaceAll(key, "science fiction", "scifi")
	id, ok := genreByName[key]
	return id, ok
}

// GenreName resolves an upstream genre ID back to its user-facing name.
func GenreName(id int) (string, bool) {
	name, ok := genreByID[id]
	return name, ok
}

// GenreNames maps a list of genre IDs to names, dropping unknown IDs.
func GenreNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := genreByID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

// languageCodes maps spoken-language names to upstream ISO codes.
var languageCodes = map[string]string{
	"english":  "en",
	"hindi":    "hi",
	"spanish":  "es",
	"french":   "fr",
	"japanese": "ja",
	"korean":   "ko",
}

// LanguageCode resolves a language name to its ISO code. Inputs that
// already look like a two-letter code pass through.
func LanguageCode(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if code, ok := languageCodes[key]; ok {
		return code, true
	}
	if len(key) == 2 {
		for _, code := range languageCodes {
			if key == code {
				return key, true
			}
		}
	}
	return "", false
}
