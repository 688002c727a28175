// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/what2watch/server/internal/cache"
	"github.com/what2watch/server/internal/config"
)

// TitleRating is the normalized ratings-service answer for one title.
// Found=false means the service had no entry; that answer is itself cached,
// with a shorter TTL than positive answers.
type TitleRating struct {
	Found      bool   `json:"found"`
	Title      string `json:"title,omitempty"`
	Year       string `json:"year,omitempty"`
	IMDBRating string `json:"imdb_rating,omitempty"`
	Metascore  string `json:"metascore,omitempty"`
	IMDBID     string `json:"imdb_id,omitempty"`
	Rated      string `json:"rated,omitempty"`
	Runtime    string `json:"runtime,omitempty"`
	Plot       string `json:"plot,omitempty"`
}

// ratingsResponse is the OMDb-shaped wire format. The service signals a
// miss with Response="False" and HTTP 200.
type ratingsResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	IMDBRating string `json:"imdbRating"`
	Metascore  string `json:"Metascore"`
	IMDBID     string `json:"imdbID"`
	Rated      string `json:"Rated"`
	Runtime    string `json:"Runtime"`
	Plot       string `json:"Plot"`
}

// Ratings is the title-ratings lookup client.
type Ratings struct {
	fetcher Fetcher
	memory  *cache.Memory
	cfg     config.RatingsConfig
	ttls    config.CacheConfig
}

// NewRatings creates a ratings client.
func NewRatings(fetcher Fetcher, memory *cache.Memory, cfg config.RatingsConfig, ttls config.CacheConfig) *Ratings {
	return &Ratings{fetcher: fetcher, memory: memory, cfg: cfg, ttls: ttls}
}

// ByTitle looks up external ratings for a title, optionally narrowed by
// release year. A "not found" answer is returned as Found=false, not an
// error, and is cached under a short negative TTL so repeated lookups for
// missing titles stay cheap without pinning the miss for hours.
func (r *Ratings) ByTitle(ctx context.Context, title string, year int) (TitleRating, error) {
	key := cache.Key("ratings", "title", title, strconv.Itoa(year))
	if cached, ok := r.memory.Get(key); ok {
		return cached.(TitleRating), nil
	}

	q := url.Values{}
	q.Set("apikey", r.cfg.APIKey)
	q.Set("t", title)
	if year > 0 {
		q.Set("y", strconv.Itoa(year))
	}
	reqURL := fmt.Sprintf("%s/?%s", r.cfg.BaseURL, q.Encode())

	var resp ratingsResponse
	if err := r.fetcher.GetJSON(ctx, reqURL, &resp); err != nil {
		return TitleRating{}, err
	}

	if resp.Response == "False" {
		miss := TitleRating{Found: false}
		r.memory.SetWithTTL(key, miss, r.ttls.RatingsNegativeTTL)
		return miss, nil
	}

	rating := TitleRating{
		Found:      true,
		Title:      resp.Title,
		Year:       resp.Year,
		IMDBRating: resp.IMDBRating,
		Metascore:  resp.Metascore,
		IMDBID:     resp.IMDBID,
		Rated:      resp.Rated,
		Runtime:    resp.Runtime,
		Plot:       resp.Plot,
	}
	r.memory.SetWithTTL(key, rating, r.ttls.RatingsTTL)
	return rating, nil
}
