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
	"strings"

	"github.com/what2watch/server/internal/cache"
	"github.com/what2watch/server/internal/config"
)

// ErrNoMatch is returned by LookupID when the availability service has no
// entry resembling the requested title.
var ErrNoMatch = fmt.Errorf("streaming: no matching title")

// Source is one streaming offer for a title, already filtered to the
// configured region and platform allow-list.
type Source struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"` // "sub", "buy" or "rent"
	Region string  `json:"region"`
	WebURL string  `json:"web_url"`
	Price  float64 `json:"price,omitempty"`
	Format string  `json:"format,omitempty"`
}

// searchResult is one candidate from the availability service's title
// search.
type searchResult struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Year      int    `json:"year"`
	CatalogID int    `json:"tmdb_id"`
}

type searchResponse struct {
	TitleResults []searchResult `json:"title_results"`
}

// Streaming is the streaming-availability client.
type Streaming struct {
	fetcher Fetcher
	memory  *cache.Memory
	cfg     config.StreamingConfig
	ttl     config.CacheConfig
}

// NewStreaming creates a streaming availability client.
func NewStreaming(fetcher Fetcher, memory *cache.Memory, cfg config.StreamingConfig, ttl config.CacheConfig) *Streaming {
	return &Streaming{fetcher: fetcher, memory: memory, cfg: cfg, ttl: ttl}
}

// LookupID resolves a title to the availability service's internal ID.
// Candidates are matched in priority order: catalog ID, exact name and
// year, exact name, name contains, then the first result as a last resort.
func (s *Streaming) LookupID(ctx context.Context, title string, year, catalogID int) (int, error) {
	key := cache.Key("streaming", "id", title, strconv.Itoa(year), strconv.Itoa(catalogID))
	if cached, ok := s.memory.Get(key); ok {
		return cached.(int), nil
	}

	q := url.Values{}
	q.Set("apiKey", s.cfg.APIKey)
	q.Set("search_value", title)
	q.Set("search_field", "name")
	q.Set("search_type", "movie")
	reqURL := fmt.Sprintf("%s/search/?%s", s.cfg.BaseURL, q.Encode())

	var resp searchResponse
	if err := s.fetcher.GetJSON(ctx, reqURL, &resp); err != nil {
		return 0, err
	}
	if len(resp.TitleResults) == 0 {
		return 0, ErrNoMatch
	}

	id := pickMatch(resp.TitleResults, title, year, catalogID)
	s.memory.SetWithTTL(key, id, s.ttl.StreamingTTL)
	return id, nil
}

// pickMatch walks the match-priority ladder over search candidates.
func pickMatch(candidates []searchResult, title string, year, catalogID int) int {
	cleaned := strings.ToLower(strings.TrimSpace(title))

	if catalogID > 0 {
		for _, c := range candidates {
			if c.CatalogID == catalogID {
				return c.ID
			}
		}
	}
	if year > 0 {
		for _, c := range candidates {
			if strings.ToLower(strings.TrimSpace(c.Name)) == cleaned && c.Year == year {
				return c.ID
			}
		}
	}
	for _, c := range candidates {
		if strings.ToLower(strings.TrimSpace(c.Name)) == cleaned {
			return c.ID
		}
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), cleaned) {
			return c.ID
		}
	}
	return candidates[0].ID
}

// Sources returns streaming offers for an availability-service title ID,
// filtered to the configured region, preferred platforms, and offer types
// sub/buy/rent, deduplicated by (name, type).
func (s *Streaming) Sources(ctx context.Context, id int) ([]Source, error) {
	key := cache.Key("streaming", "sources", strconv.Itoa(id))
	if cached, ok := s.memory.Get(key); ok {
		return cached.([]Source), nil
	}

	q := url.Values{}
	q.Set("apiKey", s.cfg.APIKey)
	reqURL := fmt.Sprintf("%s/title/%d/sources/?%s", s.cfg.BaseURL, id, q.Encode())

	var all []Source
	if err := s.fetcher.GetJSON(ctx, reqURL, &all); err != nil {
		return nil, err
	}

	filtered := s.filterSources(all)
	s.memory.SetWithTTL(key, filtered, s.ttl.StreamingTTL)
	return filtered, nil
}

func (s *Streaming) filterSources(all []Source) []Source {
	preferred := make(map[string]bool, len(s.cfg.PreferredPlatforms))
	for _, p := range s.cfg.PreferredPlatforms {
		preferred[p] = true
	}

	type offerKey struct{ name, typ string }
	seen := make(map[offerKey]bool)

	filtered := make([]Source, 0, len(all))
	for _, src := range all {
		if src.Region != s.cfg.Region || src.WebURL == "" {
			continue
		}
		if !preferred[src.Name] {
			continue
		}
		switch src.Type {
		case "sub", "buy", "rent":
		default:
			continue
		}
		k := offerKey{src.Name, src.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		filtered = append(filtered, src)
	}
	return filtered
}
