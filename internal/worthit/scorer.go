// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package worthit assigns a 1-100 "worth watching" score and badge to a
// title via the text-generation upstream. The model is advisory: any
// failure, garbage output included, degrades to a neutral score.
package worthit

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/what2watch/server/internal/cache"
	"github.com/what2watch/server/internal/llm"
	"github.com/what2watch/server/internal/logging"
)

// Input is the material the scorer works from. Only CatalogID and Type
// are required; missing fields are simply omitted from the prompt.
type Input struct {
	CatalogID      int      `json:"catalog_id" validate:"required"`
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Overview       string   `json:"overview"`
	CatalogRating  float64  `json:"catalog_rating"`
	ExternalRating string   `json:"external_rating"`
	Popularity     float64  `json:"popularity"`
	Genres         []string `json:"genres"`
}

// Result is the score with its display badge. The badge is always derived
// from the score server-side, whatever the model claimed.
type Result struct {
	Score int    `json:"score"`
	Badge string `json:"badge"`
}

// fallbackResult is returned whenever the model path fails.
var fallbackResult = Result{Score: 70, Badge: "Decent"}

const scorerSystemPrompt = `You are a professional content analyst.
Goal: Assign a single Worth Watching Score from 1-100 based ONLY on whatever info is provided.
If some fields are missing, ignore them and use what exists. Do NOT mention missing data.
Return ONLY JSON in this format:
{"score": 87, "badge": "Must Watch"}`

// Scorer computes and caches worth-watching scores.
type Scorer struct {
	completer llm.Completer
	store     *cache.Tiered
}

// New creates a scorer. Scores persist without TTL in the store's
// persistent tier; a title's verdict does not go stale.
func New(completer llm.Completer, store *cache.Tiered) *Scorer {
	return &Scorer{completer: completer, store: store}
}

// Score returns the worth-watching verdict for a title, cached by
// "{type}_{id}".
func (s *Scorer) Score(ctx context.Context, in Input) (Result, error) {
	if in.CatalogID == 0 {
		return Result{}, fmt.Errorf("worthit: catalog id is required")
	}
	if in.Type == "" {
		in.Type = "movie"
	}

	key := cache.Key("worthit", in.Type, fmt.Sprintf("%d", in.CatalogID))
	var cached Result
	if ok, err := s.store.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	result := s.ask(ctx, in)
	result.Badge = BadgeFor(result.Score)

	if err := s.store.SetJSON(ctx, key, result, 0); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("worthit: caching score failed")
	}
	return result, nil
}

// ask runs the model and defensively parses its output.
func (s *Scorer) ask(ctx context.Context, in Input) Result {
	raw, err := s.completer.Complete(ctx, scorerSystemPrompt, buildPrompt(in))
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("worthit: model unavailable, using fallback")
		return fallbackResult
	}

	var result Result
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		logging.Ctx(ctx).Debug().Str("raw", truncate(raw, 120)).Msg("worthit: unparseable model output")
		return fallbackResult
	}
	if result.Score < 1 || result.Score > 100 {
		return fallbackResult
	}
	return result
}

func buildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", orNA(in.Title))
	fmt.Fprintf(&b, "Overview: %s\n", orNA(in.Overview))
	if in.CatalogRating > 0 {
		fmt.Fprintf(&b, "Catalog Rating: %.1f\n", in.CatalogRating)
	}
	if in.ExternalRating != "" {
		fmt.Fprintf(&b, "IMDb Rating: %s\n", in.ExternalRating)
	}
	if in.Popularity > 0 {
		fmt.Fprintf(&b, "Popularity: %.1f\n", in.Popularity)
	}
	if len(in.Genres) > 0 {
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(in.Genres, ", "))
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// extractJSON pulls the first {...} block out of model output that may be
// wrapped in prose or code fences.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// BadgeFor maps a score to its display badge.
func BadgeFor(score int) string {
	switch {
	case score >= 85:
		return "Must Watch"
	case score >= 70:
		return "Great"
	case score >= 55:
		return "Decent"
	case score >= 40:
		return "Mixed"
	default:
		return "Skip"
	}
}
