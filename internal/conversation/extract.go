// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package conversation

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/what2watch/server/internal/llm"
	"github.com/what2watch/server/internal/logging"
	"github.com/what2watch/server/internal/metrics"
)

// Year bounds for slot sanitization. Values outside are discarded, never
// an error.
const (
	minYear = 1888
	maxYear = 2100
)

// Extraction is the set of preferences pulled out of one message. Zero
// values mean "not mentioned".
type Extraction struct {
	Genre    string `json:"genre,omitempty"`
	Language string `json:"language,omitempty"`
	Year     int    `json:"year,omitempty"`
}

var (
	yearRe  = regexp.MustCompile(`\b(\d{4})\b`)
	langRe  = regexp.MustCompile(`(?i)\b(english|hindi|spanish|french|japanese|korean|tamil|telugu|malayalam|kannada|marathi|bengali)\b`)
	genreRe = regexp.MustCompile(`(?i)\b(action|adventure|animation|comedy|crime|documentary|drama|family|fantasy|history|horror|music|mystery|romance|sci[ -]?fi|science fiction|thriller|war|western)\b`)
)

const extractorSystemPrompt = `You are an extractor. Given a short user message about movies return a JSON object ONLY.
Fields (optional): "genre" (string), "language" (string), "year" (integer).
If a field is not present in the message return it absent or null.
Examples:
Input: "action movie in Hindi from 2025"
Output: {"genre":"action","language":"Hindi","year":2025}
Input: "Find me a sci-fi"
Output: {"genre":"sci-fi"}
Respond with only the JSON object and nothing else.`

// ExtractKeywords is the deterministic extractor. It is the canonical
// behavior: the model path may refine it but this one always works.
func ExtractKeywords(message string) Extraction {
	var ex Extraction

	if m := yearRe.FindString(message); m != "" {
		if y, err := strconv.Atoi(m); err == nil {
			ex.Year = SanitizeYear(y)
		}
	}
	if m := langRe.FindString(message); m != "" {
		ex.Language = strings.ToLower(m)
	}
	if m := genreRe.FindString(message); m != "" {
		ex.Genre = canonicalGenre(m)
	}
	return ex
}

// SanitizeYear returns y when it is a plausible release year, else 0.
func SanitizeYear(y int) int {
	if y < minYear || y > maxYear {
		return 0
	}
	return y
}

func canonicalGenre(raw string) string {
	g := strings.ToLower(strings.TrimSpace(raw))
	g = strings.ReplaceAll(g, "science fiction", "scifi")
	g = strings.ReplaceAll(g, "sci-fi", "scifi")
	g = strings.ReplaceAll(g, "sci fi", "scifi")
	return g
}

// Extractor pulls preferences from a message, model-assisted when a
// Completer is configured.
type Extractor struct {
	completer llm.Completer
	useModel  bool
}

// NewExtractor builds an extractor. With useModel false, or a nil
// completer, only the deterministic path runs.
func NewExtractor(completer llm.Completer, useModel bool) *Extractor {
	return &Extractor{completer: completer, useModel: useModel && completer != nil}
}

// Extract runs the model path when enabled, falling back to the keyword
// extractor on any model or parse failure.
func (e *Extractor) Extract(ctx context.Context, message string) Extraction {
	if !e.useModel {
		return ExtractKeywords(message)
	}

	raw, err := e.completer.Complete(ctx, extractorSystemPrompt, message)
	if err != nil {
		metrics.ChatExtractionFallbacks.Inc()
		logging.Ctx(ctx).Debug().Err(err).Msg("model extraction failed, using keyword extractor")
		return ExtractKeywords(message)
	}

	var ex Extraction
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &ex); err != nil {
		metrics.ChatExtractionFallbacks.Inc()
		return ExtractKeywords(message)
	}

	ex.Genre = canonicalGenre(ex.Genre)
	ex.Language = strings.ToLower(strings.TrimSpace(ex.Language))
	ex.Year = SanitizeYear(ex.Year)
	return ex
}
