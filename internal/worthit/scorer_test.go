// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package worthit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/what2watch/server/internal/cache"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func testStore() *cache.Tiered {
	return cache.NewTiered(cache.NewMemory(time.Minute), nil, time.Minute)
}

func TestScoreParsesModelOutput(t *testing.T) {
	s := New(&stubCompleter{reply: `{"score": 88, "badge": "whatever"}`}, testStore())

	result, err := s.Score(context.Background(), Input{CatalogID: 1, Title: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, 88, result.Score)
	assert.Equal(t, "Must Watch", result.Badge, "badge is recomputed from the score, not trusted")
}

func TestScoreExtractsJSONFromProse(t *testing.T) {
	s := New(&stubCompleter{reply: "Sure! Here you go:\n```json\n{\"score\": 62}\n```"}, testStore())

	result, err := s.Score(context.Background(), Input{CatalogID: 2})
	require.NoError(t, err)
	assert.Equal(t, 62, result.Score)
	assert.Equal(t, "Decent", result.Badge)
}

func TestScoreFallbackOnModelError(t *testing.T) {
	s := New(&stubCompleter{err: errors.New("model down")}, testStore())

	result, err := s.Score(context.Background(), Input{CatalogID: 3})
	require.NoError(t, err)
	assert.Equal(t, 70, result.Score)
	assert.Equal(t, "Great", result.Badge)
}

func TestScoreFallbackOnGarbageOutput(t *testing.T) {
	for _, garbage := range []string{"not json at all", `{"score": 9000}`, `{"score": 0}`} {
		s := New(&stubCompleter{reply: garbage}, testStore())
		result, err := s.Score(context.Background(), Input{CatalogID: 4})
		require.NoError(t, err)
		assert.Equal(t, 70, result.Score, "garbage %q must fall back", garbage)
	}
}

func TestScoreCachedByTypeAndID(t *testing.T) {
	completer := &stubCompleter{reply: `{"score": 90}`}
	s := New(completer, testStore())

	_, err := s.Score(context.Background(), Input{CatalogID: 5, Type: "movie"})
	require.NoError(t, err)
	_, err = s.Score(context.Background(), Input{CatalogID: 5, Type: "movie"})
	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls, "second identical request must hit the cache")

	// same id, different media type is a different title
	_, err = s.Score(context.Background(), Input{CatalogID: 5, Type: "series"})
	require.NoError(t, err)
	assert.Equal(t, 2, completer.calls)
}

func TestScoreRequiresCatalogID(t *testing.T) {
	s := New(&stubCompleter{}, testStore())
	_, err := s.Score(context.Background(), Input{})
	assert.Error(t, err)
}

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "Must Watch"}, {85, "Must Watch"},
		{84, "Great"}, {70, "Great"},
		{69, "Decent"}, {55, "Decent"},
		{54, "Mixed"}, {40, "Mixed"},
		{39, "Skip"}, {1, "Skip"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeFor(tt.score), "score %d", tt.score)
	}
}
