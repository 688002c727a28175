// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/what2watch/server/internal/config"
)

func TestNewDisabledProvider(t *testing.T) {
	c, err := New(config.LLMConfig{Provider: "disabled"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "system", "user")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewEmptyProviderIsDisabled(t *testing.T) {
	c, err := New(config.LLMConfig{})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"})
	assert.Error(t, err)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "groq-native"})
	assert.Error(t, err)
}
