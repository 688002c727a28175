// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package llm wraps the text-generation upstream behind a small interface.
// Every caller treats the model as best-effort and carries a deterministic
// fallback; a disabled client satisfies the interface by always returning
// ErrDisabled.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/what2watch/server/internal/config"
)

// ErrDisabled is returned by the disabled client; callers switch to their
// deterministic path on any error, this one included.
var ErrDisabled = errors.New("llm: provider disabled")

// Completer generates a reply to a system+user prompt pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client is the langchaingo-backed Completer.
type Client struct {
	model       llms.Model
	temperature float64
	cfg         config.LLMConfig
}

// New creates a Completer from configuration. Provider "disabled" yields a
// client whose Complete always fails with ErrDisabled.
func New(cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case "disabled", "":
		return disabled{}, nil

	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return &Client{model: model, temperature: cfg.Temperature, cfg: cfg}, nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: api key required for provider openai")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return &Client{model: model, temperature: cfg.Temperature, cfg: cfg}, nil

	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}

// Complete sends a system+user message pair and returns the first choice.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return resp.Choices[0].Content, nil
}

type disabled struct{}

func (disabled) Complete(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}
