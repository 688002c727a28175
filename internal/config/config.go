// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package config provides layered configuration loading via Koanf v2.
//
// Precedence (highest wins): environment variables > config file > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Upstreams UpstreamsConfig `koanf:"upstreams"`
	Fetch     FetchConfig     `koanf:"fetch"`
	Cache     CacheConfig     `koanf:"cache"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Gems      GemsConfig      `koanf:"gems"`
	Chat      ChatConfig      `koanf:"chat"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// UpstreamsConfig groups the third-party API endpoints and credentials.
type UpstreamsConfig struct {
	Catalog   CatalogConfig   `koanf:"catalog"`
	Ratings   RatingsConfig   `koanf:"ratings"`
	Streaming StreamingConfig `koanf:"streaming"`
	LLM       LLMConfig       `koanf:"llm"`
}

// CatalogConfig configures the movie/TV metadata catalog (TMDB-compatible).
type CatalogConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	APIKey  string `koanf:"api_key"`
}

// RatingsConfig configures the ratings lookup service (OMDb-compatible).
type RatingsConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	APIKey  string `koanf:"api_key"`
}

// StreamingConfig configures the streaming availability service
// (Watchmode-compatible).
type StreamingConfig struct {
	BaseURL            string   `koanf:"base_url" validate:"required,url"`
	APIKey             string   `koanf:"api_key"`
	Region             string   `koanf:"region" validate:"len=2"`
	PreferredPlatforms []string `koanf:"preferred_platforms"`
}

// LLMConfig configures the text-generation service used for slot extraction,
// conversational replies, and worth-it scoring. Provider "disabled" turns the
// model path off entirely; every caller falls back to deterministic behavior.
type LLMConfig struct {
	Provider    string        `koanf:"provider" validate:"oneof=openai ollama disabled"`
	Model       string        `koanf:"model"`
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float64       `koanf:"temperature" validate:"min=0,max=2"`
}

// FetchConfig tunes the retrying fetcher shared by all upstream clients.
type FetchConfig struct {
	MaxRetries     int           `koanf:"max_retries" validate:"min=0,max=10"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`
	BackoffBase    time.Duration `koanf:"backoff_base"`

	// Circuit breaker (per upstream host)
	BreakerEnabled     bool          `koanf:"breaker_enabled"`
	BreakerFailures    uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
}

// CacheConfig holds per-endpoint TTLs and the persistent tier settings.
type CacheConfig struct {
	SearchTTL          time.Duration `koanf:"search_ttl"`
	TrendingTTL        time.Duration `koanf:"trending_ttl"`
	DiscoverTTL        time.Duration `koanf:"discover_ttl"`
	RatingsTTL         time.Duration `koanf:"ratings_ttl"`
	RatingsNegativeTTL time.Duration `koanf:"ratings_negative_ttl"`
	StreamingTTL       time.Duration `koanf:"streaming_ttl"`
	CleanupInterval    time.Duration `koanf:"cleanup_interval"`

	// Persistent tier (BadgerDB). Empty path disables the tier; seen records
	// and worth-it scores then live only in process memory.
	StorePath string `koanf:"store_path"`
}

// RateLimitConfig holds per-operation fixed-window limits.
type RateLimitConfig struct {
	Disabled bool        `koanf:"disabled"`
	Search   WindowLimit `koanf:"search"`
	General  WindowLimit `koanf:"general"`
	Gems     WindowLimit `koanf:"gems"`
	Chat     WindowLimit `koanf:"chat"`
}

// WindowLimit is a fixed-window request budget.
type WindowLimit struct {
	MaxRequests int           `koanf:"max_requests" validate:"min=1"`
	Window      time.Duration `koanf:"window"`
}

// GemsConfig tunes the hidden-gems ranking engine.
type GemsConfig struct {
	Pages          int           `koanf:"pages" validate:"min=1,max=5"`
	Limit          int           `koanf:"limit" validate:"min=1,max=50"`
	MinRating      float64       `koanf:"min_rating"`
	MinVotes       int           `koanf:"min_votes"`
	MaxVotes       int           `koanf:"max_votes"`
	MaxPopularity  float64       `koanf:"max_popularity"`
	MinAgeYears    int           `koanf:"min_age_years"`
	Languages      []string      `koanf:"languages"`
	ExcludedGenres []int         `koanf:"excluded_genres"`
	DecayMax       float64       `koanf:"decay_max"`
	SeenTTL        time.Duration `koanf:"seen_ttl"`
	ResultTTL      time.Duration `koanf:"result_ttl"`
	WarmInterval   time.Duration `koanf:"warm_interval"`
}

// ChatConfig tunes the conversational slot-filling layer.
type ChatConfig struct {
	SessionTTL time.Duration `koanf:"session_ttl"`
	// ModelExtraction enables the LLM extraction path. The deterministic
	// keyword extractor always runs as fallback regardless of this flag.
	ModelExtraction bool `koanf:"model_extraction"`
	MaxResults      int  `koanf:"max_results" validate:"min=1,max=20"`
}

// defaultConfig returns a Config with all defaults applied. Values mirror
// the upstream services' documented limits and the product's original TTLs.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5000,
			Timeout:     30 * time.Second,
			Environment: "development",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Upstreams: UpstreamsConfig{
			Catalog: CatalogConfig{
				BaseURL: "https://api.themoviedb.org/3",
			},
			Ratings: RatingsConfig{
				BaseURL: "https://www.omdbapi.com",
			},
			Streaming: StreamingConfig{
				BaseURL: "https://api.watchmode.com/v1",
				Region:  "IN",
				PreferredPlatforms: []string{
					"Netflix", "Amazon", "Prime Video", "JioCinema",
					"Hotstar", "Disney+ Hotstar", "Zee5", "SonyLiv",
					"Hungama Play", "AppleTV", "Amazon Video",
				},
			},
			LLM: LLMConfig{
				Provider:    "disabled",
				Model:       "llama-3.1-8b-instant",
				Timeout:     15 * time.Second,
				Temperature: 0.2,
			},
		},
		Fetch: FetchConfig{
			MaxRetries:         3,
			AttemptTimeout:     8 * time.Second,
			BackoffBase:        1 * time.Second,
			BreakerEnabled:     true,
			BreakerFailures:    5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			SearchTTL:          5 * time.Minute,
			TrendingTTL:        15 * time.Minute,
			DiscoverTTL:        30 * time.Minute,
			RatingsTTL:         12 * time.Hour,
			RatingsNegativeTTL: 1 * time.Hour,
			StreamingTTL:       6 * time.Hour,
			CleanupInterval:    5 * time.Minute,
			StorePath:          "",
		},
		RateLimit: RateLimitConfig{
			Disabled: false,
			Search:   WindowLimit{MaxRequests: 100, Window: 15 * time.Minute},
			General:  WindowLimit{MaxRequests: 60, Window: time.Minute},
			Gems:     WindowLimit{MaxRequests: 60, Window: time.Minute},
			Chat:     WindowLimit{MaxRequests: 30, Window: time.Minute},
		},
		Gems: GemsConfig{
			Pages:         2,
			Limit:         15,
			MinRating:     7.2,
			MinVotes:      300,
			MaxVotes:      6000,
			MaxPopularity: 90,
			MinAgeYears:   2,
			Languages:     []string{"en", "hi", "ta", "te", "ml", "ko", "ja", "fr", "es"},
			// documentary, animation, reality-ish TV genres
			ExcludedGenres: []int{99, 16, 10764, 10767, 10763},
			DecayMax:       3.5,
			SeenTTL:        24 * time.Hour,
			ResultTTL:      6 * time.Hour,
			WarmInterval:   0, // 0 disables the background warmer
		},
		Chat: ChatConfig{
			SessionTTL:      30 * time.Minute,
			ModelExtraction: false,
			MaxResults:      6,
		},
	}
}

// Validate checks the configuration for structural and cross-field errors.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Gems.MinVotes > c.Gems.MaxVotes {
		return fmt.Errorf("gems.min_votes (%d) exceeds gems.max_votes (%d)",
			c.Gems.MinVotes, c.Gems.MaxVotes)
	}
	if c.Fetch.AttemptTimeout <= 0 {
		return fmt.Errorf("fetch.attempt_timeout must be positive")
	}
	if c.Upstreams.LLM.Provider == "openai" && c.Upstreams.LLM.APIKey == "" {
		return fmt.Errorf("upstreams.llm.api_key is required for provider openai")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
