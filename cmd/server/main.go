// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package main is the entry point for the What2Watch server.
//
// What2Watch is an aggregation backend for movie and TV discovery. It fronts
// a metadata catalog, a ratings service, a streaming availability service,
// and an optional language model behind one consistent API, adding caching,
// retries, circuit breaking, and rate limiting so clients never talk to the
// upstreams directly.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, config.yaml, env)
//  2. Caches: in-memory response cache plus an optional BadgerDB tier for
//     state that must survive restarts (gems seen records, worth-it verdicts)
//  3. Upstream clients: catalog, ratings, and streaming, all sharing one
//     retrying fetcher with per-host circuit breakers
//  4. Language model: OpenAI-compatible or Ollama via langchaingo; provider
//     "disabled" turns every model path into its deterministic fallback
//  5. Domain services: hidden gems engine, conversation manager, worth-it
//     scorer
//  6. HTTP server: chi router under a suture supervision tree, alongside the
//     cache janitor and gems warmer workers
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the HTTP server drains
// in-flight requests within the configured timeout, then the workers stop
// and the persistent store closes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/what2watch/server/internal/api"
	"github.com/what2watch/server/internal/cache"
	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/conversation"
	"github.com/what2watch/server/internal/fetch"
	"github.com/what2watch/server/internal/gems"
	"github.com/what2watch/server/internal/llm"
	"github.com/what2watch/server/internal/logging"
	"github.com/what2watch/server/internal/ratelimit"
	"github.com/what2watch/server/internal/supervisor"
	"github.com/what2watch/server/internal/supervisor/services"
	"github.com/what2watch/server/internal/upstream"
	"github.com/what2watch/server/internal/worthit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, so this uses the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("llm_provider", cfg.Upstreams.LLM.Provider).
		Bool("persistent_store", cfg.Cache.StorePath != "").
		Msg("Starting What2Watch")

	// Caches. The persistent tier is optional; without it, state that should
	// survive restarts lives only in process memory.
	memory := cache.NewMemory(cfg.Cache.SearchTTL)

	var persistent cache.Store
	var badgerStore *cache.BadgerStore
	if cfg.Cache.StorePath != "" {
		badgerStore, err = cache.OpenBadger(cfg.Cache.StorePath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Cache.StorePath).Msg("Failed to open persistent store")
		}
		persistent = badgerStore
		defer func() {
			if err := badgerStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing persistent store")
			}
		}()
	}
	tiered := cache.NewTiered(memory, persistent, cfg.Cache.SearchTTL)

	// Upstream clients share one retrying fetcher so every external call
	// gets the same timeout, retry, and circuit breaker treatment.
	fetcher := fetch.New(cfg.Fetch)
	catalog := upstream.NewCatalog(fetcher, memory, cfg.Upstreams.Catalog, cfg.Cache)
	ratings := upstream.NewRatings(fetcher, memory, cfg.Upstreams.Ratings, cfg.Cache)
	streaming := upstream.NewStreaming(fetcher, memory, cfg.Upstreams.Streaming, cfg.Cache)

	completer, err := llm.New(cfg.Upstreams.LLM)
	if err != nil {
		logging.Fatal().Err(err).Str("provider", cfg.Upstreams.LLM.Provider).Msg("Failed to initialize language model")
	}

	// Domain services.
	gemsEngine := gems.New(catalog, tiered, cfg.Gems)
	scorer := worthit.New(completer, tiered)

	sessions := conversation.NewMemoryStore(cfg.Chat.SessionTTL)
	extractor := conversation.NewExtractor(completer, cfg.Chat.ModelExtraction)
	recommender := conversation.NewCatalogRecommender(catalog)
	chat := conversation.NewManager(sessions, extractor, recommender, completer, cfg.Chat)

	limits := ratelimit.NewSet(cfg.RateLimit)

	handler := api.NewHandler(catalog, ratings, streaming, gemsEngine, chat, scorer, cfg)
	router := api.NewRouter(handler, cfg, limits)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// Supervision tree: workers restart independently of the API layer.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddAPIService(services.NewHTTPServerService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))

	tree.AddWorker(services.NewJanitorService(map[string]services.Pruner{
		"response-cache": services.PrunerFunc(memory.Cleanup),
		"rate-limits":    services.PrunerFunc(limits.Prune),
		"chat-sessions":  services.PrunerFunc(sessions.Prune),
	}, cfg.Cache.CleanupInterval, logging.Logger()))

	tree.AddWorker(services.NewGemsWarmerService(gemsEngine, cfg.Gems.WarmInterval, logging.Logger()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", server.Addr).
		Msg("What2Watch listening")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
		os.Exit(1)
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Shutdown complete")
}
