// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/middleware"
	"github.com/what2watch/server/internal/ratelimit"
)

// Router wires handlers, middleware, and per-operation rate limits.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	limits        *ratelimit.Set
}

// NewRouter creates a router for the given handler and config.
func NewRouter(handler *Handler, cfg *config.Config, limits *ratelimit.Set) *Router {
	mwConfig := DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.BurstDisabled = cfg.RateLimit.Disabled

	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
		limits:        limits,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5, "application/json"))
	r.Use(router.chiMiddleware.CORS())

	// Health endpoints skip rate limiting so monitoring never gets throttled.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.Prometheus)
		r.Use(router.chiMiddleware.BurstGuard())

		// Search has its own budget since every miss is an upstream call.
		r.Group(func(r chi.Router) {
			r.Use(router.operationLimit(ratelimit.OpSearch))
			r.Get("/catalog/search", router.handler.CatalogSearch)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.operationLimit(ratelimit.OpGeneral))
			r.Get("/catalog/trending", router.handler.CatalogTrending)
			r.Get("/catalog/discover", router.handler.CatalogDiscover)
			r.Get("/ratings", router.handler.Ratings)
			r.Get("/streaming/id", router.handler.StreamingID)
			r.Get("/streaming/sources/{id}", router.handler.StreamingSources)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.operationLimit(ratelimit.OpGems))
			r.Get("/gems", router.handler.Gems)
		})

		// Worth-it shares the chat budget: both ride the language model.
		r.Group(func(r chi.Router) {
			r.Use(router.operationLimit(ratelimit.OpChat))
			r.Post("/chat", router.handler.Chat)
			r.Post("/worth-it", router.handler.WorthIt)
		})
	})

	return r
}

// operationLimit builds the per-operation rate limit middleware with a 429
// rejection carrying the standard envelope.
func (router *Router) operationLimit(op ratelimit.Operation) func(http.Handler) http.Handler {
	return middleware.OperationLimit(router.limits, op, func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).TooManyRequests("Rate limit exceeded for this operation")
	})
}
