// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/conversation"
	"github.com/what2watch/server/internal/fetch"
	"github.com/what2watch/server/internal/models"
	"github.com/what2watch/server/internal/upstream"
	"github.com/what2watch/server/internal/worthit"
)

// Version is the server version reported by the health endpoint.
const Version = "1.0.0"

// CatalogService is the slice of the catalog client the handlers need.
type CatalogService interface {
	SearchMulti(ctx context.Context, query string) ([]models.CatalogItem, error)
	Trending(ctx context.Context, window string, pageNum int) ([]models.CatalogItem, error)
	DiscoverMovies(ctx context.Context, params upstream.DiscoverParams) ([]models.CatalogItem, error)
	DiscoverSeries(ctx context.Context, params upstream.DiscoverParams) ([]models.CatalogItem, error)
}

// RatingsService looks up external ratings by title.
type RatingsService interface {
	ByTitle(ctx context.Context, title string, year int) (upstream.TitleRating, error)
}

// StreamingService resolves availability identifiers and sources.
type StreamingService interface {
	LookupID(ctx context.Context, title string, year, catalogID int) (int, error)
	Sources(ctx context.Context, id int) ([]upstream.Source, error)
}

// GemsService serves the current hidden gems list.
type GemsService interface {
	Get(ctx context.Context) ([]models.ScoredItem, error)
}

// ChatService advances a conversation session by one turn.
type ChatService interface {
	Advance(ctx context.Context, sessionID, message string) (conversation.Reply, error)
}

// WorthItService produces a worth-watching verdict for a title.
type WorthItService interface {
	Score(ctx context.Context, in worthit.Input) (worthit.Result, error)
}

// Handler carries the service dependencies for all HTTP handlers.
type Handler struct {
	catalog   CatalogService
	ratings   RatingsService
	streaming StreamingService
	gems      GemsService
	chat      ChatService
	worthIt   WorthItService
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a handler with the given services.
func NewHandler(
	catalog CatalogService,
	ratings RatingsService,
	streaming StreamingService,
	gems GemsService,
	chat ChatService,
	worthIt WorthItService,
	cfg *config.Config,
) *Handler {
	return &Handler{
		catalog:   catalog,
		ratings:   ratings,
		streaming: streaming,
		gems:      gems,
		chat:      chat,
		worthIt:   worthIt,
		config:    cfg,
		startTime: time.Now(),
	}
}

// upstreamError maps a fetch-layer failure onto the response envelope.
// Clients never see raw upstream errors or URLs.
func upstreamError(rw *ResponseWriter, service string, err error) {
	if fe, ok := fetch.AsError(err); ok {
		switch fe.Kind {
		case fetch.KindBreakerOpen:
			rw.ServiceUnavailable(service + " is temporarily unavailable")
			return
		case fetch.KindHTTP:
			if fe.Status == http.StatusNotFound {
				rw.NotFound("Not found")
				return
			}
		}
	}
	rw.ExternalServiceError(service, err)
}

// healthStatus is the payload of GET /api/v1/health.
type healthStatus struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    float64           `json:"uptime_seconds"`
	Upstreams map[string]bool   `json:"upstreams"`
	LLM       map[string]string `json:"llm"`
}

// Health reports overall service health. The service is degraded rather
// than down when optional upstreams are unconfigured; only the catalog
// credential is required for core operation.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	catalogOK := h.config.Upstreams.Catalog.APIKey != ""
	ratingsOK := h.config.Upstreams.Ratings.APIKey != ""
	streamingOK := h.config.Upstreams.Streaming.APIKey != ""

	status := "healthy"
	if !catalogOK {
		status = "degraded"
	}

	rw.Success(healthStatus{
		Status:  status,
		Version: Version,
		Uptime:  time.Since(h.startTime).Seconds(),
		Upstreams: map[string]bool{
			"catalog":   catalogOK,
			"ratings":   ratingsOK,
			"streaming": streamingOK,
		},
		LLM: map[string]string{
			"provider": h.config.Upstreams.LLM.Provider,
		},
	})
}

// HealthLive is the liveness probe: 200 whenever the process is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe. The server cannot serve catalog
// traffic without a catalog credential, so readiness requires one.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.config.Upstreams.Catalog.APIKey == "" {
		rw.ServiceUnavailable("Catalog API credential not configured")
		return
	}

	rw.Success(map[string]interface{}{"ready": true})
}
