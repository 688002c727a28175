// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package api

import (
	"net/http"

	"github.com/what2watch/server/internal/logging"
	"github.com/what2watch/server/internal/worthit"
)

// Chat handles POST /api/v1/chat. Each call advances the session's slot
// state by one turn; the reply either asks a clarifying question or carries
// recommendations. Conversation failures degrade into an apologetic reply
// rather than an error status, so the handler itself only fails on bad input.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ChatRequest
	if !decodeRequest(rw, r, &req) {
		return
	}

	reply, err := h.chat.Advance(r.Context(), req.SessionID, req.Message)
	if err != nil {
		rw.BadRequest("Invalid chat request")
		return
	}

	rw.Success(reply)
}

// WorthIt handles POST /api/v1/worth-it. The scorer caches verdicts
// permanently per title, so repeat calls never reach the model.
func (h *Handler) WorthIt(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req WorthItRequest
	if !decodeRequest(rw, r, &req) {
		return
	}

	result, err := h.worthIt.Score(r.Context(), worthit.Input{
		CatalogID:      req.CatalogID,
		Type:           req.Type,
		Title:          req.Title,
		Overview:       req.Overview,
		CatalogRating:  req.CatalogRating,
		ExternalRating: req.ExternalRating,
		Popularity:     req.Popularity,
		Genres:         req.Genres,
	})
	if err != nil {
		logging.Error().Err(err).Int("catalog_id", req.CatalogID).Msg("Worth-it scoring failed")
		rw.InternalError("Could not score title")
		return
	}

	rw.Success(result)
}
