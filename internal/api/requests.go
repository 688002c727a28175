// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// validate is the shared validator instance for request bodies.
var validate = validator.New()

// maxBodyBytes caps request bodies. Chat messages and worth-it inputs are
// small; anything larger is abuse.
const maxBodyBytes = 64 * 1024

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	Message   string `json:"message" validate:"required,max=2000"`
}

// WorthItRequest is the body of POST /api/v1/worth-it.
type WorthItRequest struct {
	CatalogID      int      `json:"catalog_id" validate:"required,min=1"`
	Type           string   `json:"type" validate:"omitempty,oneof=movie series"`
	Title          string   `json:"title" validate:"max=500"`
	Overview       string   `json:"overview" validate:"max=5000"`
	CatalogRating  float64  `json:"catalog_rating" validate:"min=0,max=10"`
	ExternalRating string   `json:"external_rating" validate:"max=10"`
	Popularity     float64  `json:"popularity" validate:"min=0"`
	Genres         []string `json:"genres" validate:"max=10"`
}

// decodeRequest decodes and validates a JSON request body into dst.
// It writes the error envelope itself and reports whether decoding succeeded.
func decodeRequest(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		fields := make([]string, 0, 4)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" failed "+fe.Tag())
			}
		}
		rw.ValidationError("Request validation failed", fields)
		return false
	}

	return true
}
