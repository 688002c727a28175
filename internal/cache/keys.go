// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Key builds a deterministic, namespaced cache key from an upstream source,
// an operation, and every parameter that affects the response. Distinct
// logical caches use disjoint source:op prefixes so keys never collide.
//
//	cache.Key("catalog", "search", query)        // "catalog:search:batman"
//	cache.Key("streaming", "sources", id, region)
func Key(source, op string, params ...string) string {
	parts := make([]string, 0, len(params)+2)
	parts = append(parts, source, op)
	for _, p := range params {
		parts = append(parts, strings.ToLower(strings.TrimSpace(p)))
	}
	return strings.Join(parts, ":")
}

// GenerateKey creates a compact cache key from a method name and an
// arbitrary parameter struct. Used when the parameter set is too large or
// too irregular for Key.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to simple string key
		return fmt.Sprintf("%s:%v", method, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
