// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package middleware

import (
	"net"
	"net/http"

	"github.com/what2watch/server/internal/ratelimit"
)

// OperationLimit enforces a per-client fixed-window budget for one operation
// class (search, gems, chat, general). Clients are keyed by IP; run this
// behind chi's RealIP middleware so proxied requests use the forwarded
// address. When the budget is exhausted the request is rejected through
// onLimit, which the API layer supplies so rejections carry the standard
// response envelope.
func OperationLimit(set *ratelimit.Set, op ratelimit.Operation, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !set.Allow(op, clientIP(r)) {
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP has already rewritten
// RemoteAddr from X-Forwarded-For / X-Real-IP when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
