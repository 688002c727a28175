// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package middleware provides HTTP middleware shared by the API layer:
// request ID propagation with logging context, Prometheus request
// instrumentation, and per-operation rate limiting.
//
// Middleware here uses the standard func(http.Handler) http.Handler shape
// so it composes directly with chi's r.Use().
package middleware
