// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies upstream failures for retry decisions and logging.
type ErrorKind string

const (
	// KindTimeout covers attempt deadline expiry and transport-level failures.
	KindTimeout ErrorKind = "timeout"
	// KindHTTP covers non-2xx status codes.
	KindHTTP ErrorKind = "http"
	// KindMalformed covers responses whose body could not be decoded.
	KindMalformed ErrorKind = "malformed"
	// KindBreakerOpen means the circuit breaker short-circuited the call.
	KindBreakerOpen ErrorKind = "breaker_open"
)

// Error is the typed failure returned by the fetcher. Status is only set
// for KindHTTP. URLs embedded in the message have credentials redacted
// before Error is constructed.
type Error struct {
	Kind   ErrorKind
	Host   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("upstream %s returned HTTP %d", e.Host, e.Status)
	case KindBreakerOpen:
		return fmt.Sprintf("upstream %s circuit open", e.Host)
	default:
		return fmt.Sprintf("upstream %s %s: %v", e.Host, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is worth another attempt.
// Rate limiting (429), server errors (5xx) and timeouts are transient.
// Other client errors and undecodable bodies indicate a request or
// contract problem that retrying cannot fix.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout:
		return true
	case KindHTTP:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	default:
		return false
	}
}

// AsError extracts a fetch *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsNotFound reports whether err is an upstream HTTP 404.
func IsNotFound(err error) bool {
	fe, ok := AsError(err)
	return ok && fe.Kind == KindHTTP && fe.Status == http.StatusNotFound
}
