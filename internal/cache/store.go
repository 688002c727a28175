// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package cache

import (
	"context"
	"time"
)

// Store is the persistent key/value tier beneath the in-memory cache.
// Implementations must provide atomic per-key reads and writes; no
// cross-key transactions are required.
type Store interface {
	// Get returns the stored bytes for key, or found=false when absent
	// or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. No-op for absent keys.
	Delete(ctx context.Context, key string) error

	// Close releases underlying resources.
	Close() error
}
