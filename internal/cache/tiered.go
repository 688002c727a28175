// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/what2watch/server/internal/metrics"
)

// Tiered layers the in-memory cache over an optional persistent Store.
// Reads go memory first, then the persistent tier (read-through); writes go
// to both. A nil persistent store degrades to memory-only behavior.
type Tiered struct {
	memory     *Memory
	persistent Store
	// memoryTTL bounds how long a value promoted from the persistent tier
	// stays in memory before being re-read.
	memoryTTL time.Duration
}

// NewTiered creates a tiered cache. persistent may be nil.
func NewTiered(memory *Memory, persistent Store, memoryTTL time.Duration) *Tiered {
	return &Tiered{
		memory:     memory,
		persistent: persistent,
		memoryTTL:  memoryTTL,
	}
}

// GetJSON reads key and unmarshals it into v.
func (t *Tiered) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	if data, ok := t.memory.Get(key); ok {
		metrics.CacheHits.WithLabelValues("memory").Inc()
		raw, ok := data.([]byte)
		if !ok {
			// Unexpected type under this key; treat as miss.
			t.memory.Delete(key)
		} else {
			return true, json.Unmarshal(raw, v)
		}
	}
	metrics.CacheMisses.WithLabelValues("memory").Inc()

	if t.persistent == nil {
		return false, nil
	}

	raw, found, err := t.persistent.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		metrics.CacheMisses.WithLabelValues("persistent").Inc()
		return false, nil
	}
	metrics.CacheHits.WithLabelValues("persistent").Inc()

	t.memory.SetWithTTL(key, raw, t.memoryTTL)
	return true, json.Unmarshal(raw, v)
}

// SetJSON marshals v and writes it to both tiers. persistTTL of zero stores
// without expiration in the persistent tier; a positive persistTTL also
// bounds the memory copy so the tiers expire together.
func (t *Tiered) SetJSON(ctx context.Context, key string, v interface{}, persistTTL time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	memTTL := t.memoryTTL
	if persistTTL > 0 && persistTTL < memTTL {
		memTTL = persistTTL
	}
	if persistTTL > 0 && t.persistent == nil {
		// no tier beneath to fall back on; the memory copy carries the TTL
		memTTL = persistTTL
	}
	t.memory.SetWithTTL(key, raw, memTTL)

	if t.persistent == nil {
		return nil
	}
	return t.persistent.Set(ctx, key, raw, persistTTL)
}

// Delete removes key from both tiers.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	t.memory.Delete(key)
	if t.persistent == nil {
		return nil
	}
	return t.persistent.Delete(ctx, key)
}
