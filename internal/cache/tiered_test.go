// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory Store used to exercise the tiered read-through
// path without a real BadgerDB.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Close() error { return nil }

type payload struct {
	Score int    `json:"score"`
	Badge string `json:"badge"`
}

func TestTieredWriteThroughAndReadBack(t *testing.T) {
	store := newFakeStore()
	tc := NewTiered(NewMemory(time.Minute), store, time.Minute)
	ctx := context.Background()

	want := payload{Score: 87, Badge: "Must Watch"}
	if err := tc.SetJSON(ctx, "worthit:movie_42", want, 0); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	var got payload
	found, err := tc.GetJSON(ctx, "worthit:movie_42", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON: found=%v err=%v", found, err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	// Memory tier should have answered; no persistent read needed.
	if store.gets != 0 {
		t.Errorf("expected 0 persistent reads, got %d", store.gets)
	}
}

func TestTieredReadThroughPromotesToMemory(t *testing.T) {
	store := newFakeStore()
	mem := NewMemory(time.Minute)
	tc := NewTiered(mem, store, time.Minute)
	ctx := context.Background()

	// Seed only the persistent tier, simulating a process restart.
	if err := store.Set(ctx, "gems:seen", []byte(`{"score":1,"badge":"x"}`), 0); err != nil {
		t.Fatal(err)
	}

	var got payload
	found, err := tc.GetJSON(ctx, "gems:seen", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON: found=%v err=%v", found, err)
	}
	if store.gets != 1 {
		t.Errorf("expected 1 persistent read, got %d", store.gets)
	}

	// Second read must be served from memory.
	found, err = tc.GetJSON(ctx, "gems:seen", &got)
	if err != nil || !found {
		t.Fatalf("second GetJSON: found=%v err=%v", found, err)
	}
	if store.gets != 1 {
		t.Errorf("expected promotion to memory, persistent reads = %d", store.gets)
	}
}

func TestTieredNilPersistent(t *testing.T) {
	tc := NewTiered(NewMemory(time.Minute), nil, time.Minute)
	ctx := context.Background()

	if err := tc.SetJSON(ctx, "k", payload{Score: 1}, 0); err != nil {
		t.Fatalf("SetJSON with nil persistent: %v", err)
	}

	var got payload
	found, err := tc.GetJSON(ctx, "k", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON: found=%v err=%v", found, err)
	}

	var missing payload
	found, err = tc.GetJSON(ctx, "absent", &missing)
	if err != nil {
		t.Fatalf("GetJSON absent: %v", err)
	}
	if found {
		t.Error("expected absent key to miss")
	}
}

func TestTieredDelete(t *testing.T) {
	store := newFakeStore()
	tc := NewTiered(NewMemory(time.Minute), store, time.Minute)
	ctx := context.Background()

	if err := tc.SetJSON(ctx, "k", payload{Score: 1}, 0); err != nil {
		t.Fatal(err)
	}
	if err := tc.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}

	var got payload
	found, _ := tc.GetJSON(ctx, "k", &got)
	if found {
		t.Error("expected key to be gone from both tiers")
	}
}
