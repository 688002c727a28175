// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

// Package conversation implements the slot-filling chat layer: per-session
// slot state, preference extraction from free text, and the collecting →
// recommending state machine.
package conversation

import (
	"sync"
	"time"

	"github.com/what2watch/server/internal/models"
)

// Mode is the session phase.
type Mode string

const (
	ModeCollecting   Mode = "collecting"
	ModeRecommending Mode = "recommending"
)

// Slots is the per-session conversation state. Genre and language are the
// required slots; year is optional.
type Slots struct {
	SessionID  string
	Genre      string
	Language   string
	Year       int
	Mode       Mode
	LastResult *models.CatalogItem
	UpdatedAt  time.Time
}

// Missing lists the required slots still unfilled, in asking order.
func (s *Slots) Missing() []string {
	var missing []string
	if s.Genre == "" {
		missing = append(missing, "genre")
	}
	if s.Language == "" {
		missing = append(missing, "language")
	}
	return missing
}

// Ready reports whether a recommendation can be made.
func (s *Slots) Ready() bool {
	return s.Genre != "" && s.Language != ""
}

// SessionStore hands out exclusive access to one session's slots.
type SessionStore interface {
	// WithSession runs fn holding the session's lock. The session is
	// created on first use. Messages for one session are serialized;
	// different sessions proceed concurrently.
	WithSession(sessionID string, fn func(*Slots))
	// Prune drops sessions idle longer than the store's TTL and returns
	// how many were removed.
	Prune() int
	Len() int
}

type memorySession struct {
	mu    sync.Mutex
	slots Slots
}

// MemoryStore is the in-process SessionStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a session store whose sessions expire after ttl
// of inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithSession implements SessionStore.
func (m *MemoryStore) WithSession(sessionID string, fn func(*Slots)) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = &memorySession{slots: Slots{SessionID: sessionID, Mode: ModeCollecting}}
		m.sessions[sessionID] = sess
	}
	m.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.slots.UpdatedAt = m.now()
	fn(&sess.slots)
}

// Prune implements SessionStore.
func (m *MemoryStore) Prune() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		sess.mu.Lock()
		idle := sess.slots.UpdatedAt.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
