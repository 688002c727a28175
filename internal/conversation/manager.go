// What2Watch - Movie & TV Discovery Aggregation Backend
// Copyright 2026 What2Watch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/what2watch/server

package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/what2watch/server/internal/config"
	"github.com/what2watch/server/internal/llm"
	"github.com/what2watch/server/internal/logging"
	"github.com/what2watch/server/internal/metrics"
	"github.com/what2watch/server/internal/models"
)

// Recommender produces catalog items for a filled slot set.
type Recommender interface {
	Recommend(ctx context.Context, genre, language string, year int) ([]models.CatalogItem, error)
}

// Reply is the result of one chat turn. Exactly one of Text or
// Recommendations is meaningful: a clarifying question or follow-up answer
// comes back as Text, a completed slot set as Recommendations.
type Reply struct {
	Text            string               `json:"reply,omitempty"`
	Recommendations []models.CatalogItem `json:"recommendations,omitempty"`
}

var detailRe = regexp.MustCompile(`(?i)^\s*(more|details|tell me more|info|i want to know more)`)

const friendSystemPrompt = `You are a friendly movie buddy. Keep replies short, casual, and helpful.
When asked a follow-up question, ask one concise question only.
When summarizing known preferences, be friendly and brief.`

// Manager drives the slot-filling state machine for all sessions.
type Manager struct {
	sessions    SessionStore
	extractor   *Extractor
	recommender Recommender
	completer   llm.Completer
	cfg         config.ChatConfig
}

// NewManager wires the conversation layer together. completer may be the
// disabled client; phrasing then falls back to static questions.
func NewManager(sessions SessionStore, extractor *Extractor, recommender Recommender, completer llm.Completer, cfg config.ChatConfig) *Manager {
	return &Manager{
		sessions:    sessions,
		extractor:   extractor,
		recommender: recommender,
		completer:   completer,
		cfg:         cfg,
	}
}

// Advance processes one user message for a session and returns the reply.
// Turns for the same session are serialized by the session store.
func (m *Manager) Advance(ctx context.Context, sessionID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if sessionID == "" {
		return Reply{}, fmt.Errorf("conversation: session id is required")
	}
	if message == "" {
		return Reply{}, fmt.Errorf("conversation: message is empty")
	}

	var reply Reply
	m.sessions.WithSession(sessionID, func(slots *Slots) {
		reply = m.advance(ctx, slots, message)
	})
	return reply, nil
}

func (m *Manager) advance(ctx context.Context, slots *Slots, message string) Reply {
	// follow-up about the last recommendation
	if slots.Mode == ModeRecommending && detailRe.MatchString(message) {
		metrics.ChatTurns.WithLabelValues("detail").Inc()
		return m.detailReply(slots)
	}

	ex := m.extractor.Extract(ctx, message)
	mergeSlots(slots, ex)

	if slots.Ready() {
		return m.recommend(ctx, slots)
	}

	metrics.ChatTurns.WithLabelValues("clarify").Inc()
	return Reply{Text: m.clarifyingQuestion(ctx, slots, message)}
}

// mergeSlots applies extracted values without clobbering already-filled
// slots with absence.
func mergeSlots(slots *Slots, ex Extraction) {
	if ex.Genre != "" {
		slots.Genre = ex.Genre
	}
	if ex.Language != "" {
		slots.Language = ex.Language
	}
	if ex.Year != 0 {
		slots.Year = ex.Year
	}
}

func (m *Manager) recommend(ctx context.Context, slots *Slots) Reply {
	items, err := m.recommender.Recommend(ctx, slots.Genre, slots.Language, slots.Year)
	if err != nil {
		metrics.ChatTurns.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("chat recommendation failed")
		// keep collected slots so the user can simply try again
		return Reply{Text: "Sorry, I could not find anything right now. Maybe broaden the search a little?"}
	}

	if len(items) > m.cfg.MaxResults {
		items = items[:m.cfg.MaxResults]
	}

	// a successful recommendation resets the session to a clean slate;
	// only the last result survives for "tell me more"
	slots.Genre, slots.Language, slots.Year = "", "", 0
	slots.Mode = ModeRecommending
	slots.LastResult = nil
	if len(items) > 0 {
		first := items[0]
		slots.LastResult = &first
	}

	metrics.ChatTurns.WithLabelValues("recommend").Inc()
	if len(items) == 0 {
		return Reply{Text: "I came up empty for that combination. Want to try a different genre or language?"}
	}
	return Reply{Recommendations: items}
}

func (m *Manager) detailReply(slots *Slots) Reply {
	if slots.LastResult == nil {
		return Reply{Text: "I have nothing queued up yet. Tell me a genre and language and I'll find something."}
	}
	details := slots.LastResult.Overview
	if details == "" {
		details = "No extra details available."
	}
	return Reply{Text: fmt.Sprintf("More on %s: %s", slots.LastResult.Title, details)}
}

// clarifyingQuestion asks for exactly one missing slot per turn, phrased
// by the model when available.
func (m *Manager) clarifyingQuestion(ctx context.Context, slots *Slots, message string) string {
	missing := slots.Missing()
	fallback := staticQuestion(missing)

	if m.completer == nil {
		return fallback
	}

	var known []string
	if slots.Genre != "" {
		known = append(known, "genre: "+slots.Genre)
	}
	if slots.Language != "" {
		known = append(known, "language: "+slots.Language)
	}
	if slots.Year != 0 {
		known = append(known, fmt.Sprintf("year: %d", slots.Year))
	}

	user := fmt.Sprintf("Known preferences: %s. Still missing: %s. The user just said: %q. Ask one short friendly question for the first missing preference.",
		strings.Join(known, ", "), strings.Join(missing, ", "), message)

	phrased, err := m.completer.Complete(ctx, friendSystemPrompt, user)
	if err != nil || strings.TrimSpace(phrased) == "" {
		return fallback
	}
	return strings.TrimSpace(phrased)
}

func staticQuestion(missing []string) string {
	if len(missing) == 0 {
		return "Tell me a bit more about what you're in the mood for."
	}
	switch missing[0] {
	case "genre":
		return "What genre are you in the mood for? Action, comedy, drama, something else?"
	default:
		return "Which language would you like to watch in?"
	}
}
