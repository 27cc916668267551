package rag

import (
	"sync"
	"time"
)

const defaultMaxTurns = 10

// Turn is one completed exchange in a session.
type Turn struct {
	Query     string
	Answer    string
	Context   *RetrievalContext
	Timestamp time.Time
}

type session struct {
	mu    sync.Mutex
	turns []Turn
}

// ConversationMemory holds per-session history, capped at maxTurns with
// oldest-first eviction. Sessions are isolated; in-memory only, so history
// does not survive a restart.
type ConversationMemory struct {
	mu       sync.RWMutex
	sessions map[string]*session
	maxTurns int
}

func NewConversationMemory(maxTurns int) *ConversationMemory {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &ConversationMemory{
		sessions: make(map[string]*session),
		maxTurns: maxTurns,
	}
}

func (m *ConversationMemory) getOrCreate(sessionID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[sessionID]; ok {
		return s
	}
	s = &session{}
	m.sessions[sessionID] = s
	return s
}

// AddTurn appends a completed exchange, evicting the oldest turn once the
// session is at capacity.
func (m *ConversationMemory) AddTurn(sessionID string, turn Turn) {
	if sessionID == "" {
		return
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	s := m.getOrCreate(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn)
	if len(s.turns) > m.maxTurns {
		s.turns = s.turns[len(s.turns)-m.maxTurns:]
	}
}

// History returns a copy of the session's turns, oldest first. Unknown
// sessions return nil.
func (m *ConversationMemory) History(sessionID string) []Turn {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// LastContext returns the retrieval context of the most recent turn, or nil
// when the session is unknown or empty.
func (m *ConversationMemory) LastContext(sessionID string) *RetrievalContext {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Context != nil {
			return s.turns[i].Context
		}
	}
	return nil
}

// Clear drops one session; other sessions are untouched.
func (m *ConversationMemory) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
