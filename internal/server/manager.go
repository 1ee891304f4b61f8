package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/session"
)

// SessionManager owns the live sessions. Session state is private to each
// session; the manager only creates, finds, and drops them.
type SessionManager struct {
	mu       sync.Mutex
	pipe     *pipeline.Pipeline
	sessions map[uuid.UUID]*session.Session
}

// NewSessionManager creates a manager whose sessions run on pipe.
func NewSessionManager(pipe *pipeline.Pipeline) *SessionManager {
	return &SessionManager{
		pipe:     pipe,
		sessions: make(map[uuid.UUID]*session.Session),
	}
}

// Create starts a new empty session.
func (m *SessionManager) Create() *session.Session {
	s := session.New(m.pipe)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// Get returns the session for id.
func (m *SessionManager) Get(id uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, &ErrSessionNotFound{SessionID: id}
	}
	return s, nil
}

// Delete drops the session for id. Its persisted records are untouched.
func (m *SessionManager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return &ErrSessionNotFound{SessionID: id}
	}
	delete(m.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
