package bridge

import (
	"errors"
	"sync"
)

// ErrSessionNotFound indicates a message was addressed to a session id that
// is unknown or already closed.
var ErrSessionNotFound = errors.New("session not found")

// sessionManager owns the mapping from session id to live SSE transport.
//
// It is the only shared mutable state in the bridge. Add and Remove are
// called by the stream open/close paths; Get is called by message delivery
// and never mutates. All methods are safe for concurrent use.
type sessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*sseTransport
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[string]*sseTransport)}
}

// Add registers a transport under its session id.
func (m *sessionManager) Add(t *sseTransport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[t.SessionID()] = t
}

// Get returns the transport for a session id, or ErrSessionNotFound.
func (m *sessionManager) Get(sessionID string) (*sseTransport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return t, nil
}

// Remove deletes a session entry. Removing an absent id is a no-op.
func (m *sessionManager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Len reports the number of open sessions.
func (m *sessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
