package session

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSessionNotFound is returned when no session exists for an ID
var ErrSessionNotFound = errors.New("session not found")

// Store defines the interface for session state access. Sessions are
// memory-only: they live until the host process ends.
type Store interface {
	// Put saves a session
	Put(session *Session) error

	// Get retrieves a session by ID
	Get(id string) (*Session, error)

	// Delete removes a session
	Delete(id string) error
}

// MemoryStore implements the Store interface with an in-process map.
// Sessions are deep-copied on both Put and Get, so the stored state
// never aliases a session a caller is still mutating and readers get a
// stable snapshot.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new MemoryStore instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Put saves a snapshot of the session
func (m *MemoryStore) Put(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session.Clone()
	return nil
}

// Get retrieves a copy of a session by ID
func (m *MemoryStore) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session.Clone(), nil
}

// Delete removes a session
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}
