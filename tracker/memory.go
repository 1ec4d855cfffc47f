package tracker

import (
	"context"
	"sync"
	"time"
)

// MemoryTracker keeps sessions in process memory.
type MemoryTracker struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{sessions: make(map[string]Session)}
}

func (m *MemoryTracker) Save(_ context.Context, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *MemoryTracker) Load(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (m *MemoryTracker) Prune(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for id, session := range m.sessions {
		if session.State.Phase.Finished() && session.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned, nil
}
