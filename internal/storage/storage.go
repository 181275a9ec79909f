package storage

import (
	"sync"
	"time"
)

type sessionEntry[T any] struct {
	value    T
	lastSeen time.Time
}

// SessionStore keeps per-client state in memory, keyed by session ID. Entries
// not touched for longer than the idle window are dropped by Prune.
type SessionStore[T any] struct {
	sessions map[string]*sessionEntry[T]
	mu       sync.RWMutex
	now      func() time.Time
}

func New[T any]() *SessionStore[T] {
	return &SessionStore[T]{
		sessions: make(map[string]*sessionEntry[T]),
		now:      time.Now,
	}
}

func (s *SessionStore[T]) Get(sessionID string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, exists := s.sessions[sessionID]
	if !exists {
		var zero T
		return zero, false
	}
	entry.lastSeen = s.now()
	return entry.value, true
}

func (s *SessionStore[T]) Set(sessionID string, session T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &sessionEntry[T]{value: session, lastSeen: s.now()}
}

// GetOrCreate returns the session for sessionID, creating it with create
// when absent
func (s *SessionStore[T]) GetOrCreate(sessionID string, create func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[sessionID]; ok {
		entry.lastSeen = s.now()
		return entry.value
	}
	session := create()
	s.sessions[sessionID] = &sessionEntry[T]{value: session, lastSeen: s.now()}
	return session
}

func (s *SessionStore[T]) GetAll() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]T, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v.value
	}
	return result
}

func (s *SessionStore[T]) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports how many sessions are held
func (s *SessionStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune drops sessions idle for longer than idle and returns how many went
func (s *SessionStore[T]) Prune(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	removed := 0
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
