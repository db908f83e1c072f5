package memory

import (
	"sync"

	"cemse-quiz/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.LiveSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.LiveSession),
	}
}

func (s *SessionStore) Put(live *app.LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[live.ID()] = live
}

func (s *SessionStore) Get(sessionID string) (*app.LiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live, ok := s.sessions[sessionID]
	return live, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Range visits a copy of the registered sessions so fn may call back into the store.
func (s *SessionStore) Range(fn func(*app.LiveSession) bool) {
	s.mu.RLock()
	all := make([]*app.LiveSession, 0, len(s.sessions))
	for _, live := range s.sessions {
		all = append(all, live)
	}
	s.mu.RUnlock()

	for _, live := range all {
		if !fn(live) {
			return
		}
	}
}
