package redis

import (
	"context"
	"sync"
	"time"

	"cemse-quiz/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Controllers own a running timer, so they stay in a local map; Redis only carries a
// liveness marker per session (SET quiz:session:{id} {quizID} EX ttl) so other
// instances and operators can see which attempts are in flight.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.LiveSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.LiveSession),
	}
}

func (s *SessionStore) Put(live *app.LiveSession) {
	s.mu.Lock()
	s.sessions[live.ID()] = live
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(live.ID()), live.Controller().Quiz().ID, s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.LiveSession, bool) {
	s.mu.RLock()
	live, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return live, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

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

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
