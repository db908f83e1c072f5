package memory

import (
	"context"
	"sync"

	"cemse-quiz/internal/domain"
)

// AttemptStore keeps graded attempts in process memory.
type AttemptStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{results: make(map[string]domain.Result)}
}

func (s *AttemptStore) SaveResult(_ context.Context, res domain.Result) (domain.Result, bool, error) {
	key := attemptKey(res.QuizID, res.SessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.results[key]; ok {
		return existing, false, nil
	}
	s.results[key] = res
	return res, true, nil
}

func (s *AttemptStore) GetResult(_ context.Context, quizID, sessionID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[attemptKey(quizID, sessionID)]
	if !ok {
		return domain.Result{}, domain.ErrAttemptNotFound
	}
	return res, nil
}

func attemptKey(quizID, sessionID string) string {
	return quizID + "/" + sessionID
}
