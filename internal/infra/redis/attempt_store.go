package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cemse-quiz/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptStore keeps graded attempts as JSON with a TTL. SETNX makes the first
// stored result for a session authoritative.
//
//	SET attempt:{quizID}:{sessionID} <json> NX EX <ttl>
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) SaveResult(ctx context.Context, res domain.Result) (domain.Result, bool, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("encode attempt: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.key(res.QuizID, res.SessionID), data, s.ttl).Result()
	if err != nil {
		return domain.Result{}, false, err
	}
	if created {
		return res, true, nil
	}
	stored, err := s.GetResult(ctx, res.QuizID, res.SessionID)
	return stored, false, err
}

func (s *AttemptStore) GetResult(ctx context.Context, quizID, sessionID string) (domain.Result, error) {
	data, err := s.client.Get(ctx, s.key(quizID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Result{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Result{}, err
	}
	var res domain.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return domain.Result{}, fmt.Errorf("decode attempt: %w", err)
	}
	return res, nil
}

func (s *AttemptStore) key(quizID, sessionID string) string {
	return "attempt:" + quizID + ":" + sessionID
}
