package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cemse-quiz/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore records graded attempts in quiz_attempts. The (quiz_id, session_id)
// primary key keeps the first submission of a session.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) SaveResult(ctx context.Context, res domain.Result) (domain.Result, bool, error) {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `INSERT INTO quiz_attempts
		(quiz_id, session_id, score, total_points, percentage, passed, time_spent_seconds, answers, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
		ON CONFLICT (quiz_id, session_id) DO NOTHING`,
		res.QuizID, res.SessionID, res.Score, res.TotalPoints, res.Percentage, res.Passed,
		res.TimeSpentSeconds, string(answers), res.CompletedAt)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("insert attempt: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return res, true, nil
	}
	stored, err := s.GetResult(ctx, res.QuizID, res.SessionID)
	return stored, false, err
}

func (s *AttemptStore) GetResult(ctx context.Context, quizID, sessionID string) (domain.Result, error) {
	res := domain.Result{QuizID: quizID, SessionID: sessionID}
	var answers []byte
	err := s.pool.QueryRow(ctx, `SELECT score, total_points, percentage, passed, time_spent_seconds, answers, completed_at
		FROM quiz_attempts WHERE quiz_id=$1 AND session_id=$2`, quizID, sessionID).
		Scan(&res.Score, &res.TotalPoints, &res.Percentage, &res.Passed, &res.TimeSpentSeconds, &answers, &res.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("load attempt: %w", err)
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	res.CompletedAt = res.CompletedAt.UTC()
	return res, nil
}
