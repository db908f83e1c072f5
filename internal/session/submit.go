package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/grading"
)

// Strategy selects how a finished attempt is graded.
type Strategy string

const (
	// StrategyLocal grades entirely in-process.
	StrategyLocal Strategy = "local"
	// StrategyRemote posts to the submission endpoint and grades locally only if that fails.
	StrategyRemote Strategy = "remote"
)

// ParseStrategy maps a config string to a Strategy; empty means local.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(raw) {
	case "", StrategyLocal:
		return StrategyLocal, nil
	case StrategyRemote:
		return StrategyRemote, nil
	default:
		return "", fmt.Errorf("unknown grading strategy %q", raw)
	}
}

// Remote persists an attempt and returns the authoritative verdict.
type Remote interface {
	Submit(ctx context.Context, sub domain.Submission) (domain.Receipt, error)
}

// Submitter turns a snapshot of answers into a complete Result.
type Submitter struct {
	strategy Strategy
	remote   Remote
}

func NewSubmitter(strategy Strategy, remote Remote) Submitter {
	if remote == nil {
		strategy = StrategyLocal
	}
	return Submitter{strategy: strategy, remote: remote}
}

func (s Submitter) Strategy() Strategy { return s.strategy }

// Submit grades the attempt. With the remote strategy the server decides correctness;
// any remote failure falls back to local grading and marks the result degraded.
func (s Submitter) Submit(ctx context.Context, quiz domain.Quiz, sessionID string, answers map[string]domain.Value, spent map[string]time.Duration, now time.Time) domain.Result {
	if s.strategy == StrategyRemote {
		receipt, err := s.remote.Submit(ctx, buildSubmission(quiz, sessionID, answers, spent))
		if err == nil {
			return fromReceipt(quiz, sessionID, receipt, answers, spent, now)
		}
		log.Printf("remote submission for quiz %s session %s failed, grading locally: %v", quiz.ID, sessionID, err)
		res := grading.Score(quiz, answers, spent, now)
		res.SessionID = sessionID
		res.Degraded = true
		return res
	}

	res := grading.Score(quiz, answers, spent, now)
	res.SessionID = sessionID
	return res
}

func buildSubmission(quiz domain.Quiz, sessionID string, answers map[string]domain.Value, spent map[string]time.Duration) domain.Submission {
	sub := domain.Submission{QuizID: quiz.ID, SessionID: sessionID}
	for _, q := range quiz.Ordered() {
		value, ok := answers[q.ID]
		if !ok {
			value = q.EmptyValue()
		}
		sub.Answers = append(sub.Answers, domain.SubmittedAnswer{
			QuestionID:       q.ID,
			Answer:           value,
			TimeSpentSeconds: int(spent[q.ID].Round(time.Second) / time.Second),
		})
	}
	return sub
}

// fromReceipt fills every Result field from the server verdict plus the quiz definition.
// Questions missing from the receipt count as incorrect.
func fromReceipt(quiz domain.Quiz, sessionID string, receipt domain.Receipt, answers map[string]domain.Value, spent map[string]time.Duration, now time.Time) domain.Result {
	verdicts := make(map[string]domain.ReceiptAnswer, len(receipt.Answers))
	for _, a := range receipt.Answers {
		verdicts[a.QuestionID] = a
	}

	res := domain.Result{
		QuizID:      quiz.ID,
		SessionID:   sessionID,
		Score:       receipt.Score,
		Passed:      receipt.Passed,
		CompletedAt: receipt.CompletedAt,
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = now
	}

	var total time.Duration
	for _, q := range quiz.Ordered() {
		value, ok := answers[q.ID]
		if !ok {
			value = q.EmptyValue()
		}
		verdict := verdicts[q.ID]
		awarded := 0
		if verdict.IsCorrect {
			awarded = q.Points
		}
		res.TotalPoints += q.Points
		total += spent[q.ID]
		res.Answers = append(res.Answers, domain.Answer{
			QuestionID:       q.ID,
			Value:            value,
			IsCorrect:        verdict.IsCorrect,
			PointsAwarded:    awarded,
			TimeSpentSeconds: int(spent[q.ID].Round(time.Second) / time.Second),
		})
	}
	res.Percentage = domain.Percentage(res.Score, res.TotalPoints)
	res.TimeSpentSeconds = int(total.Round(time.Second) / time.Second)
	return res
}
