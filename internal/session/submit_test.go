package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"cemse-quiz/internal/domain"
)

type stubRemote struct {
	receipt domain.Receipt
	err     error
	got     domain.Submission
}

func (s *stubRemote) Submit(_ context.Context, sub domain.Submission) (domain.Receipt, error) {
	s.got = sub
	return s.receipt, s.err
}

func TestSubmitterRemoteIsAuthoritative(t *testing.T) {
	completed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	remote := &stubRemote{receipt: domain.Receipt{
		Score:  10,
		Passed: true,
		Answers: []domain.ReceiptAnswer{
			{QuestionID: "q1", Answer: domain.Text("B"), IsCorrect: true},
			{QuestionID: "q2", Answer: domain.Set("X"), IsCorrect: false},
		},
		CompletedAt: completed,
	}}
	sub := NewSubmitter(StrategyRemote, remote)

	answers := map[string]domain.Value{"q1": domain.Text("B"), "q2": domain.Set("X")}
	spent := map[string]time.Duration{"q1": 2 * time.Second}
	res := sub.Submit(context.Background(), twoQuestions(), "s-1", answers, spent, time.Now())

	if res.Degraded {
		t.Fatalf("remote result must not be degraded")
	}
	// the server marked the wrong local answer as correct and wins
	if a, _ := res.Answer("q1"); !a.IsCorrect || a.PointsAwarded != 10 {
		t.Fatalf("expected server verdict for q1, got %+v", a)
	}
	if res.Score != 10 || res.TotalPoints != 20 || res.Percentage != 50 || !res.Passed {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.CompletedAt.Equal(completed) || res.SessionID != "s-1" || res.QuizID != "quiz-1" {
		t.Fatalf("unexpected metadata %+v", res)
	}
	if len(remote.got.Answers) != 2 || remote.got.SessionID != "s-1" || remote.got.Answers[0].TimeSpentSeconds != 2 {
		t.Fatalf("unexpected submission body %+v", remote.got)
	}
}

func TestSubmitterFallsBackLocally(t *testing.T) {
	remote := &stubRemote{err: errors.New("connection refused")}
	sub := NewSubmitter(StrategyRemote, remote)

	answers := map[string]domain.Value{"q1": domain.Text("A"), "q2": domain.Set("X")}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	res := sub.Submit(context.Background(), twoQuestions(), "s-2", answers, nil, now)

	if !res.Degraded {
		t.Fatalf("fallback result must be flagged")
	}
	if res.Score != 10 || res.TotalPoints != 20 || res.Percentage != 50 || !res.Passed || len(res.Answers) != 2 {
		t.Fatalf("unexpected fallback result %+v", res)
	}
	if !res.CompletedAt.Equal(now) || res.SessionID != "s-2" {
		t.Fatalf("unexpected metadata %+v", res)
	}
}

func TestSubmitterLocalIgnoresRemote(t *testing.T) {
	remote := &stubRemote{err: errors.New("must not be called")}
	res := NewSubmitter(StrategyLocal, remote).Submit(context.Background(), twoQuestions(), "s-3", nil, nil, time.Now())
	if remote.got.QuizID != "" {
		t.Fatalf("local strategy called the remote")
	}
	if res.Degraded || res.Score != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSubmitterWithoutRemoteIsLocal(t *testing.T) {
	if s := NewSubmitter(StrategyRemote, nil); s.Strategy() != StrategyLocal {
		t.Fatalf("expected local strategy, got %s", s.Strategy())
	}
}

func TestParseStrategy(t *testing.T) {
	for raw, want := range map[string]Strategy{"": StrategyLocal, "local": StrategyLocal, "remote": StrategyRemote} {
		got, err := ParseStrategy(raw)
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (%v)", raw, want, got, err)
		}
	}
	if _, err := ParseStrategy("server"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func twoQuestions() domain.Quiz {
	return domain.Quiz{
		ID:           "quiz-1",
		PassingScore: 50,
		Questions: []domain.Question{
			{ID: "q1", Text: "Pick A", Type: domain.SingleChoice, Options: []string{"A", "B"}, CorrectAnswer: domain.Text("A"), Points: 10},
			{ID: "q2", Text: "Pick X and Y", Type: domain.MultiSelect, Options: []string{"X", "Y"}, CorrectAnswer: domain.Set("X", "Y"), Points: 10, OrderIndex: 1},
		},
	}
}
