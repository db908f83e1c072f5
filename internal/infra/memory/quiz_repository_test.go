package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cemse-quiz/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].CorrectAnswer.Str() != "4" {
		t.Fatalf("unexpected cached quiz %+v", quiz)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})}
	repo := NewQuizRepositoryWithClock(loader, time.Minute, clock)

	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, got %d loads", loader.count())
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:           "quiz-1",
		PassingScore: 50,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Text:          "What is 2 + 2?",
				Type:          domain.SingleChoice,
				Options:       []string{"3", "4"},
				CorrectAnswer: domain.Text("4"),
				Points:        1,
			},
		},
	}
}
