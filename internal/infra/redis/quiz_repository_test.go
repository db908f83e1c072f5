package redis

import (
	"context"
	"testing"
	"time"

	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	_, err = repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1:definition") {
		t.Fatalf("expected quiz cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	// the answer key survives the JSON round trip through Redis
	if got := quiz.Questions[1].CorrectAnswer.Members(); len(got) != 2 || got[0] != "2" {
		t.Fatalf("unexpected cached key %v", got)
	}
	if quiz.TimeLimit() != 30*time.Second {
		t.Fatalf("expected time limit kept, got %v", quiz.TimeLimit())
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestQuizRepositoryInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuizRepository(newClient(mr), memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if err := repo.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:quiz-1:definition") {
		t.Fatalf("expected cache entry removed")
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	limit := 30
	return domain.Quiz{
		ID:               "quiz-1",
		PassingScore:     50,
		TimeLimitSeconds: &limit,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Text:          "What is 2 + 2?",
				Type:          domain.SingleChoice,
				Options:       []string{"3", "4"},
				CorrectAnswer: domain.Text("4"),
				Points:        1,
			},
			{
				ID:            "q2",
				Text:          "Pick the even numbers",
				Type:          domain.MultiSelect,
				Options:       []string{"1", "2", "4"},
				CorrectAnswer: domain.Set("2", "4"),
				Points:        2,
				OrderIndex:    1,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
