package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/grading"
	"cemse-quiz/internal/session"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptRepository persists graded attempts, one per session id.
type AttemptRepository interface {
	// SaveResult stores res unless a result for the same quiz and session exists.
	// It returns the stored result and whether this call created it.
	SaveResult(ctx context.Context, res domain.Result) (domain.Result, bool, error)
	GetResult(ctx context.Context, quizID, sessionID string) (domain.Result, error)
}

// SessionRepository abstracts how live sessions are held (in-memory, Redis, etc).
type SessionRepository interface {
	Put(s *LiveSession)
	Get(sessionID string) (*LiveSession, bool)
	Delete(sessionID string)
	Range(fn func(s *LiveSession) bool)
}

// QuizService contains the server-side quiz use cases.
type QuizService struct {
	quizzes  QuizRepository
	attempts AttemptRepository
	sessions SessionRepository
	now      func() time.Time

	strategy session.Strategy
	remote   session.Remote
}

func NewQuizService(sessions SessionRepository, quizzes QuizRepository, attempts AttemptRepository) *QuizService {
	return NewQuizServiceWithClock(sessions, quizzes, attempts, time.Now)
}

// NewQuizServiceWithClock allows deterministic timestamps in tests.
func NewQuizServiceWithClock(sessions SessionRepository, quizzes QuizRepository, attempts AttemptRepository, now func() time.Time) *QuizService {
	return &QuizService{sessions: sessions, quizzes: quizzes, attempts: attempts, now: now, strategy: session.StrategyRemote}
}

// SetGrading selects how server-hosted sessions are graded. A nil remote with the
// remote strategy submits through the service itself; the local strategy grades
// in the controller and stores nothing.
func (s *QuizService) SetGrading(strategy session.Strategy, remote session.Remote) {
	s.strategy = strategy
	s.remote = remote
}

// GetQuiz loads a quiz and checks it can be taken.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Submit grades a submission against the stored quiz. Repeating a submission for the
// same session returns the first stored result.
func (s *QuizService) Submit(ctx context.Context, sub domain.Submission) (domain.Result, error) {
	if err := sub.Validate(); err != nil {
		return domain.Result{}, err
	}

	existing, err := s.attempts.GetResult(ctx, sub.QuizID, sub.SessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrAttemptNotFound) {
		return domain.Result{}, err
	}

	quiz, err := s.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return domain.Result{}, err
	}

	answers := make(map[string]domain.Value, len(sub.Answers))
	spent := make(map[string]time.Duration, len(sub.Answers))
	for _, a := range sub.Answers {
		if _, ok := quiz.Question(a.QuestionID); !ok {
			return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, a.QuestionID)
		}
		answers[a.QuestionID] = a.Answer
		spent[a.QuestionID] = time.Duration(a.TimeSpentSeconds) * time.Second
	}

	res := grading.Score(quiz, answers, spent, s.now().UTC())
	res.SessionID = sub.SessionID

	stored, created, err := s.attempts.SaveResult(ctx, res)
	if err != nil {
		return domain.Result{}, fmt.Errorf("save attempt: %w", err)
	}
	if created {
		log.Printf("quiz %s session %s scored %d/%d passed=%v", stored.QuizID, stored.SessionID, stored.Score, stored.TotalPoints, stored.Passed)
	}
	return stored, nil
}

// AttemptResult returns the stored result of a session.
func (s *QuizService) AttemptResult(ctx context.Context, quizID, sessionID string) (domain.Result, error) {
	return s.attempts.GetResult(ctx, quizID, sessionID)
}

// Remote exposes Submit as a session.Remote so server-hosted sessions persist their
// attempts through the same path as HTTP clients.
func (s *QuizService) Remote() session.Remote {
	return serviceRemote{svc: s}
}

type serviceRemote struct{ svc *QuizService }

func (r serviceRemote) Submit(ctx context.Context, sub domain.Submission) (domain.Receipt, error) {
	res, err := r.svc.Submit(ctx, sub)
	if err != nil {
		return domain.Receipt{}, err
	}
	return domain.ReceiptFor(res), nil
}

// SessionOptions configure a server-hosted session.
type SessionOptions struct {
	RequireAnswer bool
	Listener      Listener
}

// StartSession creates a live session for the quiz and registers it.
func (s *QuizService) StartSession(ctx context.Context, quizID string, opts SessionOptions) (*LiveSession, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	live := &LiveSession{listener: opts.Listener}
	if opts.Listener == nil {
		live.detachedAt = s.now()
	}
	remote := s.remote
	if remote == nil {
		remote = s.Remote()
	}
	ctrl, err := session.New(quiz, session.Options{
		Strategy:      s.strategy,
		Remote:        remote,
		RequireAnswer: opts.RequireAnswer,
		OnSubmitting:  live.submitting,
		OnComplete:    live.completed,
		OnCancel:      live.cancelled,
		OnTick:        live.tick,
		Now:           s.now,
	})
	if err != nil {
		return nil, err
	}
	live.id = ctrl.SessionID()
	live.ctrl = ctrl
	s.sessions.Put(live)
	return live, nil
}

// Session resumes a registered live session.
func (s *QuizService) Session(_ context.Context, sessionID string) (*LiveSession, error) {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return live, nil
}

// Retake starts a new attempt on the live session and re-registers it under the
// new session id.
func (s *QuizService) Retake(_ context.Context, live *LiveSession) error {
	old := live.ID()
	if err := live.ctrl.Retake(); err != nil {
		return err
	}
	s.sessions.Delete(old)
	live.setID(live.ctrl.SessionID())
	s.sessions.Put(live)
	return nil
}

// EndSession stops the session's timer and unregisters it.
func (s *QuizService) EndSession(_ context.Context, sessionID string) {
	live, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	live.ctrl.Close()
	s.sessions.Delete(sessionID)
}

// ReapDetached ends sessions that have had no listener for longer than maxIdle.
func (s *QuizService) ReapDetached(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var stale []string
	s.sessions.Range(func(live *LiveSession) bool {
		if since, detached := live.detachedSince(); detached && since.Before(cutoff) {
			stale = append(stale, live.ID())
		}
		return true
	})
	for _, id := range stale {
		s.EndSession(ctx, id)
	}
	if len(stale) > 0 {
		log.Printf("reaped %d detached sessions", len(stale))
	}
	return len(stale)
}
