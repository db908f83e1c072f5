// Package session runs a single quiz attempt: navigation, answers, the countdown,
// submission and review.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cemse-quiz/internal/domain"
	"github.com/google/uuid"
)

// State is the phase of the current attempt.
type State string

const (
	StateTaking     State = "taking"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateReviewing  State = "reviewing"
	StateCancelled  State = "cancelled"
)

var (
	ErrNotTaking         = errors.New("attempt is not in progress")
	ErrAnswerRequired    = errors.New("answer required before advancing")
	ErrIndexOutOfRange   = errors.New("question index out of range")
	ErrNotCompleted      = errors.New("attempt not completed")
	ErrReviewUnavailable = errors.New("review is not offered for this quiz")
	ErrNotReviewing      = errors.New("attempt is not in review")
	ErrClosed            = errors.New("session closed")
)

// Options configure a Controller. Zero values give local grading, no answer gating
// and real time.
type Options struct {
	Strategy Strategy
	Remote   Remote
	// RequireAnswer blocks Next until the current question has a non-empty answer.
	RequireAnswer bool

	// OnSubmitting runs once the attempt is frozen and before it is graded.
	OnSubmitting func()
	OnComplete   func(domain.Result)
	OnCancel     func()
	OnTick       func(remaining int)

	Now       func() time.Time
	NewTicker func(time.Duration) Ticker
	NewID     func() string
}

// View is a read-only snapshot of the controller.
type View struct {
	SessionID     string         `json:"sessionId"`
	QuizID        string         `json:"quizId"`
	Attempt       int            `json:"attempt"`
	State         State          `json:"state"`
	Index         int            `json:"index"`
	Total         int            `json:"total"`
	Answered      int            `json:"answered"`
	Remaining     *int           `json:"remaining,omitempty"`
	RequireAnswer bool           `json:"requireAnswer"`
	CanReview     bool           `json:"canReview"`
	Result        *domain.Result `json:"result,omitempty"`
}

// Controller owns one quiz session. Retakes reuse the controller with a fresh attempt.
type Controller struct {
	quiz      domain.Quiz
	questions []domain.Question
	opts      Options
	submitter Submitter

	mu        sync.Mutex
	state     State
	attempt   int
	sessionID string
	index     int
	answers   *AnswerStore
	spent     map[string]time.Duration
	enteredAt time.Time
	timer     *Timer
	result    *domain.Result
	closed    bool
}

// New validates the quiz and enters the taking state. A quiz without questions is
// refused with domain.ErrQuizUnavailable.
func New(quiz domain.Quiz, opts Options) (*Controller, error) {
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTicker
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	c := &Controller{
		quiz:      quiz,
		questions: quiz.Ordered(),
		opts:      opts,
		submitter: NewSubmitter(opts.Strategy, opts.Remote),
	}
	c.mu.Lock()
	c.beginLocked()
	c.mu.Unlock()
	return c, nil
}

func (c *Controller) beginLocked() {
	now := c.opts.Now()
	c.attempt++
	c.sessionID = c.opts.NewID()
	c.state = StateTaking
	c.index = 0
	c.answers = NewAnswerStore(c.questions)
	c.spent = make(map[string]time.Duration, len(c.questions))
	c.enteredAt = now
	c.result = nil
	c.timer = nil

	limit := c.quiz.TimeLimit()
	if limit <= 0 {
		return
	}
	attempt := c.attempt
	c.timer = StartTimer(int(limit/time.Second), c.opts.NewTicker(time.Second),
		func(remaining int) {
			if c.opts.OnTick != nil && c.isAttempt(attempt) {
				c.opts.OnTick(remaining)
			}
		},
		func() {
			c.submit(context.Background(), attempt)
		},
	)
}

func (c *Controller) isAttempt(attempt int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt == attempt && !c.closed
}

func (c *Controller) Quiz() domain.Quiz { return c.quiz }

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current returns the question at the current index. An index outside the quiz is
// reported as ErrIndexOutOfRange rather than dereferenced.
func (c *Controller) Current() (domain.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Controller) currentLocked() (domain.Question, error) {
	if c.index < 0 || c.index >= len(c.questions) {
		return domain.Question{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, c.index, len(c.questions))
	}
	return c.questions[c.index], nil
}

// Render returns the widget for the current question bound to this attempt.
func (c *Controller) Render() (Widget, error) {
	c.mu.Lock()
	q, err := c.currentLocked()
	if err != nil {
		c.mu.Unlock()
		return Widget{}, err
	}
	value := c.answers.Get(q.ID)
	c.mu.Unlock()

	return Render(q, value, func(v domain.Value) error {
		return c.SetAnswer(q.ID, v)
	}), nil
}

// Answer reads the stored value for a question of the current attempt.
func (c *Controller) Answer(questionID string) domain.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Get(questionID)
}

// SetAnswer records a value while the attempt is being taken.
func (c *Controller) SetAnswer(questionID string, v domain.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takingLocked(); err != nil {
		return err
	}
	return c.answers.Set(questionID, v)
}

// Next advances one question; on the last question it submits instead.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if err := c.takingLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	q, err := c.currentLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if c.opts.RequireAnswer && !c.answers.Answered(q.ID) {
		c.mu.Unlock()
		return ErrAnswerRequired
	}
	if c.index == len(c.questions)-1 {
		attempt := c.attempt
		c.mu.Unlock()
		c.submit(ctx, attempt)
		return nil
	}
	c.moveLocked(c.index + 1)
	c.mu.Unlock()
	return nil
}

// Previous steps back one question, never below the first.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takingLocked(); err != nil {
		return err
	}
	if c.index > 0 {
		c.moveLocked(c.index - 1)
	}
	return nil
}

// Jump moves directly to a question index.
func (c *Controller) Jump(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takingLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(c.questions) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(c.questions))
	}
	c.moveLocked(index)
	return nil
}

func (c *Controller) moveLocked(index int) {
	c.accountLocked()
	c.index = index
}

// accountLocked charges the time since the last move to the current question.
func (c *Controller) accountLocked() {
	now := c.opts.Now()
	if q, err := c.currentLocked(); err == nil {
		c.spent[q.ID] += now.Sub(c.enteredAt)
	}
	c.enteredAt = now
}

func (c *Controller) takingLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.state != StateTaking {
		return fmt.Errorf("%w: %s", ErrNotTaking, c.state)
	}
	return nil
}

// Submit grades the current attempt. It returns false when a submission for this
// attempt has already started or finished, or the attempt is not being taken.
func (c *Controller) Submit(ctx context.Context) bool {
	c.mu.Lock()
	attempt := c.attempt
	c.mu.Unlock()
	return c.submit(ctx, attempt)
}

func (c *Controller) submit(ctx context.Context, attempt int) bool {
	c.mu.Lock()
	if c.closed || c.attempt != attempt || c.state != StateTaking {
		c.mu.Unlock()
		return false
	}
	c.state = StateSubmitting
	if c.timer != nil {
		c.timer.Stop()
	}
	c.accountLocked()
	answers := c.answers.Snapshot()
	spent := make(map[string]time.Duration, len(c.spent))
	for id, d := range c.spent {
		spent[id] = d
	}
	sessionID := c.sessionID
	now := c.opts.Now()
	c.mu.Unlock()

	if c.opts.OnSubmitting != nil {
		c.opts.OnSubmitting()
	}
	res := c.submitter.Submit(ctx, c.quiz, sessionID, answers, spent, now)

	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		return true
	}
	c.result = &res
	c.state = StateCompleted
	closed := c.closed
	c.mu.Unlock()

	if closed {
		log.Printf("session %s closed before result was delivered", sessionID)
		return true
	}
	if c.opts.OnComplete != nil {
		c.opts.OnComplete(res)
	}
	return true
}

// Result returns the result of the current attempt once it is completed.
func (c *Controller) Result() (domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.Result{}, false
	}
	return *c.result, true
}

// Review enters review mode. Only offered when the quiz shows correct answers.
func (c *Controller) Review() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCompleted {
		return fmt.Errorf("%w: %s", ErrNotCompleted, c.state)
	}
	if !c.quiz.ShowCorrectAnswers {
		return ErrReviewUnavailable
	}
	c.state = StateReviewing
	return nil
}

// ReviewItems lists each question with the submitted and correct answers.
func (c *Controller) ReviewItems() ([]domain.ReviewItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReviewing || c.result == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotReviewing, c.state)
	}
	items := make([]domain.ReviewItem, 0, len(c.questions))
	for i, q := range c.questions {
		a, ok := c.result.Answer(q.ID)
		if !ok {
			a = domain.Answer{QuestionID: q.ID, Value: q.EmptyValue()}
		}
		items = append(items, domain.ReviewItem{
			Index:         i,
			Question:      q,
			Submitted:     a.Value,
			Correct:       q.CorrectAnswer,
			IsCorrect:     a.IsCorrect,
			PointsAwarded: a.PointsAwarded,
			Explanation:   q.Explanation,
		})
	}
	return items, nil
}

// CloseReview returns from review to the completed state.
func (c *Controller) CloseReview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReviewing {
		return fmt.Errorf("%w: %s", ErrNotReviewing, c.state)
	}
	c.state = StateCompleted
	return nil
}

// Retake discards the answers and result and starts a new attempt at index 0.
func (c *Controller) Retake() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state != StateCompleted && c.state != StateReviewing {
		return fmt.Errorf("%w: %s", ErrNotCompleted, c.state)
	}
	c.beginLocked()
	return nil
}

// Cancel abandons the attempt before completion and notifies OnCancel.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	if err := c.takingLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.state = StateCancelled
	c.mu.Unlock()

	if c.opts.OnCancel != nil {
		c.opts.OnCancel()
	}
	return nil
}

// Close stops the timer and detaches callbacks. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Remaining returns the seconds left and false for untimed quizzes.
func (c *Controller) Remaining() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return 0, false
	}
	return c.timer.Remaining(), true
}

// Snapshot describes the session for transports.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		SessionID:     c.sessionID,
		QuizID:        c.quiz.ID,
		Attempt:       c.attempt,
		State:         c.state,
		Index:         c.index,
		Total:         len(c.questions),
		RequireAnswer: c.opts.RequireAnswer,
		CanReview:     c.state == StateCompleted && c.quiz.ShowCorrectAnswers,
	}
	for _, q := range c.questions {
		if c.answers.Answered(q.ID) {
			v.Answered++
		}
	}
	if c.timer != nil {
		remaining := c.timer.Remaining()
		v.Remaining = &remaining
	}
	if c.result != nil {
		res := *c.result
		v.Result = &res
	}
	return v
}
