package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// QuestionType selects the input widget and the grading rule for a question.
type QuestionType string

const (
	SingleChoice QuestionType = "single-choice"
	TrueFalse    QuestionType = "true-false"
	MultiSelect  QuestionType = "multi-select"
	ShortAnswer  QuestionType = "short-answer"
	FillBlank    QuestionType = "fill-blank"
)

// IsChoice reports whether exactly one option is picked for this type.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == TrueFalse
}

// Question is a single prompt of a quiz. CorrectAnswer is a text value for choice and
// free-text types and a set value for multi-select.
type Question struct {
	ID            string       `json:"id" yaml:"id" validate:"required"`
	Text          string       `json:"text" yaml:"text" validate:"required"`
	Type          QuestionType `json:"type" yaml:"type" validate:"required"`
	Options       []string     `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer Value        `json:"correctAnswer" yaml:"correctAnswer"`
	Points        int          `json:"points" yaml:"points" validate:"gt=0"`
	Explanation   string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	OrderIndex    int          `json:"orderIndex" yaml:"orderIndex"`
}

// EmptyValue is what an unanswered question reads as.
func (q Question) EmptyValue() Value {
	if q.Type == MultiSelect {
		return Set()
	}
	return Text("")
}

// Quiz is supplied by the caller and treated as immutable.
type Quiz struct {
	ID                 string     `json:"id" yaml:"id" validate:"required"`
	Title              string     `json:"title" yaml:"title"`
	Description        string     `json:"description,omitempty" yaml:"description,omitempty"`
	TimeLimitSeconds   *int       `json:"timeLimitSeconds,omitempty" yaml:"timeLimitSeconds,omitempty" validate:"omitempty,gt=0"`
	PassingScore       float64    `json:"passingScore" yaml:"passingScore" validate:"min=0,max=100"`
	Questions          []Question `json:"questions" yaml:"questions" validate:"required,min=1,dive"`
	ShowCorrectAnswers bool       `json:"showCorrectAnswers" yaml:"showCorrectAnswers"`
}

// TimeLimit returns the countdown length, zero when the quiz is untimed.
func (q Quiz) TimeLimit() time.Duration {
	if q.TimeLimitSeconds == nil || *q.TimeLimitSeconds <= 0 {
		return 0
	}
	return time.Duration(*q.TimeLimitSeconds) * time.Second
}

// Ordered returns the questions sorted by OrderIndex; ties keep their original sequence.
func (q Quiz) Ordered() []Question {
	out := make([]Question, len(q.Questions))
	copy(out, q.Questions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// TotalPoints sums the weight of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Question looks a question up by id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

var validate = validator.New()

// Validate checks that the quiz can be taken. Any failure is reported as ErrQuizUnavailable.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %q has no questions", ErrQuizUnavailable, q.ID)
	}
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrQuizUnavailable, err)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrQuizUnavailable, question.ID)
		}
		seen[question.ID] = struct{}{}
		if err := question.checkKey(); err != nil {
			return fmt.Errorf("%w: question %q %v", ErrQuizUnavailable, question.ID, err)
		}
	}
	return nil
}

// checkKey rejects questions that could never be answered correctly. True-false
// falls back to the true/false options.
func (q Question) checkKey() error {
	if q.CorrectAnswer.IsEmpty() {
		return errors.New("has no correct answer")
	}
	if (q.Type == SingleChoice || q.Type == MultiSelect) && len(q.Options) == 0 {
		return errors.New("has no options")
	}
	if q.Type == MultiSelect && q.CorrectAnswer.Kind() != KindSet {
		return errors.New("needs a list of correct options")
	}
	return nil
}

// Answer is a graded response to one question.
type Answer struct {
	QuestionID       string `json:"questionId"`
	Value            Value  `json:"answer"`
	IsCorrect        bool   `json:"isCorrect"`
	PointsAwarded    int    `json:"pointsAwarded"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

// Result is produced once per completed attempt.
type Result struct {
	QuizID           string    `json:"quizId"`
	SessionID        string    `json:"sessionId"`
	Score            int       `json:"score"`
	TotalPoints      int       `json:"totalPoints"`
	Percentage       float64   `json:"percentage"`
	Passed           bool      `json:"passed"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	Answers          []Answer  `json:"answers"`
	CompletedAt      time.Time `json:"completedAt"`
	// Degraded marks a result graded locally after the remote submission failed.
	Degraded bool `json:"degraded,omitempty"`
}

// Answer returns the graded answer for a question id.
func (r Result) Answer(questionID string) (Answer, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// Percentage is score/total*100, or 0 when total is 0.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}

// Passed applies the passing threshold to a percentage.
func Passed(percentage, passingScore float64) bool {
	return percentage >= passingScore
}

// ReviewItem is one row of review mode.
type ReviewItem struct {
	Index         int      `json:"index"`
	Question      Question `json:"question"`
	Submitted     Value    `json:"submitted"`
	Correct       Value    `json:"correct"`
	IsCorrect     bool     `json:"isCorrect"`
	PointsAwarded int      `json:"pointsAwarded"`
	Explanation   string   `json:"explanation,omitempty"`
}
