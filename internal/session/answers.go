package session

import (
	"fmt"
	"strings"

	"cemse-quiz/internal/domain"
)

// AnswerStore maps question ids to the current answer of one attempt. It is not
// safe for concurrent use; the Controller serialises access.
type AnswerStore struct {
	questions map[string]domain.Question
	values    map[string]domain.Value
}

func NewAnswerStore(questions []domain.Question) *AnswerStore {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &AnswerStore{
		questions: byID,
		values:    make(map[string]domain.Value),
	}
}

// Set overwrites or inserts the answer for one question.
func (s *AnswerStore) Set(questionID string, v domain.Value) error {
	q, ok := s.questions[questionID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, questionID)
	}
	if v.Kind() != domain.KindNone && v.Kind() != q.EmptyValue().Kind() {
		return fmt.Errorf("%w: %s expects %s, got %s", domain.ErrAnswerShape, questionID, q.EmptyValue().Kind(), v.Kind())
	}
	if v.Kind() == domain.KindNone {
		delete(s.values, questionID)
		return nil
	}
	s.values[questionID] = v
	return nil
}

// Get returns the stored value or the empty default for the question type.
func (s *AnswerStore) Get(questionID string) domain.Value {
	if v, ok := s.values[questionID]; ok {
		return v
	}
	if q, ok := s.questions[questionID]; ok {
		return q.EmptyValue()
	}
	return domain.Value{}
}

// Answered reports whether a non-blank value is stored.
func (s *AnswerStore) Answered(questionID string) bool {
	v, ok := s.values[questionID]
	if !ok || v.IsEmpty() {
		return false
	}
	if v.Kind() == domain.KindText {
		return strings.TrimSpace(v.Str()) != ""
	}
	return true
}

func (s *AnswerStore) Len() int {
	return len(s.values)
}

// Snapshot copies the stored answers so later writes cannot reach a grader.
func (s *AnswerStore) Snapshot() map[string]domain.Value {
	out := make(map[string]domain.Value, len(s.values))
	for id, v := range s.values {
		if v.Kind() == domain.KindSet {
			v = domain.Set(v.Members()...)
		}
		out[id] = v
	}
	return out
}
