package session

import (
	"errors"
	"testing"

	"cemse-quiz/internal/domain"
)

func TestAnswerStoreDefaults(t *testing.T) {
	store := NewAnswerStore(questions())

	if v := store.Get("text"); v.Kind() != domain.KindText || v.Str() != "" {
		t.Fatalf("expected empty text default, got %v (%s)", v, v.Kind())
	}
	if v := store.Get("multi"); v.Kind() != domain.KindSet || len(v.Members()) != 0 {
		t.Fatalf("expected empty set default, got %v (%s)", v, v.Kind())
	}
	if store.Answered("text") {
		t.Fatalf("nothing answered yet")
	}
}

func TestAnswerStoreSetIsolated(t *testing.T) {
	store := NewAnswerStore(questions())
	if err := store.Set("choice", domain.Text("A")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("choice", domain.Text("B")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if store.Get("choice").Str() != "B" {
		t.Fatalf("expected overwrite, got %v", store.Get("choice"))
	}
	if store.Answered("text") || store.Len() != 1 {
		t.Fatalf("other entries must stay untouched")
	}
}

func TestAnswerStoreRejects(t *testing.T) {
	store := NewAnswerStore(questions())
	if err := store.Set("missing", domain.Text("A")); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if err := store.Set("multi", domain.Text("A")); !errors.Is(err, domain.ErrAnswerShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
	if err := store.Set("choice", domain.Set("A")); !errors.Is(err, domain.ErrAnswerShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestAnswerStoreSnapshotIsCopy(t *testing.T) {
	store := NewAnswerStore(questions())
	_ = store.Set("multi", domain.Set("X"))
	snap := store.Snapshot()
	_ = store.Set("multi", domain.Set("X", "Y"))
	if got := snap["multi"].Members(); len(got) != 1 {
		t.Fatalf("snapshot changed after write: %v", got)
	}
}

func TestRenderKinds(t *testing.T) {
	noop := func(domain.Value) error { return nil }
	tests := []struct {
		question domain.Question
		kind     WidgetKind
		options  int
	}{
		{question: questions()[0], kind: WidgetChoice, options: 2},
		{question: questions()[1], kind: WidgetCheckbox, options: 3},
		{question: questions()[2], kind: WidgetText},
		{question: domain.Question{ID: "tf", Type: domain.TrueFalse}, kind: WidgetChoice, options: 2},
		{question: domain.Question{ID: "blank", Type: domain.FillBlank}, kind: WidgetText},
		{question: domain.Question{ID: "odd", Type: "matching"}, kind: WidgetText},
	}
	for _, tc := range tests {
		w := Render(tc.question, tc.question.EmptyValue(), noop)
		if w.Kind != tc.kind || len(w.Options) != tc.options {
			t.Fatalf("%s: expected %s with %d options, got %s with %d", tc.question.ID, tc.kind, tc.options, w.Kind, len(w.Options))
		}
	}
}

func TestWidgetInputShapes(t *testing.T) {
	var got domain.Value
	set := func(v domain.Value) error { got = v; return nil }

	choice := Render(questions()[0], domain.Text(""), set)
	if err := choice.Select("C"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected unknown option, got %v", err)
	}
	if err := choice.Toggle("A"); !errors.Is(err, ErrWidgetKind) {
		t.Fatalf("expected widget kind error, got %v", err)
	}
	if err := choice.Select("B"); err != nil || got.Str() != "B" {
		t.Fatalf("select: %v %v", err, got)
	}

	multi := Render(questions()[1], domain.Set("X", "Y"), set)
	if err := multi.Toggle("X"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if m := got.Members(); len(m) != 1 || m[0] != "Y" {
		t.Fatalf("expected X removed, got %v", m)
	}

	text := Render(questions()[2], domain.Text(""), set)
	if err := text.Input("Paris"); err != nil || got.Str() != "Paris" {
		t.Fatalf("input: %v %v", err, got)
	}
	if err := text.Select("Paris"); !errors.Is(err, ErrWidgetKind) {
		t.Fatalf("expected widget kind error, got %v", err)
	}
}

func questions() []domain.Question {
	return []domain.Question{
		{ID: "choice", Text: "Pick", Type: domain.SingleChoice, Options: []string{"A", "B"}, CorrectAnswer: domain.Text("A"), Points: 1},
		{ID: "multi", Text: "Pick many", Type: domain.MultiSelect, Options: []string{"X", "Y", "Z"}, CorrectAnswer: domain.Set("X", "Y"), Points: 1},
		{ID: "text", Text: "Capital of France", Type: domain.ShortAnswer, CorrectAnswer: domain.Text("Paris"), Points: 1},
	}
}
