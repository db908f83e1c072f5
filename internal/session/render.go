package session

import (
	"errors"
	"fmt"

	"cemse-quiz/internal/domain"
)

// WidgetKind is the input affordance for a question.
type WidgetKind string

const (
	WidgetChoice   WidgetKind = "choice"
	WidgetCheckbox WidgetKind = "checkbox"
	WidgetText     WidgetKind = "text"
)

// ErrWidgetKind is returned when an input method does not fit the widget.
var ErrWidgetKind = errors.New("input not supported by widget")

// OptionView is one selectable option with its current state.
type OptionView struct {
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Widget describes how to present a question and pushes typed answers back.
type Widget struct {
	QuestionID string       `json:"questionId"`
	Prompt     string       `json:"prompt"`
	Kind       WidgetKind   `json:"kind"`
	Options    []OptionView `json:"options,omitempty"`
	Text       string       `json:"text,omitempty"`
	Points     int          `json:"points"`

	current domain.Value
	set     func(domain.Value) error
}

// Render builds the widget for q given its current answer. set receives every update.
func Render(q domain.Question, current domain.Value, set func(domain.Value) error) Widget {
	w := Widget{
		QuestionID: q.ID,
		Prompt:     q.Text,
		Points:     q.Points,
		current:    current,
		set:        set,
	}

	switch q.Type {
	case domain.SingleChoice, domain.TrueFalse:
		w.Kind = WidgetChoice
		w.Options = optionViews(optionsFor(q), current)
	case domain.MultiSelect:
		w.Kind = WidgetCheckbox
		w.Options = optionViews(q.Options, current)
	default:
		// free text for short-answer, fill-blank and anything unrecognised
		w.Kind = WidgetText
		w.Text = current.Str()
	}
	return w
}

// Select picks exactly one option of a choice widget.
func (w Widget) Select(option string) error {
	if w.Kind != WidgetChoice {
		return fmt.Errorf("%w: select on %s", ErrWidgetKind, w.Kind)
	}
	if !w.hasOption(option) {
		return fmt.Errorf("%w: %q", domain.ErrOptionNotFound, option)
	}
	return w.set(domain.Text(option))
}

// Toggle adds or removes an option of a checkbox widget.
func (w Widget) Toggle(option string) error {
	if w.Kind != WidgetCheckbox {
		return fmt.Errorf("%w: toggle on %s", ErrWidgetKind, w.Kind)
	}
	if !w.hasOption(option) {
		return fmt.Errorf("%w: %q", domain.ErrOptionNotFound, option)
	}
	return w.set(w.current.Toggle(option))
}

// Input replaces the text of a text widget.
func (w Widget) Input(text string) error {
	if w.Kind != WidgetText {
		return fmt.Errorf("%w: input on %s", ErrWidgetKind, w.Kind)
	}
	return w.set(domain.Text(text))
}

func (w Widget) hasOption(option string) bool {
	for _, o := range w.Options {
		if o.Label == option {
			return true
		}
	}
	return false
}

func optionsFor(q domain.Question) []string {
	if q.Type == domain.TrueFalse && len(q.Options) == 0 {
		return []string{"true", "false"}
	}
	return q.Options
}

func optionViews(options []string, current domain.Value) []OptionView {
	out := make([]OptionView, 0, len(options))
	for _, o := range options {
		out = append(out, OptionView{Label: o, Selected: current.Contains(o)})
	}
	return out
}
