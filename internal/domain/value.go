package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ValueKind tags the shape carried by a Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindText
	KindSet
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSet:
		return "set"
	default:
		return "none"
	}
}

// Value is an answer or answer key: nothing, a single string, or a set of strings.
// The zero Value is KindNone.
type Value struct {
	kind ValueKind
	text string
	set  []string
}

// Text builds a single-string value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Set builds a multi-member value. Members keep insertion order.
func Set(members ...string) Value {
	out := make([]string, len(members))
	copy(out, members)
	return Value{kind: KindSet, set: out}
}

func (v Value) Kind() ValueKind { return v.kind }

// Str returns the text of a KindText value and "" otherwise.
func (v Value) Str() string {
	if v.kind != KindText {
		return ""
	}
	return v.text
}

// Members returns a copy of the set members. A text value yields a one-member slice
// so answer keys written as a plain string still work for set comparisons.
func (v Value) Members() []string {
	switch v.kind {
	case KindSet:
		out := make([]string, len(v.set))
		copy(out, v.set)
		return out
	case KindText:
		return []string{v.text}
	default:
		return nil
	}
}

// Contains reports whether s is a member (or the text) of v.
func (v Value) Contains(s string) bool {
	switch v.kind {
	case KindText:
		return v.text == s
	case KindSet:
		for _, m := range v.set {
			if m == s {
				return true
			}
		}
	}
	return false
}

// IsEmpty is true for none, an empty string, or a set without members.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindText:
		return v.text == ""
	case KindSet:
		return len(v.set) == 0
	default:
		return true
	}
}

// Toggle returns a set value with s added, or removed if already present.
func (v Value) Toggle(s string) Value {
	members := v.Members()
	if v.kind == KindNone {
		members = nil
	}
	for i, m := range members {
		if m == s {
			return Set(append(members[:i], members[i+1:]...)...)
		}
	}
	return Set(append(members, s)...)
}

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindSet:
		return fmt.Sprint(v.set)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindSet:
		if v.set == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.set)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Value{}
		return nil
	case data[0] == '[':
		var members []string
		if err := json.Unmarshal(data, &members); err != nil {
			return fmt.Errorf("decode answer set: %w", err)
		}
		*v = Set(members...)
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode answer text: %w", err)
		}
		*v = Text(s)
		return nil
	}
}

func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case KindText:
		return v.text, nil
	case KindSet:
		return v.Members(), nil
	default:
		return nil, nil
	}
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var members []string
		if err := node.Decode(&members); err != nil {
			return fmt.Errorf("decode answer set: %w", err)
		}
		*v = Set(members...)
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*v = Value{}
			return nil
		}
		*v = Text(node.Value)
	default:
		return fmt.Errorf("answer must be a string or a list of strings (line %d)", node.Line)
	}
	return nil
}
