package domain

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestValueJSON(t *testing.T) {
	cases := []struct {
		raw  string
		kind ValueKind
		want string
	}{
		{`null`, KindNone, `null`},
		{`"Paris"`, KindText, `"Paris"`},
		{`["a","b"]`, KindSet, `["a","b"]`},
		{`[]`, KindSet, `[]`},
	}
	for _, tc := range cases {
		var v Value
		if err := json.Unmarshal([]byte(tc.raw), &v); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.raw, err)
		}
		if v.Kind() != tc.kind {
			t.Fatalf("%s: expected kind %s, got %s", tc.raw, tc.kind, v.Kind())
		}
		out, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tc.raw, err)
		}
		if string(out) != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.raw, tc.want, out)
		}
	}

	var v Value
	if err := json.Unmarshal([]byte(`{"a":1}`), &v); err == nil {
		t.Fatalf("expected object to be rejected")
	}
	if err := json.Unmarshal([]byte(`[1,2]`), &v); err == nil {
		t.Fatalf("expected numeric set to be rejected")
	}
}

func TestValueYAML(t *testing.T) {
	var doc struct {
		Text Value `yaml:"text"`
		Set  Value `yaml:"set"`
		None Value `yaml:"none"`
	}
	if err := yaml.Unmarshal([]byte("text: Paris\nset: [a, b]\nnone: null\n"), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Text.Str() != "Paris" || doc.Set.Kind() != KindSet || doc.None.Kind() != KindNone {
		t.Fatalf("unexpected decode %+v", doc)
	}

	out, err := yaml.Marshal(map[string]Value{"k": Set("x", "y")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]Value
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if got := back["k"].Members(); len(got) != 2 || got[0] != "x" {
		t.Fatalf("expected set to survive, got %v", got)
	}
}

func TestValueToggleAndEmpty(t *testing.T) {
	var v Value
	if !v.IsEmpty() || !Text("").IsEmpty() || !Set().IsEmpty() {
		t.Fatalf("expected empty values")
	}

	v = v.Toggle("a").Toggle("b")
	if v.Kind() != KindSet || !v.Contains("a") || !v.Contains("b") {
		t.Fatalf("expected {a b}, got %v", v)
	}
	v = v.Toggle("a")
	if v.Contains("a") || len(v.Members()) != 1 {
		t.Fatalf("expected a removed, got %v", v)
	}

	members := v.Members()
	members[0] = "mutated"
	if !v.Contains("b") {
		t.Fatalf("Members must return a copy")
	}
}
