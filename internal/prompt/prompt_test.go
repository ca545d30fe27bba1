package prompt

import (
	"errors"
	"strings"
	"testing"
)

func TestNewQuery_RejectsBlank(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := NewQuery(raw)
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("NewQuery(%q): expected ErrEmptyQuery, got %v", raw, err)
		}
	}
}

func TestNewQuery_Trims(t *testing.T) {
	q, err := NewQuery("  space westerns  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text() != "space westerns" {
		t.Errorf("expected trimmed text, got %q", q.Text())
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	q, err := NewQuery("action movies with a strong female lead")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := Build(q)
	for i := 0; i < 5; i++ {
		if got := Build(q); got != first {
			t.Fatalf("call %d: prompt changed between calls:\n%+v\n%+v", i, first, got)
		}
	}
}

func TestBuild_Contents(t *testing.T) {
	q, _ := NewQuery("slow-burn sci-fi")
	spec := Build(q)

	if spec.Version != Version {
		t.Errorf("expected version %s, got %s", Version, spec.Version)
	}
	if spec.MaxMovies != MaxMovies {
		t.Errorf("expected max movies %d, got %d", MaxMovies, spec.MaxMovies)
	}
	if !strings.Contains(spec.UserText, "slow-burn sci-fi") {
		t.Errorf("user text should carry the query, got %q", spec.UserText)
	}
	if strings.Contains(spec.SystemInstructions, "slow-burn sci-fi") {
		t.Error("system instructions must not contain user text")
	}
	if !strings.Contains(spec.SystemInstructions, "Title | Year | Reason") {
		t.Error("system instructions should describe the line format")
	}
}
