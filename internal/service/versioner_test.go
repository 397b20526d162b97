package service

import (
	"strings"
	"testing"

	"microlearn/internal/model"
)

func TestExtractVersion(t *testing.T) {
	cases := map[string]int{
		"Neural Networks":              1,
		"Neural Networks (v2)":         2,
		"Neural Networks (v12)  ":      12,
		"Neural Networks (v2) Basics":  1, // suffix must be trailing
		"Understanding Pointers (v3)":  3,
	}
	for title, want := range cases {
		if got := ExtractVersion(title); got != want {
			t.Errorf("%q: got %d, want %d", title, got, want)
		}
	}
}

func TestNextVersion(t *testing.T) {
	if got := NextVersion(nil); got != 1 {
		t.Errorf("empty set: got %d, want 1", got)
	}

	similar := []*model.Topic{
		{Title: "Neural Networks"},
		{Title: "Neural Networks (v3)"},
	}
	if got := NextVersion(similar); got != 4 {
		t.Errorf("max version 3: got %d, want 4", got)
	}

	unversioned := []*model.Topic{{Title: "Neural Networks Basics"}}
	if got := NextVersion(unversioned); got != 2 {
		t.Errorf("unversioned similar: got %d, want 2", got)
	}
}

func TestVersionedTitleReusesSuffixPattern(t *testing.T) {
	similar := []*model.Topic{{Title: "Neural Networks Basics"}}

	title := VersionedTitle("Neural Networks", 2, similar)
	if !strings.Contains(title, "Basics") || !strings.HasSuffix(title, "(v2)") {
		t.Errorf("got %q, want suffix-pattern title ending in (v2)", title)
	}
}

func TestVersionedTitleReusesPrefixPattern(t *testing.T) {
	similar := []*model.Topic{{Title: "Understanding Recursion Deeply"}}

	title := VersionedTitle("Recursion", 2, similar)
	if !strings.HasPrefix(title, "Understanding") || !strings.HasSuffix(title, "(v2)") {
		t.Errorf("got %q, want prefix-pattern title", title)
	}
}

func TestVersionedTitleDescriptiveRotation(t *testing.T) {
	similar := []*model.Topic{{Title: "Recursion and stacks"}}

	v2 := VersionedTitle("Recursion", 2, similar)
	v3 := VersionedTitle("Recursion", 3, similar)
	if v2 == v3 {
		t.Errorf("descriptive suffixes should rotate: %q vs %q", v2, v3)
	}
	if !strings.HasSuffix(v2, "(v2)") || !strings.HasSuffix(v3, "(v3)") {
		t.Errorf("version markers missing: %q, %q", v2, v3)
	}
}

func TestVersionedTitleDeterministic(t *testing.T) {
	similar := []*model.Topic{{Title: "Sorting algorithms overview"}}

	a := VersionedTitle("Sorting", 4, similar)
	b := VersionedTitle("Sorting", 4, similar)
	if a != b {
		t.Errorf("same inputs produced %q and %q", a, b)
	}
}
