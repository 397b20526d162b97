package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"microlearn/internal/model"
)

var versionSuffixRegex = regexp.MustCompile(`\(v(\d+)\)\s*$`)

// suffixVocabulary are topic-title suffix words recognized as a naming
// pattern when scanning similar titles.
var suffixVocabulary = []string{
	"Basics",
	"Advanced",
	"Essentials",
	"Fundamentals",
	"Deep Dive",
	"Mastery",
}

// prefixVocabulary are recognized title prefix phrases.
var prefixVocabulary = []string{
	"Introduction to",
	"Understanding",
	"Mastering",
	"Exploring",
}

// descriptiveSuffixes rotate when no naming pattern is found among similar
// titles, indexed by (version - 2) mod len.
var descriptiveSuffixes = []string{
	"A Fresh Take",
	"Key Concepts Revisited",
	"Beyond the Basics",
	"Another Perspective",
	"Continued",
}

// ExtractVersion reads a trailing "(vN)" token from a title, defaulting to 1.
func ExtractVersion(title string) int {
	m := versionSuffixRegex.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// NextVersion computes the next version number across all similar topics:
// max recovered version + 1, which is 2 when similar topics exist but none
// carries a numeric version, and 1 when the set is empty.
func NextVersion(similar []*model.Topic) int {
	if len(similar) == 0 {
		return 1
	}
	max := 1
	for _, t := range similar {
		if v := ExtractVersion(t.Title); v > max {
			max = v
		}
	}
	return max + 1
}

// VersionedTitle derives a human-readable versioned title from the naming
// patterns observed in similar topics. Deterministic and pure: the same
// inputs always produce the same title.
func VersionedTitle(base string, version int, similar []*model.Topic) string {
	for _, t := range similar {
		lower := strings.ToLower(t.Title)
		for _, suffix := range suffixVocabulary {
			if strings.Contains(lower, strings.ToLower(suffix)) {
				return fmt.Sprintf("%s %s (v%d)", base, suffix, version)
			}
		}
	}

	for _, t := range similar {
		lower := strings.ToLower(t.Title)
		for _, prefix := range prefixVocabulary {
			if strings.Contains(lower, strings.ToLower(prefix)) {
				return fmt.Sprintf("%s %s (v%d)", prefix, base, version)
			}
		}
	}

	idx := (version - 2) % len(descriptiveSuffixes)
	if idx < 0 {
		idx = 0
	}
	return fmt.Sprintf("%s - %s (v%d)", base, descriptiveSuffixes[idx], version)
}
