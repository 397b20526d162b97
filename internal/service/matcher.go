package service

import (
	"sort"
	"strings"

	"microlearn/internal/model"
)

// MatchKind classifies a requested title against an owner's existing topics.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"   // stored topic is returned as-is
	MatchSimilar MatchKind = "similar" // candidate for versioning
	MatchNew     MatchKind = "new"
)

// MatchResult is the outcome of matching a requested title. Similar topics
// are ordered most recently created first for naming-pattern extraction;
// version-number computation considers all of them.
type MatchResult struct {
	Kind    MatchKind
	Exact   *model.Topic
	Similar []*model.Topic
}

// MatchTopics classifies the requested title against existing topics in the
// same owner+category scope. Exact beats similar; a topic is similar when
// either title contains the other (case-insensitive) or the two share a word.
// The heuristic is intentionally approximate — string containment and word
// overlap, no semantic similarity.
func MatchTopics(title string, existing []*model.Topic) MatchResult {
	for _, t := range existing {
		if strings.EqualFold(t.Title, title) {
			return MatchResult{Kind: MatchExact, Exact: t}
		}
	}

	var similar []*model.Topic
	for _, t := range existing {
		if titlesSimilar(title, t.Title) {
			similar = append(similar, t)
		}
	}
	if len(similar) == 0 {
		return MatchResult{Kind: MatchNew}
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].CreatedAt.After(similar[j].CreatedAt)
	})
	return MatchResult{Kind: MatchSimilar, Similar: similar}
}

func titlesSimilar(a, b string) bool {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	return sharesWord(la, lb)
}

func sharesWord(a, b string) bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		words[w] = true
	}
	for _, w := range strings.Fields(b) {
		if words[w] {
			return true
		}
	}
	return false
}
