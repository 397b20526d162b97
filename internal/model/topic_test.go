package model

import (
	"strings"
	"testing"
)

func TestQuizRoundTrip(t *testing.T) {
	topic := &Topic{
		QuizData: `[{"question":"q","options":["a","b","c","d"],"correct_answer":2}]`,
	}

	quiz, err := topic.Quiz()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quiz) != 1 || quiz[0].CorrectAnswer != 2 || len(quiz[0].Options) != QuizOptionCount {
		t.Errorf("decoded quiz mismatch: %+v", quiz)
	}
}

func TestVisibleHonorsOverride(t *testing.T) {
	hidden := false
	topic := &Topic{IsPublic: true, PrivacyOverride: &hidden}
	if topic.Visible() {
		t.Error("override false must hide a public topic")
	}

	topic.PrivacyOverride = nil
	if !topic.Visible() {
		t.Error("without an override the computed value applies")
	}
}

func TestEstimateReadingTime(t *testing.T) {
	if got := EstimateReadingTime("a few words"); got != 1 {
		t.Errorf("short text: got %d, want minimum of 1", got)
	}

	long := strings.Repeat("word ", 450)
	if got := EstimateReadingTime(long); got != 2 {
		t.Errorf("450 words: got %d, want 2", got)
	}
}
