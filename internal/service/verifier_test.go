package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"microlearn/internal/config"
	"microlearn/internal/llm"
	"microlearn/internal/model"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func testAIConfig() *config.AIConfig {
	return &config.AIConfig{
		Models: config.TaskModels{
			Generation:       "gen-model",
			FactualJudge:     "factual-model",
			EducationalJudge: "edu-model",
			ClarityJudge:     "clarity-model",
		},
		GenerationTimeout: time.Second,
		JudgeTimeout:      time.Second,
		MaxRetries:        2,
		RetryBaseDelay:    time.Millisecond,
		MaxTokens:         500,
		QualityThreshold:  6,
		FactualOverride:   8,
	}
}

func sampleContent() *llm.GeneratedContent {
	return &llm.GeneratedContent{
		Summary:   "Binary search halves the search space on every comparison.",
		KeyPoints: []string{"requires sorted input", "O(log n) comparisons"},
		Quiz: []model.QuizQuestion{{
			Question:      "What does binary search require?",
			Options:       []string{"Sorted input", "A hash table", "Recursion", "Linked lists"},
			CorrectAnswer: 0,
		}},
	}
}

func newTestVerifier(caller llm.Caller) *ContentVerifier {
	return NewContentVerifier(caller, llm.NewParser(testLogger()), testAIConfig(), testLogger())
}

func TestVerifyAggregatesPartialScores(t *testing.T) {
	// Factual 7, educational 8, clarity judge down.
	mock := llm.NewMockCaller(
		llm.MockResponse{Text: `{"score": 7, "feedback": "accurate"}`},
		llm.MockResponse{Text: `{"score": 8, "feedback": "teaches well"}`},
		llm.MockResponse{Err: errors.New("judge down")},
	)
	v := newTestVerifier(mock)

	result := v.Verify(context.Background(), "Binary Search", sampleContent(), nil)

	if result.FactualAccuracy.Score == nil || *result.FactualAccuracy.Score != 7 {
		t.Errorf("factual: got %v, want 7", result.FactualAccuracy.Score)
	}
	if result.Clarity.Score != nil {
		t.Errorf("clarity: got %v, want nil for failed judge", result.Clarity.Score)
	}
	// (7+8)/2 = 7.5 rounds half up to 8.
	if result.OverallQuality == nil || *result.OverallQuality != 8 {
		t.Errorf("overall: got %v, want 8", result.OverallQuality)
	}
	if !result.MeetsQualityStandards {
		t.Error("8 should meet the threshold of 6")
	}
	if mock.CallCount() != 3 {
		t.Errorf("got %d calls, want all 3 judges invoked", mock.CallCount())
	}
}

func TestVerifyAllJudgesFail(t *testing.T) {
	mock := llm.NewMockCaller(llm.MockResponse{Err: errors.New("outage")})
	v := newTestVerifier(mock)

	result := v.Verify(context.Background(), "Binary Search", sampleContent(), nil)

	if result.OverallQuality != nil {
		t.Errorf("overall: got %v, want nil when every judge fails", result.OverallQuality)
	}
	if result.MeetsQualityStandards {
		t.Error("unset overall must not meet quality standards")
	}
	for _, s := range result.JudgeScores() {
		if s.Score != nil {
			t.Errorf("judge %s: got score %d, want nil", s.Model, *s.Score)
		}
	}
}

func TestVerifyFailedJudgeDoesNotStopLaterJudges(t *testing.T) {
	mock := llm.NewMockCaller(
		llm.MockResponse{Err: errors.New("factual judge down")},
		llm.MockResponse{Text: `{"score": 6, "feedback": "ok"}`},
		llm.MockResponse{Text: `{"score": 6, "feedback": "ok"}`},
	)
	v := newTestVerifier(mock)

	result := v.Verify(context.Background(), "Binary Search", sampleContent(), nil)

	if mock.CallCount() != 3 {
		t.Fatalf("got %d calls, want 3", mock.CallCount())
	}
	if result.OverallQuality == nil || *result.OverallQuality != 6 {
		t.Errorf("overall: got %v, want 6", result.OverallQuality)
	}
}

func TestVerifyReportsStages(t *testing.T) {
	mock := llm.NewMockCaller(llm.MockResponse{Text: `{"score": 5, "feedback": "meh"}`})
	v := newTestVerifier(mock)

	var seen []model.Dimension
	v.Verify(context.Background(), "Binary Search", sampleContent(), func(d model.Dimension, _ model.JudgeScore) {
		seen = append(seen, d)
	})

	want := []model.Dimension{model.DimensionFactual, model.DimensionEducational, model.DimensionClarity}
	if len(seen) != len(want) {
		t.Fatalf("got %d stage callbacks, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("stage %d: got %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestAggregateScores(t *testing.T) {
	seven, eight, three := 7, 8, 3

	cases := []struct {
		name   string
		scores []*int
		want   *int
	}{
		{"all present", []*int{&seven, &eight, &three}, intPtr(6)}, // 18/3
		{"one missing", []*int{&seven, &eight, nil}, intPtr(8)},    // 7.5 rounds up
		{"all missing", []*int{nil, nil, nil}, nil},
	}
	for _, tc := range cases {
		got := AggregateScores(tc.scores)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("%s: got %d, want nil", tc.name, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("%s: got %v, want %d", tc.name, got, *tc.want)
		}
	}
}

func intPtr(v int) *int { return &v }
