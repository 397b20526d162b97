package service

import (
	"testing"

	"microlearn/internal/model"
)

func resultWith(overall, factual *int) *model.VerificationResult {
	return &model.VerificationResult{
		OverallQuality:  overall,
		FactualAccuracy: model.JudgeScore{Score: factual},
	}
}

func TestDecidePublishesAtThreshold(t *testing.T) {
	d := NewPublicationDecider(testAIConfig())

	if !d.Decide(resultWith(intPtr(6), intPtr(5))) {
		t.Error("overall 6 should publish at threshold 6")
	}
	if d.Decide(resultWith(intPtr(5), intPtr(5))) {
		t.Error("overall 5 should not publish")
	}
}

func TestDecideFactualOverride(t *testing.T) {
	d := NewPublicationDecider(testAIConfig())

	// Low overall but the factual judge alone clears the override bar.
	if !d.Decide(resultWith(intPtr(5), intPtr(8))) {
		t.Error("factual 8 should publish despite overall 5")
	}
	if d.Decide(resultWith(intPtr(5), intPtr(7))) {
		t.Error("factual 7 is below the override bar")
	}
}

func TestDecideUnscoredDefaultsPrivate(t *testing.T) {
	d := NewPublicationDecider(testAIConfig())

	if d.Decide(resultWith(nil, nil)) {
		t.Error("unscored verification must default to non-public")
	}
	if d.Decide(nil) {
		t.Error("nil verification must default to non-public")
	}
}

func TestDecideIsIdempotent(t *testing.T) {
	d := NewPublicationDecider(testAIConfig())
	result := resultWith(intPtr(7), intPtr(6))

	first := d.Decide(result)
	for i := 0; i < 3; i++ {
		if d.Decide(result) != first {
			t.Fatal("same result must always yield the same decision")
		}
	}
}
