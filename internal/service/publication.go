package service

import (
	"microlearn/internal/config"
	"microlearn/internal/model"
)

// PublicationDecider turns a verification result into a visibility decision.
// Pure and idempotent: the same result always yields the same answer. A
// stored privacy override (an explicit user action) is applied elsewhere and
// always wins over this computed value.
type PublicationDecider struct {
	qualityThreshold int
	factualOverride  int
}

// NewPublicationDecider creates a new publication decider
func NewPublicationDecider(cfg *config.AIConfig) *PublicationDecider {
	return &PublicationDecider{
		qualityThreshold: cfg.QualityThreshold,
		factualOverride:  cfg.FactualOverride,
	}
}

// Decide returns true when the topic should be public: the overall quality
// meets the threshold, or the factual-accuracy judge alone scored at or
// above the override bar. When verification produced no score at all the
// decision defaults conservatively to non-public.
func (d *PublicationDecider) Decide(result *model.VerificationResult) bool {
	if result == nil {
		return false
	}
	if result.OverallQuality != nil && *result.OverallQuality >= d.qualityThreshold {
		return true
	}
	return result.FactualAccuracy.Score != nil && *result.FactualAccuracy.Score >= d.factualOverride
}
