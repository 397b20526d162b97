package model

import "time"

// Dimension identifies one quality-judging axis.
type Dimension string

const (
	DimensionFactual     Dimension = "factual_accuracy"
	DimensionEducational Dimension = "educational_value"
	DimensionClarity     Dimension = "clarity_engagement"
)

// JudgeScore is one judge's verdict. Score is nil when the judge was
// unavailable or its response could not be parsed.
type JudgeScore struct {
	Score    *int   `bson:"score" json:"score"`
	Feedback string `bson:"feedback" json:"feedback"`
	Model    string `bson:"model" json:"model"`
}

// VerificationResult records the three judge scores for a topic plus the
// derived overall quality. Logically keyed 1:1 to a Topic; OverallQuality is
// nil when every judge failed, signalling a later backfill pass.
type VerificationResult struct {
	ID                    int64      `bson:"_id" json:"id"`
	TopicID               int64      `bson:"topicId" json:"topicId"`
	FactualAccuracy       JudgeScore `bson:"factualAccuracy" json:"factualAccuracy"`
	EducationalValue      JudgeScore `bson:"educationalValue" json:"educationalValue"`
	Clarity               JudgeScore `bson:"clarity" json:"clarity"`
	OverallQuality        *int       `bson:"overallQuality" json:"overallQuality"`
	MeetsQualityStandards bool       `bson:"meetsQualityStandards" json:"meetsQualityStandards"`
	CreatedAt             time.Time  `bson:"createdAt" json:"createdAt"`
}

// JudgeScores returns the three scores in fixed dimension order.
func (v *VerificationResult) JudgeScores() []JudgeScore {
	return []JudgeScore{v.FactualAccuracy, v.EducationalValue, v.Clarity}
}
