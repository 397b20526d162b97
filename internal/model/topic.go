package model

import (
	"encoding/json"
	"time"
)

// QuizQuestion is a single multiple-choice question. Every stored question
// has exactly four options; CorrectAnswer is the 0-based option index.
type QuizQuestion struct {
	Question      string   `bson:"question" json:"question"`
	Options       []string `bson:"options" json:"options"`
	CorrectAnswer int      `bson:"correctAnswer" json:"correct_answer"`
}

// QuizOptionCount is the required number of options per question.
const QuizOptionCount = 4

// Topic is a stored unit of generated educational content (summary + quiz)
// scoped to an owner and category. Immutable after verification completes
// except for its visibility.
type Topic struct {
	ID                 int64     `bson:"_id" json:"id"`
	OwnerID            string    `bson:"ownerId" json:"ownerId"`
	Category           string    `bson:"category" json:"category"`
	Title              string    `bson:"title" json:"title"` // may carry a "(vN)" suffix
	Summary            string    `bson:"summary" json:"summary"`
	KeyPoints          []string  `bson:"keyPoints" json:"keyPoints"`
	QuizData           string    `bson:"quizData" json:"quizData"` // JSON-encoded []QuizQuestion
	ReadingTimeMinutes int       `bson:"readingTimeMinutes" json:"readingTimeMinutes"`
	QuizCount          int       `bson:"quizCount" json:"quizCount"`
	IsPublic           bool      `bson:"isPublic" json:"isPublic"`
	FallbackOrigin     bool      `bson:"fallbackOrigin,omitempty" json:"fallbackOrigin,omitempty"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`

	// PrivacyOverride is set by an explicit user action and, when present,
	// takes precedence over the computed IsPublic value.
	PrivacyOverride *bool `bson:"privacyOverride,omitempty" json:"privacyOverride,omitempty"`
}

// Quiz decodes the stored quiz payload.
func (t *Topic) Quiz() ([]QuizQuestion, error) {
	var quiz []QuizQuestion
	if err := json.Unmarshal([]byte(t.QuizData), &quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Visible reports the effective visibility, honoring a privacy override.
func (t *Topic) Visible() bool {
	if t.PrivacyOverride != nil {
		return *t.PrivacyOverride
	}
	return t.IsPublic
}

// EstimateReadingTime returns the reading time in minutes for the given
// summary at ~200 words per minute, never less than one minute.
func EstimateReadingTime(summary string) int {
	words := 0
	inWord := false
	for _, r := range summary {
		switch {
		case r == ' ' || r == '\n' || r == '\t':
			inWord = false
		case !inWord:
			words++
			inWord = true
		}
	}
	minutes := words / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
