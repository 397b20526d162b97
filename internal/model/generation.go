package model

// GenerateTopicRequest asks for a topic to be generated (or reused) for the
// authenticated owner.
type GenerateTopicRequest struct {
	Category string `json:"category"`
	Title    string `json:"title"`
}

// StoreTopicRequest stores caller-supplied content, running verification and
// the publication decision but no generation.
type StoreTopicRequest struct {
	Category  string         `json:"category"`
	Title     string         `json:"title"`
	Summary   string         `json:"summary"`
	KeyPoints []string       `json:"keyPoints"`
	Quiz      []QuizQuestion `json:"quiz"`
}

// GenerationResult is returned to the caller after the generate-or-reuse flow.
type GenerationResult struct {
	Topic         *Topic              `json:"topic"`
	VersionNumber int                 `json:"versionNumber"`
	IsNewVersion  bool                `json:"isNewVersion"`
	Reused        bool                `json:"reused"`
	Verification  *VerificationResult `json:"verificationResults,omitempty"`
}
