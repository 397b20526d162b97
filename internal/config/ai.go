package config

import (
	"time"

	"github.com/spf13/viper"
)

// TaskModels defines which chat-completion models to use for different tasks
type TaskModels struct {
	// Generation is for topic content generation (quality matters most)
	Generation string `json:"generation"`

	// FactualJudge scores factual accuracy (strictest judge)
	FactualJudge string `json:"factualJudge"`

	// EducationalJudge scores educational value
	EducationalJudge string `json:"educationalJudge"`

	// ClarityJudge scores clarity and engagement
	ClarityJudge string `json:"clarityJudge"`
}

// AIConfig holds all LLM-related configuration. It is built once at startup
// and passed into each component, so the pipeline stays testable with mocks.
type AIConfig struct {
	APIKey  string     `json:"-"` // Never serialize
	BaseURL string     `json:"baseUrl"`
	Models  TaskModels `json:"models"`

	// GenerationTimeout bounds a single content-generation call.
	GenerationTimeout time.Duration `json:"generationTimeout"`

	// JudgeTimeout bounds a single verification judge call.
	JudgeTimeout time.Duration `json:"judgeTimeout"`

	// MaxRetries is the per-call attempt budget (attempts, not re-attempts).
	MaxRetries int `json:"maxRetries"`

	// RetryBaseDelay is multiplied by the attempt number between attempts.
	RetryBaseDelay time.Duration `json:"retryBaseDelay"`

	// MaxTokens caps completion length for all calls.
	MaxTokens int `json:"maxTokens"`

	// QualityThreshold is the minimum overall score for publication and the
	// bar below which the orchestrator attempts one regeneration.
	QualityThreshold int `json:"qualityThreshold"`

	// FactualOverride publishes a topic regardless of overall score when the
	// factual-accuracy judge scores at or above it.
	FactualOverride int `json:"factualOverride"`
}

func setAIDefaults(v *viper.Viper) {
	v.SetDefault("ai.api.key", "")
	v.SetDefault("ai.base.url", "https://api.openai.com/v1")
	v.SetDefault("ai.model.generation", "gpt-4o")
	v.SetDefault("ai.model.factual", "gpt-4o")
	v.SetDefault("ai.model.educational", "gpt-4o-mini")
	v.SetDefault("ai.model.clarity", "gpt-4o-mini")
	v.SetDefault("ai.timeout.generation", "120s")
	v.SetDefault("ai.timeout.judge", "30s")
	v.SetDefault("ai.max.retries", 2)
	v.SetDefault("ai.retry.base.delay", "1s")
	v.SetDefault("ai.max.tokens", 2000)
	v.SetDefault("ai.quality.threshold", 6)
	v.SetDefault("ai.factual.override", 8)
}

func loadAIConfig(v *viper.Viper) *AIConfig {
	return &AIConfig{
		APIKey:  v.GetString("ai.api.key"),
		BaseURL: v.GetString("ai.base.url"),
		Models: TaskModels{
			Generation:       v.GetString("ai.model.generation"),
			FactualJudge:     v.GetString("ai.model.factual"),
			EducationalJudge: v.GetString("ai.model.educational"),
			ClarityJudge:     v.GetString("ai.model.clarity"),
		},
		GenerationTimeout: v.GetDuration("ai.timeout.generation"),
		JudgeTimeout:      v.GetDuration("ai.timeout.judge"),
		MaxRetries:        v.GetInt("ai.max.retries"),
		RetryBaseDelay:    v.GetDuration("ai.retry.base.delay"),
		MaxTokens:         v.GetInt("ai.max.tokens"),
		QualityThreshold:  v.GetInt("ai.quality.threshold"),
		FactualOverride:   v.GetInt("ai.factual.override"),
	}
}

// IsEnabled returns true if the chat-completion API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}
