package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"microlearn/internal/config"
	"microlearn/internal/llm"
	"microlearn/internal/model"
)

// ContentVerifier runs three independent quality judges against generated
// content and aggregates their scores. A judge that fails after retries and
// parse recovery records a null score; verification itself never aborts, so
// partial LLM availability still yields a usable result.
type ContentVerifier struct {
	caller llm.Caller
	parser *llm.Parser
	cfg    *config.AIConfig
	logger *zap.SugaredLogger
}

// NewContentVerifier creates a new content verifier
func NewContentVerifier(caller llm.Caller, parser *llm.Parser, cfg *config.AIConfig, logger *zap.SugaredLogger) *ContentVerifier {
	return &ContentVerifier{
		caller: caller,
		parser: parser,
		cfg:    cfg,
		logger: logger,
	}
}

// StageFunc observes each completed judge stage; nil scores mean the stage
// failed. May be nil.
type StageFunc func(dimension model.Dimension, score model.JudgeScore)

// Verify runs the factual, educational and clarity judges in order and
// aggregates whatever subset succeeded. Any subset of judges succeeding is
// sufficient; when all three fail the overall quality stays unset so a later
// backfill pass can retry.
func (v *ContentVerifier) Verify(ctx context.Context, title string, content *llm.GeneratedContent, onStage StageFunc) *model.VerificationResult {
	body := renderContent(title, content)

	stages := []struct {
		dimension model.Dimension
		model     string
		prompt    string
	}{
		{model.DimensionFactual, v.cfg.Models.FactualJudge, buildFactualPrompt(body)},
		{model.DimensionEducational, v.cfg.Models.EducationalJudge, buildEducationalPrompt(body)},
		{model.DimensionClarity, v.cfg.Models.ClarityJudge, buildClarityPrompt(body)},
	}

	scores := make([]model.JudgeScore, len(stages))
	for i, stage := range stages {
		scores[i] = v.runJudge(ctx, stage.dimension, stage.model, stage.prompt)
		if onStage != nil {
			onStage(stage.dimension, scores[i])
		}
	}

	result := &model.VerificationResult{
		FactualAccuracy:  scores[0],
		EducationalValue: scores[1],
		Clarity:          scores[2],
		CreatedAt:        time.Now(),
	}
	result.OverallQuality = AggregateScores([]*int{
		scores[0].Score, scores[1].Score, scores[2].Score,
	})
	result.MeetsQualityStandards = result.OverallQuality != nil &&
		*result.OverallQuality >= v.cfg.QualityThreshold

	v.logger.Infow("verification aggregated",
		"title", title,
		"factual", scoreValue(scores[0].Score),
		"educational", scoreValue(scores[1].Score),
		"clarity", scoreValue(scores[2].Score),
		"overall", scoreValue(result.OverallQuality),
	)
	return result
}

func (v *ContentVerifier) runJudge(ctx context.Context, dimension model.Dimension, modelName, prompt string) model.JudgeScore {
	raw, err := v.caller.Complete(ctx, "judge_"+string(dimension), llm.Request{
		Model: modelName,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a strict quality judge for educational content. Respond with JSON only."},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens: 300,
		Timeout:   v.cfg.JudgeTimeout,
	})
	if err != nil {
		v.logger.Warnw("judge unavailable", "dimension", dimension, "error", err)
		return model.JudgeScore{Score: nil, Feedback: "judge unavailable", Model: modelName}
	}

	parsed := v.parser.ParseScore(raw)
	return model.JudgeScore{Score: parsed.Score, Feedback: parsed.Feedback, Model: modelName}
}

// AggregateScores returns the arithmetic mean of the non-nil scores, rounded
// half up. Nil scores never contribute; when no score exists the result is
// nil, signalling that verification needs a later backfill.
func AggregateScores(scores []*int) *int {
	sum := 0
	count := 0
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		count++
	}
	if count == 0 {
		return nil
	}
	overall := int(math.Floor(float64(sum)/float64(count) + 0.5))
	return &overall
}

func scoreValue(s *int) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func renderContent(title string, content *llm.GeneratedContent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n\nSummary:\n%s\n", title, content.Summary)
	if len(content.KeyPoints) > 0 {
		sb.WriteString("\nKey points:\n")
		for _, kp := range content.KeyPoints {
			fmt.Fprintf(&sb, "- %s\n", kp)
		}
	}
	for i, q := range content.Quiz {
		fmt.Fprintf(&sb, "\nQuiz question %d: %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			marker := " "
			if j == q.CorrectAnswer {
				marker = "*"
			}
			fmt.Fprintf(&sb, "%s%d. %s\n", marker, j+1, opt)
		}
	}
	return sb.String()
}

func buildFactualPrompt(body string) string {
	return fmt.Sprintf(`Rate the FACTUAL ACCURACY of this educational content on a 1-10 scale.

Bands:
1-2: contains dangerous misinformation or fabricated facts
3-4: multiple factual errors or misleading claims
5-6: mostly accurate with minor errors or oversimplifications
7-8: accurate; quiz answer is correct and defensible
9-10: accurate, precise, and the quiz distractors are clearly wrong

Return ONLY valid JSON: {"score": N, "feedback": "one or two sentences"}

Content to judge:
%s`, body)
}

func buildEducationalPrompt(body string) string {
	return fmt.Sprintf(`Rate the EDUCATIONAL VALUE of this educational content on a 1-10 scale.

Bands:
1-2: teaches nothing or actively confuses the learner
3-4: superficial; a reader learns little beyond the title
5-6: covers the basics but misses important context
7-8: solid coverage; key points reinforce the summary and the quiz tests understanding
9-10: excellent scaffolding from summary through key points to quiz

Return ONLY valid JSON: {"score": N, "feedback": "one or two sentences"}

Content to judge:
%s`, body)
}

func buildClarityPrompt(body string) string {
	return fmt.Sprintf(`Rate the CLARITY AND ENGAGEMENT of this educational content on a 1-10 scale.

Bands:
1-2: unreadable or incoherent
3-4: dense jargon, poor structure, or a confusing quiz question
5-6: understandable but dry or awkwardly worded
7-8: clear, well structured, appropriately paced
9-10: clear, engaging, and memorable phrasing throughout

Return ONLY valid JSON: {"score": N, "feedback": "one or two sentences"}

Content to judge:
%s`, body)
}
