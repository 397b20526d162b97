package llm

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"microlearn/internal/model"
)

// GeneratedContent is the structured body extracted from free-form model
// output. Field names follow the JSON the generation prompt asks for.
type GeneratedContent struct {
	Summary   string               `json:"summary"`
	KeyPoints []string             `json:"key_points"`
	Quiz      []model.QuizQuestion `json:"quiz"`
}

// ScoreResult is a judge verdict extracted from model output. Score is nil
// when no usable score could be recovered.
type ScoreResult struct {
	Score    *int   `json:"score"`
	Feedback string `json:"feedback"`
}

// Parser extracts structured values from raw model text. It never returns an
// error past its boundary: each method tries an ordered chain of recovery
// strategies and falls back to an explicit "unavailable" value when all fail.
type Parser struct {
	logger *zap.SugaredLogger

	scoreChain   []scoreStrategy
	contentChain []contentStrategy
}

type scoreStrategy struct {
	name string
	fn   func(string) (*ScoreResult, error)
}

type contentStrategy struct {
	name string
	fn   func(string) (*GeneratedContent, error)
}

func NewParser(logger *zap.SugaredLogger) *Parser {
	p := &Parser{logger: logger}
	p.scoreChain = []scoreStrategy{
		{name: "strict_json", fn: parseScoreStrict},
		{name: "score_regex", fn: parseScoreRegex},
	}
	p.contentChain = []contentStrategy{
		{name: "strict_json", fn: parseContentStrict},
		{name: "field_regex", fn: parseContentFields},
	}
	return p
}

// ParseScore recovers a 1-10 judge score from raw model text.
func (p *Parser) ParseScore(raw string) *ScoreResult {
	cleaned := sanitize(raw)
	for _, s := range p.scoreChain {
		result, err := s.fn(cleaned)
		if err != nil {
			continue
		}
		p.logger.Debugw("score parsed", "strategy", s.name)
		return result
	}
	p.logger.Warnw("score unrecoverable, returning null score", "rawLength", len(raw))
	return &ScoreResult{Score: nil, Feedback: "score unavailable: response could not be parsed"}
}

// ParseContent recovers generated topic content from raw model text. The
// second return value is false when nothing usable could be extracted; the
// caller substitutes Fallback content in that case.
func (p *Parser) ParseContent(raw string) (*GeneratedContent, bool) {
	cleaned := sanitize(raw)
	for _, s := range p.contentChain {
		content, err := s.fn(cleaned)
		if err != nil {
			continue
		}
		p.logger.Debugw("content parsed", "strategy", s.name)
		return content, true
	}
	p.logger.Warnw("content unrecoverable", "rawLength", len(raw))
	return nil, false
}

// Fallback synthesizes a static topic body for when generation irrecoverably
// fails. Callers flag the resulting topic as fallback-origin.
func Fallback(title string) *GeneratedContent {
	return &GeneratedContent{
		Summary: "We could not generate content for \"" + title + "\" right now. " +
			"This placeholder covers the topic at a glance: review the key points " +
			"below and try regenerating later for a full summary.",
		KeyPoints: []string{
			"Content generation is temporarily unavailable",
			"This topic can be regenerated at any time",
			"Stored quizzes remain available offline",
		},
		Quiz: []model.QuizQuestion{
			{
				Question: "What is the best next step when generated content is unavailable?",
				Options: []string{
					"Retry generating the topic later",
					"Delete your account",
					"Disable all quizzes",
					"Nothing can be done",
				},
				CorrectAnswer: 0,
			},
		},
	}
}

// sanitize strips Markdown code fences and newlines so strict parsing gets a
// fair first attempt.
func sanitize(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}

func parseScoreStrict(text string) (*ScoreResult, error) {
	var decoded struct {
		Score    *float64 `json:"score"`
		Feedback string   `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, err
	}
	if decoded.Score == nil {
		return nil, errors.New("no score field")
	}
	score, err := normalizeScore(*decoded.Score)
	if err != nil {
		return nil, err
	}
	return &ScoreResult{Score: &score, Feedback: decoded.Feedback}, nil
}

var scoreRegex = regexp.MustCompile(`"score"\s*:\s*([0-9]+(?:\.[0-9]+)?)`)

func parseScoreRegex(text string) (*ScoreResult, error) {
	m := scoreRegex.FindStringSubmatch(text)
	if m == nil {
		return nil, errors.New("no score pattern")
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, err
	}
	score, err := normalizeScore(value)
	if err != nil {
		return nil, err
	}
	feedback := ""
	if fm := stringFieldRegex("feedback").FindStringSubmatch(text); fm != nil {
		feedback = unescape(fm[1])
	}
	return &ScoreResult{Score: &score, Feedback: feedback}, nil
}

func normalizeScore(value float64) (int, error) {
	score := int(math.Floor(value + 0.5))
	if score < 1 || score > 10 {
		return 0, errors.New("score out of 1-10 range")
	}
	return score, nil
}

func parseContentStrict(text string) (*GeneratedContent, error) {
	var content GeneratedContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, err
	}
	if content.Summary == "" {
		return nil, errors.New("no summary field")
	}
	return &content, nil
}

var (
	optionsRegex   = regexp.MustCompile(`"options"\s*:\s*\[([^\]]*)\]`)
	keyPointsRegex = regexp.MustCompile(`"key_points"\s*:\s*\[([^\]]*)\]`)
	correctRegex   = regexp.MustCompile(`"correct_answer"\s*:\s*([0-9]+)`)
	quotedRegex    = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

func stringFieldRegex(field string) *regexp.Regexp {
	return regexp.MustCompile(`"` + field + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

// parseContentFields recovers named fields from structurally broken JSON.
// A summary is required; a quiz question is attached only when all of its
// parts were found.
func parseContentFields(text string) (*GeneratedContent, error) {
	sm := stringFieldRegex("summary").FindStringSubmatch(text)
	if sm == nil {
		return nil, errors.New("no summary pattern")
	}
	content := &GeneratedContent{Summary: unescape(sm[1])}

	if kp := keyPointsRegex.FindStringSubmatch(text); kp != nil {
		for _, item := range quotedRegex.FindAllStringSubmatch(kp[1], -1) {
			content.KeyPoints = append(content.KeyPoints, unescape(item[1]))
		}
	}

	qm := stringFieldRegex("question").FindStringSubmatch(text)
	om := optionsRegex.FindStringSubmatch(text)
	cm := correctRegex.FindStringSubmatch(text)
	if qm != nil && om != nil && cm != nil {
		var options []string
		for _, item := range quotedRegex.FindAllStringSubmatch(om[1], -1) {
			options = append(options, unescape(item[1]))
		}
		correct, err := strconv.Atoi(cm[1])
		if err == nil && len(options) > 0 {
			content.Quiz = []model.QuizQuestion{{
				Question:      unescape(qm[1]),
				Options:       options,
				CorrectAnswer: correct,
			}}
		}
	}

	return content, nil
}

func unescape(s string) string {
	unquoted, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return s
	}
	return unquoted
}
