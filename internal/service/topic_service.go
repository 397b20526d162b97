package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"microlearn/internal/cache"
	"microlearn/internal/config"
	"microlearn/internal/llm"
	"microlearn/internal/model"
	"microlearn/internal/repository"
)

var (
	ErrTopicNotFound = errors.New("topic not found")
	ErrNotOwner      = errors.New("topic belongs to another user")
	ErrInvalidQuiz   = errors.New("quiz must have non-empty questions with exactly 4 options")
)

// TopicService composes matching, versioning, generation, verification and
// the publication decision into the generate-or-reuse flow.
type TopicService struct {
	topicRepo        repository.TopicRepo
	verificationRepo repository.VerificationRepo
	topicCache       cache.TopicCache
	caller           llm.Caller
	parser           *llm.Parser
	verifier         *ContentVerifier
	decider          *PublicationDecider
	cfg              *config.AIConfig
	broadcaster      Broadcaster
	logger           *zap.SugaredLogger
}

// NewTopicService creates a new topic service
func NewTopicService(
	topicRepo repository.TopicRepo,
	verificationRepo repository.VerificationRepo,
	topicCache cache.TopicCache,
	caller llm.Caller,
	parser *llm.Parser,
	verifier *ContentVerifier,
	decider *PublicationDecider,
	cfg *config.AIConfig,
	logger *zap.SugaredLogger,
) *TopicService {
	return &TopicService{
		topicRepo:        topicRepo,
		verificationRepo: verificationRepo,
		topicCache:       topicCache,
		caller:           caller,
		parser:           parser,
		verifier:         verifier,
		decider:          decider,
		cfg:              cfg,
		logger:           logger,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket progress events
func (s *TopicService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Generate runs the end-to-end generate-or-reuse flow for one request.
// An exact title match short-circuits with the stored topic and zero LLM
// calls; a similar match produces a new version with a derived title.
func (s *TopicService) Generate(ctx context.Context, ownerID string, req *model.GenerateTopicRequest) (*model.GenerationResult, error) {
	requestID := uuid.New().String()[:8]
	logger := s.logger.With("requestId", requestID, "ownerId", ownerID, "title", req.Title)

	existing, err := s.listTopics(ctx, ownerID, req.Category)
	if err != nil {
		return nil, fmt.Errorf("list existing topics: %w", err)
	}

	match := MatchTopics(req.Title, existing)
	if match.Kind == MatchExact {
		logger.Infow("exact duplicate, reusing stored topic", "topicId", match.Exact.ID)
		verification, err := s.verificationRepo.GetByTopicID(ctx, match.Exact.ID)
		if err != nil {
			return nil, fmt.Errorf("load verification: %w", err)
		}
		return &model.GenerationResult{
			Topic:         match.Exact,
			VersionNumber: ExtractVersion(match.Exact.Title),
			IsNewVersion:  false,
			Reused:        true,
			Verification:  verification,
		}, nil
	}

	version := 1
	title := req.Title
	if match.Kind == MatchSimilar {
		version = NextVersion(match.Similar)
		title = VersionedTitle(req.Title, version, match.Similar)
		logger.Infow("similar topics found, versioning", "version", version, "versionedTitle", title)
	}

	s.broadcast(ownerID, "generation_started", map[string]interface{}{
		"requestId": requestID,
		"title":     title,
		"version":   version,
	})

	content, fallback := s.generateContent(ctx, logger, title, req.Category, version, false)
	verification := s.verify(ctx, ownerID, requestID, title, content)

	// One regeneration with a stricter prompt when the first candidate
	// scored below the bar; keep whichever scored higher, ties keep the
	// original. An unset overall defers to backfill instead.
	if verification.OverallQuality != nil && *verification.OverallQuality < s.cfg.QualityThreshold {
		logger.Infow("quality below threshold, regenerating once",
			"overall", *verification.OverallQuality)
		retryContent, retryFallback := s.generateContent(ctx, logger, title, req.Category, version, true)
		retryVerification := s.verify(ctx, ownerID, requestID, title, retryContent)
		if candidateScore(retryVerification) > candidateScore(verification) {
			content, fallback = retryContent, retryFallback
			verification = retryVerification
			logger.Infow("regenerated content kept", "overall", candidateScore(verification))
		}
	}

	s.broadcast(ownerID, "topic_verified", map[string]interface{}{
		"requestId":             requestID,
		"overall":               scoreValue(verification.OverallQuality),
		"meetsQualityStandards": verification.MeetsQualityStandards,
	})

	topic, err := s.persist(ctx, ownerID, req.Category, title, content, verification, fallback)
	if err != nil {
		return nil, err
	}

	s.broadcast(ownerID, "topic_stored", map[string]interface{}{
		"requestId": requestID,
		"topicId":   topic.ID,
		"isPublic":  topic.IsPublic,
	})

	return &model.GenerationResult{
		Topic:         topic,
		VersionNumber: version,
		IsNewVersion:  version > 1,
		Verification:  verification,
	}, nil
}

// StoreTopic verifies and stores caller-supplied content without generation.
func (s *TopicService) StoreTopic(ctx context.Context, ownerID string, req *model.StoreTopicRequest) (*model.GenerationResult, error) {
	if !validQuiz(req.Quiz) {
		return nil, ErrInvalidQuiz
	}

	if dup, err := s.topicRepo.FindByTitle(ctx, ownerID, req.Category, req.Title); err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	} else if dup != nil {
		verification, err := s.verificationRepo.GetByTopicID(ctx, dup.ID)
		if err != nil {
			return nil, fmt.Errorf("load verification: %w", err)
		}
		return &model.GenerationResult{
			Topic:         dup,
			VersionNumber: ExtractVersion(dup.Title),
			Reused:        true,
			Verification:  verification,
		}, nil
	}

	content := &llm.GeneratedContent{
		Summary:   req.Summary,
		KeyPoints: req.KeyPoints,
		Quiz:      req.Quiz,
	}
	verification := s.verify(ctx, ownerID, "", req.Title, content)

	topic, err := s.persist(ctx, ownerID, req.Category, req.Title, content, verification, false)
	if err != nil {
		return nil, err
	}
	return &model.GenerationResult{
		Topic:         topic,
		VersionNumber: ExtractVersion(topic.Title),
		Verification:  verification,
	}, nil
}

// GetTopic returns a topic visible to the requesting user.
func (s *TopicService) GetTopic(ctx context.Context, userID string, id int64) (*model.Topic, error) {
	topic, err := s.topicRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, ErrTopicNotFound
	}
	if topic.OwnerID != userID && !topic.Visible() {
		return nil, ErrTopicNotFound
	}
	return topic, nil
}

// ListTopics returns the user's topics in a category, most recent first.
func (s *TopicService) ListTopics(ctx context.Context, userID, category string) ([]*model.Topic, error) {
	return s.listTopics(ctx, userID, category)
}

// SetVisibility records an explicit privacy override. The override always
// takes precedence over the computed publication decision.
func (s *TopicService) SetVisibility(ctx context.Context, userID string, id int64, visible bool) (*model.Topic, error) {
	topic, err := s.topicRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, ErrTopicNotFound
	}
	if topic.OwnerID != userID {
		return nil, ErrNotOwner
	}

	if err := s.topicRepo.SetPrivacyOverride(ctx, id, visible); err != nil {
		return nil, err
	}
	topic.PrivacyOverride = &visible

	if err := s.topicCache.Invalidate(ctx, userID, topic.Category); err != nil {
		s.logger.Warnw("cache invalidation failed", "error", err)
	}
	return topic, nil
}

// Backfill re-verifies topics whose verification never produced an overall
// score, one at a time with a fixed delay between items to respect upstream
// rate limits. Returns the number of verifications recomputed.
func (s *TopicService) Backfill(ctx context.Context, limit int64, delay time.Duration) (int, error) {
	unscored, err := s.verificationRepo.ListUnscored(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unscored: %w", err)
	}

	processed := 0
	for i, stale := range unscored {
		if i > 0 {
			select {
			case <-ctx.Done():
				return processed, ctx.Err()
			case <-time.After(delay):
			}
		}

		topic, err := s.topicRepo.GetByID(ctx, stale.TopicID)
		if err != nil || topic == nil {
			s.logger.Warnw("backfill: topic missing", "topicId", stale.TopicID, "error", err)
			continue
		}

		quiz, err := topic.Quiz()
		if err != nil {
			s.logger.Warnw("backfill: undecodable quiz", "topicId", topic.ID, "error", err)
			continue
		}
		content := &llm.GeneratedContent{
			Summary:   topic.Summary,
			KeyPoints: topic.KeyPoints,
			Quiz:      quiz,
		}

		fresh := s.verifier.Verify(ctx, topic.Title, content, nil)
		fresh.ID = stale.ID
		fresh.TopicID = stale.TopicID
		if err := s.verificationRepo.Update(ctx, fresh); err != nil {
			s.logger.Warnw("backfill: update failed", "topicId", topic.ID, "error", err)
			continue
		}

		if topic.PrivacyOverride == nil {
			if err := s.topicRepo.SetVisibility(ctx, topic.ID, s.decider.Decide(fresh)); err != nil {
				s.logger.Warnw("backfill: visibility update failed", "topicId", topic.ID, "error", err)
			}
			if err := s.topicCache.Invalidate(ctx, topic.OwnerID, topic.Category); err != nil {
				s.logger.Warnw("backfill: cache invalidation failed", "error", err)
			}
		}

		s.logger.Infow("backfill: verification recomputed",
			"topicId", topic.ID,
			"overall", scoreValue(fresh.OverallQuality),
		)
		processed++
	}
	return processed, nil
}

func (s *TopicService) listTopics(ctx context.Context, ownerID, category string) ([]*model.Topic, error) {
	if topics, err := s.topicCache.GetTopics(ctx, ownerID, category); err != nil {
		s.logger.Warnw("topic cache read failed", "error", err)
	} else if topics != nil {
		return topics, nil
	}

	topics, err := s.topicRepo.ListByOwnerCategory(ctx, ownerID, category)
	if err != nil {
		return nil, err
	}
	if err := s.topicCache.SetTopics(ctx, ownerID, category, topics); err != nil {
		s.logger.Warnw("topic cache write failed", "error", err)
	}
	return topics, nil
}

// generateContent calls the content endpoint and parses the result. It never
// fails: when the endpoint exhausts its retries or nothing parseable comes
// back, a static fallback body is substituted and flagged.
func (s *TopicService) generateContent(ctx context.Context, logger *zap.SugaredLogger, title, category string, version int, accuracyFocused bool) (*llm.GeneratedContent, bool) {
	prompt := buildGenerationPrompt(title, category, version, accuracyFocused)

	raw, err := s.caller.Complete(ctx, "topic_generation", llm.Request{
		Model: s.cfg.Models.Generation,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are an expert educator writing short, accurate micro-lessons. Respond with JSON only."},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens: s.cfg.MaxTokens,
		Timeout:   s.cfg.GenerationTimeout,
	})
	if err != nil {
		logger.Warnw("generation exhausted retries, using fallback content", "error", err)
		return llm.Fallback(title), true
	}

	content, ok := s.parser.ParseContent(raw)
	if !ok {
		logger.Warnw("generation output unparseable, using fallback content")
		return llm.Fallback(title), true
	}
	if !validQuiz(content.Quiz) {
		// Structurally invalid output is never persisted as-is.
		logger.Warnw("generated quiz structurally invalid, using fallback content")
		return llm.Fallback(title), true
	}
	return content, false
}

func (s *TopicService) verify(ctx context.Context, ownerID, requestID, title string, content *llm.GeneratedContent) *model.VerificationResult {
	return s.verifier.Verify(ctx, title, content, func(dimension model.Dimension, score model.JudgeScore) {
		s.broadcast(ownerID, "judge_completed", map[string]interface{}{
			"requestId": requestID,
			"dimension": dimension,
			"score":     scoreValue(score.Score),
		})
	})
}

func (s *TopicService) persist(ctx context.Context, ownerID, category, title string, content *llm.GeneratedContent, verification *model.VerificationResult, fallback bool) (*model.Topic, error) {
	// Opportunistic duplicate check: a concurrent request may have stored
	// the same title since matching ran. No lock; last write wins.
	if dup, err := s.topicRepo.FindByTitle(ctx, ownerID, category, title); err == nil && dup != nil {
		s.logger.Infow("concurrent duplicate detected at insert, reusing", "topicId", dup.ID)
		return dup, nil
	}

	quizData, err := json.Marshal(content.Quiz)
	if err != nil {
		return nil, fmt.Errorf("encode quiz: %w", err)
	}

	topic := &model.Topic{
		OwnerID:            ownerID,
		Category:           category,
		Title:              title,
		Summary:            content.Summary,
		KeyPoints:          content.KeyPoints,
		QuizData:           string(quizData),
		ReadingTimeMinutes: model.EstimateReadingTime(content.Summary),
		QuizCount:          len(content.Quiz),
		IsPublic:           s.decider.Decide(verification),
		FallbackOrigin:     fallback,
		CreatedAt:          time.Now(),
	}

	// Topic and verification are one logical unit persisted as two writes;
	// there is no transaction spanning them.
	if err := s.topicRepo.Create(ctx, topic); err != nil {
		return nil, fmt.Errorf("store topic: %w", err)
	}
	verification.TopicID = topic.ID
	if err := s.verificationRepo.Create(ctx, verification); err != nil {
		return nil, fmt.Errorf("store verification: %w", err)
	}

	if err := s.topicCache.Invalidate(ctx, ownerID, category); err != nil {
		s.logger.Warnw("cache invalidation failed", "error", err)
	}
	return topic, nil
}

func (s *TopicService) broadcast(userID, msgType string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToUser(userID, msgType, payload)
	}
}

// candidateScore orders regeneration candidates; an unset overall ranks
// lowest so it never displaces a scored candidate.
func candidateScore(v *model.VerificationResult) int {
	if v == nil || v.OverallQuality == nil {
		return 0
	}
	return *v.OverallQuality
}

func validQuiz(quiz []model.QuizQuestion) bool {
	if len(quiz) == 0 {
		return false
	}
	for _, q := range quiz {
		if q.Question == "" || len(q.Options) != model.QuizOptionCount {
			return false
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= model.QuizOptionCount {
			return false
		}
	}
	return true
}

func buildGenerationPrompt(title, category string, version int, accuracyFocused bool) string {
	prompt := fmt.Sprintf(`Write a micro-lesson about "%s" in the category "%s".
Return ONLY valid JSON matching this schema:
{
  "summary": "3-5 paragraph summary a motivated beginner can read in a few minutes",
  "key_points": ["4-6 short takeaways"],
  "quiz": [
    {"question": "...", "options": ["A", "B", "C", "D"], "correct_answer": 0}
  ]
}

Requirements:
- exactly 3 quiz questions, each with exactly 4 options
- correct_answer is the 0-based index of the right option
- incorrect options must be plausible but clearly wrong`, title, category)

	if version > 1 {
		prompt += fmt.Sprintf(`
- this is version %d of a topic the user already studied: cover different
  angles, examples and quiz questions than earlier versions would`, version)
	}
	if accuracyFocused {
		prompt += `
- prioritize factual accuracy above all: every claim must be verifiable,
  prefer omitting a detail over guessing, and double-check the quiz answers`
	}
	return prompt
}
