package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"microlearn/internal/llm"
	"microlearn/internal/model"
)

type fakeTopicRepo struct {
	mu     sync.Mutex
	topics map[int64]*model.Topic
	nextID int64
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{topics: make(map[int64]*model.Topic)}
}

func (r *fakeTopicRepo) Create(_ context.Context, topic *model.Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	topic.ID = r.nextID
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}
	r.topics[topic.ID] = topic
	return nil
}

func (r *fakeTopicRepo) GetByID(_ context.Context, id int64) (*model.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.topics[id], nil
}

func (r *fakeTopicRepo) ListByOwnerCategory(_ context.Context, ownerID, category string) ([]*model.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Topic
	for _, t := range r.topics {
		if t.OwnerID == ownerID && t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTopicRepo) FindByTitle(_ context.Context, ownerID, category, title string) (*model.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.topics {
		if t.OwnerID == ownerID && t.Category == category && strings.EqualFold(t.Title, title) {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTopicRepo) SetVisibility(_ context.Context, id int64, isPublic bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.topics[id]; ok {
		t.IsPublic = isPublic
	}
	return nil
}

func (r *fakeTopicRepo) SetPrivacyOverride(_ context.Context, id int64, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.topics[id]; ok {
		t.PrivacyOverride = &visible
	}
	return nil
}

type fakeVerificationRepo struct {
	mu      sync.Mutex
	results map[int64]*model.VerificationResult
	nextID  int64
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{results: make(map[int64]*model.VerificationResult)}
}

func (r *fakeVerificationRepo) Create(_ context.Context, result *model.VerificationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	result.ID = r.nextID
	r.results[result.ID] = result
	return nil
}

func (r *fakeVerificationRepo) GetByTopicID(_ context.Context, topicID int64) (*model.VerificationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.results {
		if v.TopicID == topicID {
			return v, nil
		}
	}
	return nil, nil
}

func (r *fakeVerificationRepo) Update(_ context.Context, result *model.VerificationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.ID] = result
	return nil
}

func (r *fakeVerificationRepo) ListUnscored(_ context.Context, limit int64) ([]*model.VerificationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.VerificationResult
	for _, v := range r.results {
		if v.OverallQuality == nil && int64(len(out)) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

// fakeTopicCache always misses so tests exercise the repository path.
type fakeTopicCache struct {
	mu            sync.Mutex
	invalidations int
}

func (c *fakeTopicCache) SetTopics(context.Context, string, string, []*model.Topic) error {
	return nil
}

func (c *fakeTopicCache) GetTopics(context.Context, string, string) ([]*model.Topic, error) {
	return nil, nil
}

func (c *fakeTopicCache) Invalidate(context.Context, string, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	return nil
}

const goodContentJSON = `{
	"summary": "Binary search repeatedly halves a sorted range until the target is found.",
	"key_points": ["requires sorted input", "logarithmic comparisons"],
	"quiz": [{
		"question": "What input does binary search require?",
		"options": ["Sorted", "Reversed", "Hashed", "Random"],
		"correct_answer": 0
	}]
}`

func judgeJSON(score int) string {
	return fmt.Sprintf(`{"score": %d, "feedback": "test"}`, score)
}

func scored(score int) llm.MockResponse {
	return llm.MockResponse{Text: judgeJSON(score)}
}

func newTestTopicService(mock *llm.MockCaller) (*TopicService, *fakeTopicRepo, *fakeVerificationRepo) {
	cfg := testAIConfig()
	parser := llm.NewParser(testLogger())
	verifier := NewContentVerifier(mock, parser, cfg, testLogger())
	decider := NewPublicationDecider(cfg)
	topicRepo := newFakeTopicRepo()
	verificationRepo := newFakeVerificationRepo()

	svc := NewTopicService(
		topicRepo, verificationRepo, &fakeTopicCache{},
		mock, parser, verifier, decider, cfg, testLogger(),
	)
	return svc, topicRepo, verificationRepo
}

func TestGenerateNewTopic(t *testing.T) {
	mock := llm.NewMockCaller(
		llm.MockResponse{Text: goodContentJSON},
		scored(7), scored(7), scored(7),
	)
	svc, _, verificationRepo := newTestTopicService(mock)

	result, err := svc.Generate(context.Background(), "user_1",
		&model.GenerateTopicRequest{Category: "cs", Title: "Binary Search"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Reused || result.IsNewVersion {
		t.Error("fresh title must be neither reused nor a new version")
	}
	if result.VersionNumber != 1 {
		t.Errorf("got version %d, want 1", result.VersionNumber)
	}
	if result.Topic.ID == 0 {
		t.Error("topic should be persisted with an id")
	}
	if !result.Topic.IsPublic {
		t.Error("overall 7 should publish")
	}
	if result.Topic.QuizCount != 1 || result.Topic.ReadingTimeMinutes < 1 {
		t.Errorf("derived fields not set: %+v", result.Topic)
	}
	if mock.CallCount() != 4 {
		t.Errorf("got %d LLM calls, want 1 generation + 3 judges", mock.CallCount())
	}

	stored, _ := verificationRepo.GetByTopicID(context.Background(), result.Topic.ID)
	if stored == nil {
		t.Fatal("verification not persisted")
	}
	if stored.OverallQuality == nil || *stored.OverallQuality != 7 {
		t.Errorf("stored overall: got %v, want 7", stored.OverallQuality)
	}
}

func TestGenerateExactDuplicateShortCircuits(t *testing.T) {
	mock := llm.NewMockCaller(
		llm.MockResponse{Text: goodContentJSON},
		scored(7), scored(7), scored(7),
	)
	svc, topicRepo, verificationRepo := newTestTopicService(mock)

	ctx := context.Background()
	existing := &model.Topic{OwnerID: "user_1", Category: "cs", Title: "Binary Search"}
	topicRepo.Create(ctx, existing)
	verificationRepo.Create(ctx, &model.VerificationResult{TopicID: existing.ID, OverallQuality: intPtr(7)})

	result, err := svc.Generate(ctx, "user_1",
		&model.GenerateTopicRequest{Category: "cs", Title: "binary search"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Reused {
		t.Error("exact duplicate must be flagged reused")
	}
	if result.Topic.ID != existing.ID {
		t.Errorf("got topic %d, want stored %d", result.Topic.ID, existing.ID)
	}
	if result.Verification == nil || *result.Verification.OverallQuality != 7 {
		t.Error("stored verification must be returned alongside the topic")
	}
	if mock.CallCount() != 0 {
		t.Errorf("got %d LLM calls, want 0 for exact duplicate", mock.CallCount())
	}
}

func TestGenerateSimilarTitleCreatesVersion(t *testing.T) {
	mock := llm.NewMockCaller(
		llm.MockResponse{Text: goodContentJSON},
		scored(7), scored(7), scored(7),
	)
	svc, topicRepo, _ := newTestTopicService(mock)

	ctx := context.Background()
	topicRepo.Create(ctx, &model.Topic{OwnerID: "user_1", Category: "cs", Title: "Binary Search Basics"})

	result, err := svc.Generate(ctx, "user_1",
		&model.GenerateTopicRequest{Category: "cs", Title: "Binary Search"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.IsNewVersion || result.VersionNumber != 2 {
		t.Errorf("got version %d (new=%v), want version 2", result.VersionNumber, result.IsNewVersion)
	}
	if !strings.HasSuffix(result.Topic.Title, "(v2)") {
		t.Errorf("got title %q, want trailing (v2)", result.Topic.Title)
	}
}

func TestGenerateRegeneratesBelowThresholdAndKeepsHigher(t *testing.T) {
	mock := llm.NewMockCaller(
		llm.MockResponse{Text: goodContentJSON},
		scored(4), scored(4), scored(4),
		llm.MockResponse{Text: goodContentJSON},
		scored(8), scored(8), scored(8),
	)
	svc, _, _ := newTestTopicService(mock)

	result, err := svc.Generate(context.Background(), "user_1",
		&model.GenerateTopicRequest{Category: "cs", Title: "Binary Search"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.CallCount() != 8 {
		t.Errorf("got %d LLM calls, want 8 (two generations, six judges)", mock.CallCount())
	}
	if result.Verification.OverallQuality == nil || *result.Verification.OverallQuality != 8 {
		t.Errorf("got overall %v, want the regenerated 8", result.Verification.OverallQuality)
	}
	if !result.Topic.IsPublic {
		t.Error("kept candidate at 8 should publish")
	}
}

func TestGenerateRegenerationTieKeepsOriginal(t *testing.T) {
	mock := llm.NewMockCaller(
		llm.MockResponse{Text: goodContentJSON},
		scored(4), scored(4), scored(4),
		llm.MockResponse{Text: goodContentJSON},
		scored(4), scored(4), scored(4),
	)
	svc, _, _ := newTestTopicService(mock)

	result, err := svc.Generate(context.Background(), "user_1",
		&model.GenerateTopicRequest{Category: "cs", Title: "Binary Search"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *result.Verification.OverallQuality != 4 {
		t.Errorf("got overall %v, want 4", result.Verification.OverallQuality)
	}
	if result.Topic.IsPublic {
		t.Error("overall 4 must stay private")
	}
}

func TestGenerateFallsBackWhenLLMDown(t *testing.T) {
	mock := llm.NewMockCaller(llm.MockResponse{Err: errors.New("outage")})
	svc, _, verificationRepo := newTestTopicService(mock)

	result, err := svc.Generate(context.Background(), "user_1",
		&model.GenerateTopicRequest{Category: "cs", Title: "Binary Search"})
	if err != nil {
		t.Fatalf("fallback path must not error: %v", err)
	}

	if !result.Topic.FallbackOrigin {
		t.Error("topic must be flagged fallback-origin")
	}
	if result.Topic.IsPublic {
		t.Error("unscored fallback topic must stay private")
	}
	if result.Verification.OverallQuality != nil {
		t.Errorf("got overall %v, want nil", result.Verification.OverallQuality)
	}

	// The unscored verification is visible to the backfill pass.
	unscored, _ := verificationRepo.ListUnscored(context.Background(), 10)
	if len(unscored) != 1 {
		t.Errorf("got %d unscored verifications, want 1", len(unscored))
	}
}

func TestStoreTopicRejectsInvalidQuiz(t *testing.T) {
	mock := llm.NewMockCaller(scored(7))
	svc, _, _ := newTestTopicService(mock)

	_, err := svc.StoreTopic(context.Background(), "user_1", &model.StoreTopicRequest{
		Category: "cs",
		Title:    "Binary Search",
		Summary:  "halving",
		Quiz: []model.QuizQuestion{{
			Question:      "Too few options?",
			Options:       []string{"yes", "no"},
			CorrectAnswer: 0,
		}},
	})
	if !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("got %v, want ErrInvalidQuiz", err)
	}
	if mock.CallCount() != 0 {
		t.Error("invalid input must be rejected before any LLM call")
	}
}

func TestStoreTopicVerifiesAndPersists(t *testing.T) {
	mock := llm.NewMockCaller(scored(8), scored(8), scored(8))
	svc, _, _ := newTestTopicService(mock)

	result, err := svc.StoreTopic(context.Background(), "user_1", &model.StoreTopicRequest{
		Category:  "cs",
		Title:     "Binary Search",
		Summary:   "Halving a sorted range until the target is found.",
		KeyPoints: []string{"sorted input"},
		Quiz: []model.QuizQuestion{{
			Question:      "What input does binary search require?",
			Options:       []string{"Sorted", "Reversed", "Hashed", "Random"},
			CorrectAnswer: 0,
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 3 {
		t.Errorf("got %d LLM calls, want 3 judges and no generation", mock.CallCount())
	}
	if !result.Topic.IsPublic {
		t.Error("overall 8 should publish")
	}
}

func TestSetVisibilityRequiresOwnership(t *testing.T) {
	mock := llm.NewMockCaller()
	svc, topicRepo, _ := newTestTopicService(mock)

	ctx := context.Background()
	topic := &model.Topic{OwnerID: "user_1", Category: "cs", Title: "Binary Search"}
	topicRepo.Create(ctx, topic)

	if _, err := svc.SetVisibility(ctx, "user_2", topic.ID, true); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}

	updated, err := svc.SetVisibility(ctx, "user_1", topic.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.PrivacyOverride == nil || !*updated.PrivacyOverride {
		t.Error("privacy override not recorded")
	}
	if !updated.Visible() {
		t.Error("override must win over the computed decision")
	}
}

func TestBackfillRescoresUnscoredVerifications(t *testing.T) {
	mock := llm.NewMockCaller(scored(7))
	svc, topicRepo, verificationRepo := newTestTopicService(mock)

	ctx := context.Background()
	topic := &model.Topic{
		OwnerID:  "user_1",
		Category: "cs",
		Title:    "Binary Search",
		Summary:  "Halving a sorted range.",
		QuizData: `[{"question":"q","options":["a","b","c","d"],"correct_answer":0}]`,
	}
	topicRepo.Create(ctx, topic)
	verificationRepo.Create(ctx, &model.VerificationResult{TopicID: topic.ID})

	processed, err := svc.Backfill(ctx, 10, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 1 {
		t.Fatalf("got %d processed, want 1", processed)
	}

	fresh, _ := verificationRepo.GetByTopicID(ctx, topic.ID)
	if fresh.OverallQuality == nil || *fresh.OverallQuality != 7 {
		t.Errorf("got overall %v, want 7", fresh.OverallQuality)
	}

	updated, _ := topicRepo.GetByID(ctx, topic.ID)
	if !updated.IsPublic {
		t.Error("backfilled score of 7 should flip visibility to public")
	}
}
