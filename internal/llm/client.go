package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"microlearn/internal/config"
)

// Message is a single chat message sent to the completion endpoint.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Request describes one chat-completion call.
type Request struct {
	Model     string
	Messages  []Message
	MaxTokens int

	// Timeout bounds this call only; the retry budget is separate.
	Timeout time.Duration
}

// Caller performs a single chat-completion call and returns the raw response
// text. The operation name is used for logging and error context.
type Caller interface {
	Complete(ctx context.Context, operation string, req Request) (string, error)
}

// OpenAICaller is the production Caller backed by a chat-completion HTTP
// endpoint. The endpoint is treated as a single undifferentiated capability;
// which model serves a call is decided by the request.
type OpenAICaller struct {
	client *openai.Client
	logger *zap.SugaredLogger
}

func NewOpenAICaller(cfg *config.AIConfig, logger *zap.SugaredLogger) *OpenAICaller {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAICaller{
		client: openai.NewClientWithConfig(oc),
		logger: logger,
	}
}

func (c *OpenAICaller) Complete(ctx context.Context, operation string, req Request) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response from model %s", operation, req.Model)
	}

	c.logger.Debugw("chat completion finished",
		"operation", operation,
		"model", req.Model,
		"totalTokens", resp.Usage.TotalTokens,
	)
	return resp.Choices[0].Message.Content, nil
}
