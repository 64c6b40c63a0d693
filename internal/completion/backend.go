package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"officebot/internal/models"
)

// Request is one chat-completion call. Messages already start with the system prompt.
type Request struct {
	Model       string
	Messages    []models.Message
	Temperature float32
	MaxTokens   int
}

// Backend performs a single completion call. A rejected token must be
// reported as ErrUnauthorized so the caller can refresh it.
type Backend interface {
	Complete(ctx context.Context, token string, req Request) (string, error)
}

// OpenAIBackend talks to any endpoint speaking the OpenAI chat-completions
// wire format, GigaChat included.
type OpenAIBackend struct {
	baseURL string
	client  *http.Client
}

func NewOpenAIBackend(baseURL string, client *http.Client) *OpenAIBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIBackend{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (b *OpenAIBackend) Complete(ctx context.Context, token string, req Request) (string, error) {
	cfg := openai.DefaultConfig(token)
	if b.baseURL != "" {
		cfg.BaseURL = b.baseURL
	}
	cfg.HTTPClient = b.client
	client := openai.NewClientWithConfig(cfg)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyAnswer
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errEmptyAnswer
	}
	return answer, nil
}

func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case status != 0:
		return &StatusError{StatusCode: status, Message: err.Error()}
	default:
		return fmt.Errorf("completion request: %w", err)
	}
}
