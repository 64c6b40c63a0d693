package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"officebot/internal/config"
	"officebot/internal/models"
)

// EinoBackend serves the alternative providers through eino chat models.
// API key and model are fixed at construction; Complete ignores the token
// and Request.Model.
type EinoBackend struct {
	provider  string
	chatModel model.BaseChatModel
}

func NewEinoBackend(ctx context.Context, provider string, prov config.ProviderConfig, maxTokens int, timeout time.Duration) (*EinoBackend, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: prov.BaseURL,
			Model:   prov.Model,
			APIKey:  prov.APIKey,
			Timeout: timeout,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  prov.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  prov.Model,
		})
	case "claude":
		var baseURL *string
		if prov.BaseURL != "" {
			baseURL = &prov.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    prov.APIKey,
			Model:     prov.Model,
			BaseURL:   baseURL,
			MaxTokens: maxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return &EinoBackend{provider: provider, chatModel: chatModel}, nil
}

func (b *EinoBackend) Complete(ctx context.Context, _ string, req Request) (string, error) {
	opts := []model.Option{model.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	out, err := b.chatModel.Generate(ctx, toSchemaMessages(req.Messages), opts...)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", b.provider, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", errEmptyAnswer
	}
	return strings.TrimSpace(out.Content), nil
}

func toSchemaMessages(history []models.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{
			Role:    role,
			Content: msg.Content,
		})
	}
	return messages
}
