// Package completion composes conversation turns and sends them to the chat
// completion API, refreshing the access token once when it is rejected.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"officebot/internal/extract"
	"officebot/internal/models"
	"officebot/internal/session"
)

const (
	// ErrorReply is shown when the completion call fails for a reason the user cannot fix.
	ErrorReply = "🤖 Извините, произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте еще раз."

	DefaultQuestion  = "Прокомментируй это содержимое и подскажи, чем оно может быть полезно."
	TruncationMarker = "\n\n[…текст обрезан…]"

	maxAttempts = 2
)

type Options struct {
	SystemPrompt  string
	Model         string
	Temperature   float32
	MaxTokens     int
	MaxTextLength int
	// Policy is optional; nil forwards every turn.
	Policy *Policy
}

type Client struct {
	tokens  TokenSource
	backend Backend
	store   session.Store
	opts    Options
}

func NewClient(tokens TokenSource, backend Backend, store session.Store, opts Options) *Client {
	if store == nil {
		store = session.NewMemoryStore(session.DefaultLimit)
	}
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = 4000
	}
	return &Client{tokens: tokens, backend: backend, store: store, opts: opts}
}

// Input is one user turn. Extracted is the text recovered from an attachment of Kind.
type Input struct {
	Text      string
	Extracted string
	Kind      extract.Kind
}

// Reply carries either an answer or a failure. Text is always suitable for
// the user; Err is set when Text is a diagnostic rather than an answer.
type Reply struct {
	Text    string
	Err     error
	Refused bool
}

func (r Reply) Failed() bool { return r.Err != nil }

// Converse sends the turn with the system prompt and the chat's history and
// records both sides of the exchange on success.
func (c *Client) Converse(ctx context.Context, chatID int64, in Input) Reply {
	turn := c.composeTurn(in)
	if c.opts.Policy != nil && !c.opts.Policy.Allows(turn) {
		return Reply{Text: RefusalMessage, Refused: true}
	}

	history, err := c.store.History(ctx, chatID)
	if err != nil {
		log.Printf("load history for chat %d failed, continuing without it: %v", chatID, err)
		history = nil
	}
	messages := make([]models.Message, 0, len(history)+2)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: c.opts.SystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: turn})
	req := Request{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			lastErr = fmt.Errorf("acquire token: %w", err)
			break
		}
		answer, err := c.backend.Complete(ctx, token, req)
		if err == nil {
			now := time.Now()
			if err := c.store.Append(ctx, chatID,
				models.Message{Role: models.RoleUser, Content: turn, CreatedAt: now},
				models.Message{Role: models.RoleAssistant, Content: answer, CreatedAt: now},
			); err != nil {
				log.Printf("store history for chat %d failed: %v", chatID, err)
			}
			return Reply{Text: answer}
		}
		lastErr = err
		if !errors.Is(err, ErrUnauthorized) {
			break
		}
		c.tokens.Invalidate()
		if attempt < maxAttempts {
			log.Printf("completion for chat %d: token rejected, refreshing", chatID)
		}
	}
	log.Printf("completion for chat %d failed: %v", chatID, lastErr)
	return Reply{Text: failureText(lastErr), Err: lastErr}
}

// Reset forgets the chat's history.
func (c *Client) Reset(ctx context.Context, chatID int64) error {
	return c.store.Clear(ctx, chatID)
}

func (c *Client) composeTurn(in Input) string {
	question := strings.TrimSpace(in.Text)
	extracted := strings.TrimSpace(in.Extracted)
	if extracted == "" {
		return question
	}
	if question == "" {
		question = DefaultQuestion
	}
	return fmt.Sprintf("%s\n\n%s:\n%s", question, sourceLabel(in.Kind), truncateRunes(extracted, c.opts.MaxTextLength))
}

func sourceLabel(kind extract.Kind) string {
	switch kind {
	case extract.KindImage:
		return "Текст, распознанный на изображении"
	case extract.KindPDF:
		return "Текст из PDF-файла"
	case extract.KindDOCX:
		return "Текст из документа Word"
	case extract.KindXLSX:
		return "Данные из таблицы Excel"
	default:
		return "Содержимое файла"
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + TruncationMarker
}

func failureText(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return fmt.Sprintf("🔑 Не удалось авторизоваться в сервисе ответов (код %d). Проверьте учётные данные бота.", authErr.StatusCode)
	}
	if errors.Is(err, errNoCredentials) {
		return "🔑 Токен доступа к сервису ответов недействителен, а учётные данные для его обновления не заданы."
	}
	return ErrorReply
}
