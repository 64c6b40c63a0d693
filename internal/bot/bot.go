// Package bot receives Telegram updates, turns attachments into text and
// answers through the completion client.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"officebot/internal/completion"
	"officebot/internal/extract"
	"officebot/internal/storage"
	"officebot/internal/worker"
)

// Transport is the part of *tgbotapi.BotAPI the bot talks to.
type Transport interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName, mimeType string) extract.Result
	ExtractKind(ctx context.Context, kind extract.Kind, data []byte) extract.Result
}

type Converser interface {
	Converse(ctx context.Context, chatID int64, in completion.Input) completion.Reply
	Reset(ctx context.Context, chatID int64) error
}

// Submitter queues per-chat work; *worker.Dispatcher implements it.
type Submitter interface {
	Submit(job worker.Job) error
}

type Options struct {
	MaxFileSize      int64
	MaxMessageLength int
	// HTTPTimeout bounds each file download.
	HTTPTimeout time.Duration
}

type Bot struct {
	transport Transport
	extractor Extractor
	converser Converser
	downloads *storage.Downloads
	jobs      Submitter
	http      *http.Client
	opts      Options
}

// New wires the bot. jobs may be nil, in which case updates are handled on
// the caller's goroutine.
func New(transport Transport, extractor Extractor, converser Converser, downloads *storage.Downloads, jobs Submitter, opts Options) *Bot {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 20 << 20
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 30 * time.Second
	}
	return &Bot{
		transport: transport,
		extractor: extractor,
		converser: converser,
		downloads: downloads,
		jobs:      jobs,
		http:      &http.Client{Timeout: opts.HTTPTimeout},
		opts:      opts,
	}
}

// RegisterCommands publishes the command list shown by Telegram clients.
func (b *Bot) RegisterCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Приветствие и список возможностей"},
		tgbotapi.BotCommand{Command: "help", Description: "Справка"},
		tgbotapi.BotCommand{Command: "clear", Description: "Очистить историю диалога"},
	)
	if _, err := b.transport.Request(cfg); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

// Run consumes updates until ctx is done or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate queues the update's message on its chat's lane.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if b.jobs == nil {
		b.handleMessage(ctx, msg)
		return
	}
	job := worker.Job{
		ChatID: msg.Chat.ID,
		Name:   fmt.Sprintf("update-%d", update.UpdateID),
		Fn:     func(ctx context.Context) { b.handleMessage(ctx, msg) },
	}
	if err := b.jobs.Submit(job); err != nil {
		log.Printf("[bot] chat %d: submit update %d: %v", msg.Chat.ID, update.UpdateID, err)
		if errors.Is(err, worker.ErrDispatcherBusy) {
			b.reply(msg.Chat.ID, busyText)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		b.handleText(ctx, msg)
	default:
		b.reply(msg.Chat.ID, unknownInput)
	}
}

// reply sends text, split into as many messages as the length limit needs.
func (b *Bot) reply(chatID int64, text string) {
	for _, chunk := range SplitMessage(text, b.opts.MaxMessageLength) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if _, err := b.transport.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			log.Printf("[bot] chat %d: send failed: %v", chatID, err)
			return
		}
	}
}
