package bot

import (
	"context"
	"errors"
	"log"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"officebot/internal/completion"
	"officebot/internal/extract"
	"officebot/internal/models"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.reply(chatID, greetingText)
	case "clear":
		if err := b.converser.Reset(ctx, chatID); err != nil {
			log.Printf("[bot] chat %d: clear history: %v", chatID, err)
			b.reply(chatID, clearFailedText)
			return
		}
		b.reply(chatID, clearedText)
	default:
		b.reply(chatID, helpText)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	reply := b.converser.Converse(ctx, msg.Chat.ID, completion.Input{Text: msg.Text})
	b.reply(msg.Chat.ID, reply.Text)
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	// sizes are ordered from smallest to largest
	photo := msg.Photo[len(msg.Photo)-1]
	b.handleAttachment(ctx, msg, models.Attachment{
		FileID:   photo.FileID,
		FileName: "photo.jpg",
		MimeType: "image/jpeg",
		Size:     int64(photo.FileSize),
	}, true)
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	att := models.Attachment{
		FileID:   doc.FileID,
		FileName: doc.FileName,
		MimeType: doc.MimeType,
		Size:     int64(doc.FileSize),
	}
	if att.FileName == "" {
		att.FileName = "unknown"
	}
	if extract.Classify(att.FileName, att.MimeType) == extract.KindUnknown {
		b.reply(msg.Chat.ID, unsupportedText)
		return
	}
	b.handleAttachment(ctx, msg, att, false)
}

// handleAttachment checks the declared size, downloads the file and runs it
// through OCR (photos) or the full extractor (documents).
func (b *Bot) handleAttachment(ctx context.Context, msg *tgbotapi.Message, att models.Attachment, photo bool) {
	chatID := msg.Chat.ID
	if att.Size > b.opts.MaxFileSize {
		b.reply(chatID, tooLargeText(b.opts.MaxFileSize))
		return
	}
	if photo {
		b.reply(chatID, photoProgress)
	} else {
		b.reply(chatID, fileProgress(att.FileName))
	}

	data, ok := b.fetch(ctx, chatID, att)
	if !ok {
		return
	}
	if photo {
		b.answer(ctx, msg, "", b.extractor.ExtractKind(ctx, extract.KindImage, data))
		return
	}
	b.answer(ctx, msg, att.FileName, b.extractor.Extract(ctx, data, att.FileName, att.MimeType))
}

// fetch downloads an attachment into a temp file that is removed before
// returning, and reports the outcome to the user when it fails.
func (b *Bot) fetch(ctx context.Context, chatID int64, att models.Attachment) ([]byte, bool) {
	tmp, err := b.download(ctx, att.FileID, att.FileName)
	if err != nil {
		log.Printf("[bot] chat %d: download %s: %v", chatID, att.FileName, err)
		if errors.Is(err, ErrTooLarge) {
			b.reply(chatID, tooLargeText(b.opts.MaxFileSize))
		} else {
			b.reply(chatID, downloadFailed)
		}
		return nil, false
	}
	defer tmp.Release()

	data, err := os.ReadFile(tmp.Path())
	if err != nil {
		log.Printf("[bot] chat %d: read %s: %v", chatID, tmp.Path(), err)
		b.reply(chatID, downloadFailed)
		return nil, false
	}
	return data, true
}

// answer reports an unusable extraction as is, otherwise previews the text
// and asks the completion client about it. The caption is the question.
func (b *Bot) answer(ctx context.Context, msg *tgbotapi.Message, fileName string, res extract.Result) {
	chatID := msg.Chat.ID
	if !res.OK() {
		b.reply(chatID, res.Message())
		return
	}
	b.reply(chatID, previewText(fileName, res.Text))
	reply := b.converser.Converse(ctx, chatID, completion.Input{
		Text:      msg.Caption,
		Extracted: res.Text,
		Kind:      res.Kind,
	})
	b.reply(chatID, reply.Text)
}
