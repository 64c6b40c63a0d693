package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"officebot/internal/completion"
	"officebot/internal/extract"
	"officebot/internal/storage"
	"officebot/internal/worker"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []string
	requests []tgbotapi.Chattable
	baseURL  string
	resolved []string
}

func (f *fakeTransport) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeTransport) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTransport) GetFileDirectURL(fileID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, fileID)
	return f.baseURL + "/" + fileID, nil
}

func (f *fakeTransport) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeExtractor struct {
	result extract.Result
	kinds  []extract.Kind
	names  []string
	data   [][]byte
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte, fileName, mimeType string) extract.Result {
	f.names = append(f.names, fileName)
	f.data = append(f.data, data)
	return f.result
}

func (f *fakeExtractor) ExtractKind(ctx context.Context, kind extract.Kind, data []byte) extract.Result {
	f.kinds = append(f.kinds, kind)
	f.data = append(f.data, data)
	return f.result
}

type fakeConverser struct {
	mu     sync.Mutex
	answer string
	inputs []completion.Input
	resets int
}

func (f *fakeConverser) Converse(ctx context.Context, chatID int64, in completion.Input) completion.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return completion.Reply{Text: f.answer}
}

func (f *fakeConverser) Reset(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

type testBot struct {
	bot       *Bot
	transport *fakeTransport
	extractor *fakeExtractor
	converser *fakeConverser
	downloads *storage.Downloads
	hits      *int
}

func newTestBot(t *testing.T, opts Options, payload []byte) *testBot {
	t.Helper()
	hits := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	downloads, err := storage.NewDownloads(t.TempDir())
	if err != nil {
		t.Fatalf("new downloads: %v", err)
	}
	transport := &fakeTransport{baseURL: srv.URL}
	extractor := &fakeExtractor{result: extract.Result{Kind: extract.KindPDF, Status: extract.StatusOK, Text: "Сводная таблица"}}
	converser := &fakeConverser{answer: "Ответ модели"}
	return &testBot{
		bot:       New(transport, extractor, converser, downloads, nil, opts),
		transport: transport,
		extractor: extractor,
		converser: converser,
		downloads: downloads,
		hits:      &hits,
	}
}

func chatMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}, Text: text}
}

func command(name string) *tgbotapi.Message {
	msg := chatMessage("/" + name)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name) + 1}}
	return msg
}

func assertDownloadsEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read downloads: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp files to be removed, found %d", len(entries))
	}
}

func TestCommands(t *testing.T) {
	tb := newTestBot(t, Options{}, nil)
	ctx := context.Background()

	tb.bot.HandleUpdate(ctx, tgbotapi.Update{Message: command("start")})
	tb.bot.HandleUpdate(ctx, tgbotapi.Update{Message: command("help")})
	tb.bot.HandleUpdate(ctx, tgbotapi.Update{Message: command("clear")})

	sent := tb.transport.messages()
	if len(sent) != 3 {
		t.Fatalf("expected 3 replies, got %d: %v", len(sent), sent)
	}
	if sent[0] != greetingText || sent[1] != helpText || sent[2] != clearedText {
		t.Fatalf("unexpected command replies: %v", sent)
	}
	if tb.converser.resets != 1 {
		t.Fatalf("expected history reset, got %d", tb.converser.resets)
	}
}

func TestRegisterCommands(t *testing.T) {
	tb := newTestBot(t, Options{}, nil)
	if err := tb.bot.RegisterCommands(); err != nil {
		t.Fatalf("register commands: %v", err)
	}
	if len(tb.transport.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(tb.transport.requests))
	}
	cfg, ok := tb.transport.requests[0].(tgbotapi.SetMyCommandsConfig)
	if !ok {
		t.Fatalf("unexpected request type %T", tb.transport.requests[0])
	}
	if len(cfg.Commands) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cfg.Commands))
	}
}

func TestTextGoesToConverser(t *testing.T) {
	tb := newTestBot(t, Options{}, nil)
	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: chatMessage("Как закрепить строку в Excel?")})

	if len(tb.converser.inputs) != 1 || tb.converser.inputs[0].Text != "Как закрепить строку в Excel?" {
		t.Fatalf("unexpected converse inputs: %+v", tb.converser.inputs)
	}
	if sent := tb.transport.messages(); len(sent) != 1 || sent[0] != "Ответ модели" {
		t.Fatalf("unexpected replies: %v", sent)
	}
}

func TestLongReplyIsSplit(t *testing.T) {
	tb := newTestBot(t, Options{MaxMessageLength: 10}, nil)
	tb.converser.answer = "первая строка\nвторая"
	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: chatMessage("вопрос")})

	sent := tb.transport.messages()
	if len(sent) < 2 {
		t.Fatalf("expected split reply, got %v", sent)
	}
	for _, chunk := range sent {
		if n := len([]rune(chunk)); n > 10 {
			t.Fatalf("chunk %q has %d characters", chunk, n)
		}
	}
}

func TestDocumentFlow(t *testing.T) {
	payload := []byte("%PDF-1.4 fake")
	tb := newTestBot(t, Options{}, payload)
	msg := chatMessage("")
	msg.Caption = "Что это за отчёт?"
	msg.Document = &tgbotapi.Document{FileID: "doc-1", FileName: "report.pdf", MimeType: "application/pdf", FileSize: len(payload)}

	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	if len(tb.extractor.names) != 1 || tb.extractor.names[0] != "report.pdf" {
		t.Fatalf("extractor not called with file name: %v", tb.extractor.names)
	}
	if string(tb.extractor.data[0]) != string(payload) {
		t.Fatalf("extractor got %q", tb.extractor.data[0])
	}
	if len(tb.converser.inputs) != 1 {
		t.Fatalf("expected one converse call, got %d", len(tb.converser.inputs))
	}
	in := tb.converser.inputs[0]
	if in.Text != "Что это за отчёт?" || in.Extracted != "Сводная таблица" || in.Kind != extract.KindPDF {
		t.Fatalf("unexpected converse input: %+v", in)
	}
	sent := tb.transport.messages()
	if len(sent) != 3 {
		t.Fatalf("expected progress, preview and answer, got %v", sent)
	}
	if sent[0] != fileProgress("report.pdf") || !strings.Contains(sent[1], "Распознано:\nСводная таблица") || sent[2] != "Ответ модели" {
		t.Fatalf("unexpected replies: %v", sent)
	}
	assertDownloadsEmpty(t, tb.downloads.Dir())
}

func TestDocumentTooLargeIsRejectedBeforeDownload(t *testing.T) {
	tb := newTestBot(t, Options{MaxFileSize: 1 << 20}, []byte("x"))
	msg := chatMessage("")
	msg.Document = &tgbotapi.Document{FileID: "big", FileName: "big.xlsx", FileSize: 2 << 20}

	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	if len(tb.transport.resolved) != 0 || *tb.hits != 0 {
		t.Fatalf("oversized file must not be downloaded")
	}
	if len(tb.extractor.names) != 0 || len(tb.converser.inputs) != 0 {
		t.Fatalf("oversized file must not be processed")
	}
	if sent := tb.transport.messages(); len(sent) != 1 || sent[0] != tooLargeText(1<<20) {
		t.Fatalf("unexpected replies: %v", sent)
	}
}

func TestDownloadAboveLimitIsRejected(t *testing.T) {
	tb := newTestBot(t, Options{MaxFileSize: 4}, []byte("0123456789"))
	msg := chatMessage("")
	// size not declared by the client
	msg.Document = &tgbotapi.Document{FileID: "liar", FileName: "notes.docx"}

	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	if len(tb.extractor.names) != 0 {
		t.Fatalf("extractor must not run on truncated data")
	}
	sent := tb.transport.messages()
	if sent[len(sent)-1] != tooLargeText(4) {
		t.Fatalf("unexpected replies: %v", sent)
	}
	assertDownloadsEmpty(t, tb.downloads.Dir())
}

func TestUnsupportedDocument(t *testing.T) {
	tb := newTestBot(t, Options{}, nil)
	msg := chatMessage("")
	msg.Document = &tgbotapi.Document{FileID: "zip", FileName: "archive.zip", MimeType: "application/zip"}

	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	if len(tb.transport.resolved) != 0 {
		t.Fatalf("unsupported file must not be downloaded")
	}
	if sent := tb.transport.messages(); len(sent) != 1 || sent[0] != unsupportedText {
		t.Fatalf("unexpected replies: %v", sent)
	}
}

func TestEmptyExtractionSkipsCompletion(t *testing.T) {
	tb := newTestBot(t, Options{}, []byte("img"))
	tb.extractor.result = extract.Result{Kind: extract.KindImage, Status: extract.StatusEmpty}
	msg := chatMessage("")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "small", FileSize: 10}, {FileID: "large", FileSize: 100}}

	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})

	if len(tb.transport.resolved) != 1 || tb.transport.resolved[0] != "large" {
		t.Fatalf("expected the largest photo size, got %v", tb.transport.resolved)
	}
	if len(tb.extractor.kinds) != 1 || tb.extractor.kinds[0] != extract.KindImage {
		t.Fatalf("photo must go straight to OCR: %v", tb.extractor.kinds)
	}
	if len(tb.converser.inputs) != 0 {
		t.Fatalf("empty extraction must not reach the completion client")
	}
	sent := tb.transport.messages()
	if len(sent) != 2 || sent[0] != photoProgress || sent[1] != tb.extractor.result.Message() {
		t.Fatalf("unexpected replies: %v", sent)
	}
	assertDownloadsEmpty(t, tb.downloads.Dir())
}

func TestPreviewIsTrimmed(t *testing.T) {
	text := strings.Repeat("я", previewLength+5)
	got := previewText("a.pdf", text)
	want := "Файл: a.pdf\nРаспознано:\n" + strings.Repeat("я", previewLength) + "..."
	if got != want {
		t.Fatalf("unexpected preview: %q", got)
	}
}

func TestUpdatesRunThroughDispatcher(t *testing.T) {
	tb := newTestBot(t, Options{}, nil)
	d := worker.NewDispatcher(worker.DispatcherConfig{MinWorkers: 1, MaxWorkers: 2, QueueSize: 8})
	tb.bot.jobs = d

	for i := 0; i < 3; i++ {
		tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: i, Message: chatMessage("вопрос")})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("stop dispatcher: %v", err)
	}
	if got := len(tb.transport.messages()); got != 3 {
		t.Fatalf("expected 3 replies, got %d", got)
	}
}
