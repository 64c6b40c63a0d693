package bot

import (
	"strings"
	"testing"
	"unicode/utf16"
	"unicode/utf8"
)

func TestSplitMessageShortText(t *testing.T) {
	chunks := SplitMessage("короткий ответ", 4096)
	if len(chunks) != 1 || chunks[0] != "короткий ответ" {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
	if chunks := SplitMessage("", 10); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %q", chunks)
	}
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	text := "строка один\nстрока два\nстрока три"
	chunks := SplitMessage(text, 12)
	want := []string{"строка один", "строка два", "строка три"}
	if len(chunks) != len(want) {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: got %q want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplitMessageFallsBackToSpaces(t *testing.T) {
	chunks := SplitMessage("alpha beta gamma", 11)
	if len(chunks) != 2 || chunks[0] != "alpha beta" || chunks[1] != "gamma" {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
}

func TestSplitMessageHardCutKeepsRunes(t *testing.T) {
	text := strings.Repeat("ж", 25)
	chunks := SplitMessage(text, 10)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("hard cut lost characters")
	}
	for _, chunk := range chunks {
		if !utf8.ValidString(chunk) || utf8.RuneCountInString(chunk) > 10 {
			t.Fatalf("bad chunk %q", chunk)
		}
	}
}

func TestSplitMessageCountsUTF16Units(t *testing.T) {
	text := strings.Repeat("📊 Лист ", 1000)
	chunks := SplitMessage(text, DefaultMaxMessageLength)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := len(utf16.Encode([]rune(chunk))); n > DefaultMaxMessageLength {
			t.Fatalf("chunk %d is %d UTF-16 units", i, n)
		}
	}
	if strings.TrimSpace(strings.Join(chunks, " ")) != strings.TrimSpace(text) {
		t.Fatalf("split lost text")
	}
}

func TestSplitMessageKeepsSurrogatePairs(t *testing.T) {
	chunks := SplitMessage(strings.Repeat("😀", 5), 4)
	want := []string{"😀😀", "😀😀", "😀"}
	if len(chunks) != len(want) {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: got %q want %q", i, chunks[i], want[i])
		}
	}
	if chunks := SplitMessage("😀", 1); len(chunks) != 1 || chunks[0] != "😀" {
		t.Fatalf("oversized pair must be sent whole, got %q", chunks)
	}
}
