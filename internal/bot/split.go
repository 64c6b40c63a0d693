package bot

import (
	"strings"
	"unicode/utf16"
)

// DefaultMaxMessageLength is Telegram's limit for one text message, counted
// in UTF-16 code units.
const DefaultMaxMessageLength = 4096

// SplitMessage cuts text into chunks of at most limit UTF-16 code units, the
// unit Telegram measures messages in. A chunk ends at the last newline that
// fits, else at the last space, else exactly at the limit. The separator a
// chunk ends on is dropped.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxMessageLength
	}
	runes := []rune(text)
	var chunks []string
	for {
		end := fitUTF16(runes, limit)
		if end == 0 && len(runes) > 0 {
			// a surrogate pair is never split
			end = 1
		}
		if end == len(runes) {
			break
		}
		cut := lastIndex(runes[:end+1], '\n')
		if cut <= 0 {
			cut = lastIndex(runes[:end+1], ' ')
		}
		if cut <= 0 {
			chunks = append(chunks, string(runes[:end]))
			runes = runes[end:]
			continue
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut+1:]
	}
	if strings.TrimSpace(string(runes)) != "" {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// fitUTF16 returns how many leading runes fit into limit UTF-16 code units.
func fitUTF16(runes []rune, limit int) int {
	units := 0
	for i, r := range runes {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > limit {
			return i
		}
		units += n
	}
	return len(runes)
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
