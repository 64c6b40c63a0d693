package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

//go:embed default_prompt.txt
var defaultPrompt string

// Default returns the built-in Office support system prompt.
func Default() string {
	return strings.TrimSpace(defaultPrompt)
}

// Load reads the system prompt from path. An empty path or a missing file
// yields the built-in prompt; any other read error is returned.
func Load(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Default(), nil
	}
	return text, nil
}
