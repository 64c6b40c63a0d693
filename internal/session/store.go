// Package session holds the rolling conversation history of every chat.
package session

import (
	"context"
	"sync"

	"officebot/internal/models"
)

const DefaultLimit = 10

// Store keeps per-chat history. Append must keep at most the configured
// number of most recent messages, evicting the oldest first.
type Store interface {
	History(ctx context.Context, chatID int64) ([]models.Message, error)
	Append(ctx context.Context, chatID int64, msgs ...models.Message) error
	Clear(ctx context.Context, chatID int64) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.RWMutex
	limit     int
	histories map[int64][]models.Message
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{
		limit:     limit,
		histories: make(map[int64][]models.Message),
	}
}

func (s *MemoryStore) History(_ context.Context, chatID int64) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.histories[chatID]
	out := make([]models.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, chatID int64, msgs ...models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.histories[chatID], msgs...)
	if len(history) > s.limit {
		trimmed := make([]models.Message, s.limit)
		copy(trimmed, history[len(history)-s.limit:])
		history = trimmed
	}
	s.histories[chatID] = history
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	delete(s.histories, chatID)
	s.mu.Unlock()
	return nil
}
