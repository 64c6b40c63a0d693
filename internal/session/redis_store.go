package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"officebot/internal/models"
	"officebot/internal/redis"
)

const historyKeyPrefix = "officebot:history:"

// RedisStore keeps each chat's history in a capped redis list so several bot
// replicas can share it.
type RedisStore struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
	cipher *historyCipher
}

// NewRedisStore builds a store over client. A non-empty key enables AES-GCM
// encryption of every stored entry; it must be 32 raw bytes or base64 of 32 bytes.
func NewRedisStore(client *redis.Client, limit int, ttl time.Duration, key string) (*RedisStore, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &RedisStore{client: client, limit: limit, ttl: ttl}
	if key != "" {
		c, err := newHistoryCipher(key)
		if err != nil {
			return nil, err
		}
		s.cipher = c
	}
	return s, nil
}

func historyKey(chatID int64) string {
	return fmt.Sprintf("%s%d", historyKeyPrefix, chatID)
}

func (s *RedisStore) History(ctx context.Context, chatID int64) ([]models.Message, error) {
	raw, err := s.client.List(ctx, historyKey(chatID))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]models.Message, 0, len(raw))
	for _, entry := range raw {
		if s.cipher != nil {
			plain, err := s.cipher.Decrypt(entry)
			if err != nil {
				log.Printf("history entry for chat %d dropped: %v", chatID, err)
				continue
			}
			entry = plain
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			log.Printf("history entry for chat %d dropped: %v", chatID, err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisStore) Append(ctx context.Context, chatID int64, msgs ...models.Message) error {
	values := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		entry := string(data)
		if s.cipher != nil {
			if entry, err = s.cipher.Encrypt(entry); err != nil {
				return err
			}
		}
		values = append(values, entry)
	}
	if err := s.client.AppendCapped(ctx, historyKey(chatID), s.limit, s.ttl, values...); err != nil {
		return fmt.Errorf("store history: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, historyKey(chatID)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
