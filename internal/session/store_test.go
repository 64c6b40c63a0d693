package session

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"officebot/internal/config"
	"officebot/internal/models"
	"officebot/internal/redis"
)

func turn(role models.Role, i int) models.Message {
	return models.Message{Role: role, Content: fmt.Sprintf("%s-%d", role, i)}
}

func TestMemoryStoreCapsHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	for i := 0; i < 8; i++ {
		if err := store.Append(ctx, 1, turn(models.RoleUser, i), turn(models.RoleAssistant, i)); err != nil {
			t.Fatalf("append: %v", err)
		}
		history, _ := store.History(ctx, 1)
		if len(history) > 10 {
			t.Fatalf("history grew to %d", len(history))
		}
	}
	history, _ := store.History(ctx, 1)
	if len(history) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(history))
	}
	if history[0].Content != "user-3" || history[9].Content != "assistant-7" {
		t.Fatalf("oldest entries should be evicted first: %+v", history)
	}
}

func TestMemoryStoreIsolatesChats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	_ = store.Append(ctx, 1, turn(models.RoleUser, 1))
	_ = store.Append(ctx, 2, turn(models.RoleUser, 2))

	if h, _ := store.History(ctx, 1); len(h) != 1 || h[0].Content != "user-1" {
		t.Fatalf("chat 1 history mismatch: %+v", h)
	}
	if err := store.Clear(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if h, _ := store.History(ctx, 1); len(h) != 0 {
		t.Fatalf("chat 1 not cleared: %+v", h)
	}
	if h, _ := store.History(ctx, 2); len(h) != 1 {
		t.Fatalf("chat 2 affected by clear: %+v", h)
	}
}

func TestMemoryStoreHistoryIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(5)
	_ = store.Append(ctx, 1, turn(models.RoleUser, 1))
	h, _ := store.History(ctx, 1)
	h[0].Content = "mutated"
	if again, _ := store.History(ctx, 1); again[0].Content != "user-1" {
		t.Fatalf("store exposed its internal slice")
	}
}

func TestHistoryCipherRoundTrip(t *testing.T) {
	c, err := newHistoryCipher("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	enc, err := c.Encrypt("secret text")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if enc == "secret text" {
		t.Fatalf("ciphertext equals plaintext")
	}
	plain, err := c.Decrypt(enc)
	if err != nil || plain != "secret text" {
		t.Fatalf("decrypt mismatch: %q %v", plain, err)
	}
	if _, err := c.Decrypt(enc[:len(enc)-4] + "AAAA"); err == nil {
		t.Fatalf("tampered ciphertext accepted")
	}
	if _, err := newHistoryCipher("short"); err == nil {
		t.Fatalf("short key accepted")
	}
}

func TestRedisStoreCapsAndClears(t *testing.T) {
	client := newTestRedis(t)
	defer client.Close()

	store, err := NewRedisStore(client, 4, time.Minute, "0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Append(ctx, 7, turn(models.RoleUser, i), turn(models.RoleAssistant, i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	history, err := store.History(ctx, 7)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 || history[0].Content != "user-1" || history[3].Content != "assistant-2" {
		t.Fatalf("unexpected history: %+v", history)
	}
	if err := store.Clear(ctx, 7); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if history, _ := store.History(ctx, 7); len(history) != 0 {
		t.Fatalf("history not cleared: %+v", history)
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed session tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	client, err := redis.NewRedisClient(&config.Config{
		Redis: config.RedisConfig{Host: host, Port: port, DB: db},
	})
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Raw().FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush db: %v", err)
	}
	return client
}
