package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"officebot/internal/config"

	redis "github.com/redis/go-redis/v9"
)

// Client wraps go-redis client to centralize configuration.
type Client struct {
	inner *redis.Client
}

var errNotInitialized = errors.New("redis client not initialized")

// NewRedisClient creates the redis client from app config and pings it.
func NewRedisClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	host := cfg.Redis.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Redis.Port
	if port == 0 {
		port = 6379
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{inner: client}, nil
}

// AppendCapped pushes values to the tail of the list at key, keeps only the
// last limit entries and refreshes the key TTL, all in one round trip.
func (c *Client) AppendCapped(ctx context.Context, key string, limit int, ttl time.Duration, values ...string) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	_, err := c.inner.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, args...)
		if limit > 0 {
			pipe.LTrim(ctx, key, int64(-limit), -1)
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

// List returns every element of the list at key, oldest first.
func (c *Client) List(ctx context.Context, key string) ([]string, error) {
	if c == nil || c.inner == nil {
		return nil, errNotInitialized
	}
	return c.inner.LRange(ctx, key, 0, -1).Result()
}

// Del removes provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	if len(keys) == 0 {
		return nil
	}
	return c.inner.Del(ctx, keys...).Err()
}

// Ping reports whether the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	return c.inner.Ping(ctx).Err()
}

// Close closes client.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// Raw exposes underlying go-redis client.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.inner
}
