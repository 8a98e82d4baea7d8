package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps go-redis with nil-reply normalization: a missing key reads
// as an empty string, never as an error.
type Client struct {
	rdb *redis.Client
}

// NewClient connects and pings the server before handing back a client.
func NewClient(addr string, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	client := &Client{rdb: rdb}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// NewClientFromRedis wraps an existing connection (tests use this with
// miniredis).
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Set stores a key without expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

// Get returns the value, or "" when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	result := c.rdb.Get(ctx, key)
	if result.Err() == redis.Nil {
		return "", nil
	}
	return result.Result()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
