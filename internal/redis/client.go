package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client wraps a Redis connection for bot-identity caching and rate limiting.
type Client struct {
	rdb *goredis.Client
}

// NewClient creates a Redis client from a URL and verifies the connection.
func NewClient(redisURL string) (*Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

const (
	botIdentityPrefix = "botid:"
	botIdentityTTL    = 12 * time.Hour
)

// botIdentityKey derives the cache key from the token without storing the
// token itself. A token rotation changes the hash, which is the invalidation.
func botIdentityKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return botIdentityPrefix + hex.EncodeToString(sum[:16])
}

// GetBotIdentity returns the cached bot user id for a token, or "" on a miss.
func (c *Client) GetBotIdentity(ctx context.Context, token string) (string, error) {
	val, err := c.rdb.Get(ctx, botIdentityKey(token)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting bot identity: %w", err)
	}
	return val, nil
}

// SetBotIdentity caches the bot user id resolved for a token.
func (c *Client) SetBotIdentity(ctx context.Context, token, botUserID string) error {
	return c.rdb.Set(ctx, botIdentityKey(token), botUserID, botIdentityTTL).Err()
}

// rateLimitScript atomically increments a counter, sets its TTL on first use,
// and returns both the count and the remaining window.
var rateLimitScript = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// CheckRateLimit returns whether the request is allowed under a fixed-window
// counter, plus the current count and the window's remaining TTL in ms.
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, int64, error) {
	res, err := rateLimitScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("checking rate limit: %w", err)
	}
	if len(res) != 2 {
		return false, 0, 0, fmt.Errorf("checking rate limit: unexpected script result")
	}
	count, ttlMs := res[0], res[1]
	return count <= int64(limit), count, ttlMs, nil
}
