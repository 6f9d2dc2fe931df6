package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "token:"

// RedisTokenCache stores token to user ID mappings in redis with a TTL.
type RedisTokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTokenCache connects to addr and verifies the connection with a PING.
func NewRedisTokenCache(ctx context.Context, addr string, ttl time.Duration) (*RedisTokenCache, error) {
	if addr == "" {
		return nil, errors.New("redis address must not be empty")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisTokenCache{client: client, ttl: ttl}, nil
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Get(ctx, tokenKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt cached user id %q: %w", val, err)
	}
	return userID, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key string, userID int64) error {
	if key == "" {
		return nil
	}
	if err := c.client.Set(ctx, tokenKeyPrefix+key, strconv.FormatInt(userID, 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisTokenCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, tokenKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}
