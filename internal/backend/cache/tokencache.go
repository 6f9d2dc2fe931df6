// Package cache holds the auth token lookup cache used in front of the database.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// TokenCache maps token keys to user IDs.
type TokenCache interface {
	Get(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, userID int64) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NoopTokenCache never stores anything. It is used when no redis address is configured.
type NoopTokenCache struct{}

func NewNoopTokenCache() *NoopTokenCache {
	return &NoopTokenCache{}
}

func (NoopTokenCache) Get(context.Context, string) (int64, error) {
	return 0, ErrCacheMiss
}

func (NoopTokenCache) Set(context.Context, string, int64) error {
	return nil
}

func (NoopTokenCache) Delete(context.Context, string) error {
	return nil
}

func (NoopTokenCache) Close() error {
	return nil
}
