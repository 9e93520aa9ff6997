// Package redis provides a Backend storing each key as a Redis string under a prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	gk "github.com/panyam/grovekeep"
)

// Backend implements grovekeep.Backend using Redis
type Backend struct {
	client *redis.Client
	prefix string
}

// NewBackend creates a Backend whose keys all live under prefix
func NewBackend(client *redis.Client, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

// redisKey returns the Redis key for a backend key
func (b *Backend) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", b.prefix, key)
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gk.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *Backend) Save(ctx context.Context, key string, data []byte) error {
	return b.client.Set(ctx, b.redisKey(key), data, 0).Err()
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.redisKey(key)).Err()
}

// Keys scans the prefix and returns the backend keys found under it
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, b.redisKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
