// Package cache provides the Redis-backed key-value store used for the
// shared "previous access" record.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key this application writes.
const DefaultPrefix = "sinalizacao:"

// New creates a Redis client and checks that the server answers.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", addr, err)
	}

	return client, nil
}

// KV is a string key-value store over a Redis client. Keys never expire.
type KV struct {
	client *redis.Client
	prefix string
}

// NewKV wraps client, prefixing every key with prefix.
func NewKV(client *redis.Client, prefix string) *KV {
	return &KV{client: client, prefix: prefix}
}

// Get returns the value under key and whether it exists.
func (kv *KV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := kv.client.Get(ctx, kv.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key.
func (kv *KV) Set(ctx context.Context, key, value string) error {
	if err := kv.client.Set(ctx, kv.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}
