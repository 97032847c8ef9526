package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store backed by a Redis instance.
// Entries are stored under "<prefix><key>" with the TTL passed to Set.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis-backed store. Prefix may be empty.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "bps:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (r *Redis) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
