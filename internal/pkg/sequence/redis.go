// internal/pkg/sequence/redis.go
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Generator on a Redis INCR counter. Day-scoped keys get a
// TTL on first increment so stale counters expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed generator. Keys expire after ttl
// (48h covers a per-day counter across timezone skew).
func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		ttl:    48 * time.Hour,
	}
}

// Next atomically increments and returns the counter for key
func (r *Redis) Next(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %s: %w", key, err)
	}
	if n == 1 {
		// First write creates the key; bound its lifetime.
		r.client.Expire(ctx, key, r.ttl)
	}
	return n, nil
}
