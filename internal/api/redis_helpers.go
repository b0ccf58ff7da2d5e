package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateCounter is the slice of redis the login and upload limiters use.
type rateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// bumpCounter increments a windowed counter and returns the new count. The
// TTL is armed on the first hit only, so the key expires relative to the
// start of the window. A failed EXPIRE just leaves the key to linger.
func bumpCounter(ctx context.Context, client rateCounter, key string, window time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, window).Err()
	}
	return count, nil
}
