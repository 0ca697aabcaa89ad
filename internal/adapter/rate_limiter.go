package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yesteryear/internal/domain"

	"github.com/redis/go-redis/v9"
)

// watchAttempts bounds the optimistic-transaction retries when another
// client touches the bucket key between WATCH and EXEC.
const watchAttempts = 5

// RedisRateLimiter implements domain.RateLimiter as a fixed-window counter.
// The bucket key is (caller, action, window index); the read-check-write
// runs inside a Redis transaction so concurrent invocations cannot both
// consume the last slot. Bucket TTL is twice the window length so stale
// buckets expire on their own. Bursts at window boundaries pass; this is a
// fixed-window limiter, not a sliding one.
type RedisRateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRateLimiter creates a rate limiter backed by the given client.
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, now: time.Now}
}

// NewRedisRateLimiterWithClock is used by tests that need a fixed clock.
func NewRedisRateLimiterWithClock(client *redis.Client, now func() time.Time) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, now: now}
}

// TryConsume admits the call or returns a RESOURCE_EXHAUSTED domain error.
func (l *RedisRateLimiter) TryConsume(ctx context.Context, callerID, action string, maxRequests int, window time.Duration) error {
	windowIndex := l.now().UnixMilli() / window.Milliseconds()
	key := fmt.Sprintf("ratelimit:%s:%s:%d", callerID, action, windowIndex)

	var err error
	for attempt := 0; attempt < watchAttempts; attempt++ {
		err = l.client.Watch(ctx, func(tx *redis.Tx) error {
			count, err := tx.Get(ctx, key).Int()
			if err != nil && err != redis.Nil {
				return err
			}
			if count >= maxRequests {
				return domain.ErrRateLimited
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, count+1, 2*window)
				return nil
			})
			return err
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	if errors.Is(err, domain.ErrRateLimited) {
		return domain.NewResourceExhaustedError("Rate limit exceeded. Please try again later.")
	}
	if err != nil {
		return domain.NewInternalError("rate limiter unavailable", err)
	}
	return nil
}
