package redisclient

import (
	"context"
	"fmt"
	"time"
)

const keyPrefix = "storefront:ratelimit:"

// Limiter is a fixed-window rate limiter shared by every API replica.
// Each window is one counter key that expires with the window.
type Limiter struct {
	client *Client
	limit  int64
	window time.Duration
}

func NewLimiter(client *Client, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := keyPrefix + key

	pipe := l.client.Raw().TxPipeline()
	incr := pipe.Incr(ctx, k)
	// NX keeps the first request's expiry for the whole window
	pipe.Do(ctx, "pexpire", k, l.window.Milliseconds(), "NX")
	ttl := pipe.PTTL(ctx, k)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit %q: %w", key, err)
	}

	if incr.Val() <= l.limit {
		return true, 0, nil
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 {
		retryAfter = l.window
	}
	return false, retryAfter, nil
}
