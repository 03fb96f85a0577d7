package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tonmev/tonmev/internal/domain"
)

// RateLimiter implements domain.RateLimiter with a sliding window over a
// Redis sorted set. Each request is a member scored by its microsecond
// timestamp; members older than the window are trimmed before counting.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying()}
}

// Allow reports whether a request for key is permitted under limit requests
// per window. Allowed requests are counted; rejected ones are not.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()
	cutoff := now - window.Microseconds()

	pipe := rl.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}

	if countCmd.Val() >= int64(limit) {
		return false, nil
	}

	member := strconv.FormatInt(now, 10)
	add := rl.rdb.TxPipeline()
	add.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member})
	add.Expire(ctx, key, window+time.Second)
	if _, err := add.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}

	return true, nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
