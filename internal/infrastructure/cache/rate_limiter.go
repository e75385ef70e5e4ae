package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitPrefix = "rate_limit:"

// RateLimiter is a sliding-window limiter backed by redis sorted sets, shared
// across instances behind a load balancer.
type RateLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRateLimiter(client *redis.Client, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{client: client, logger: logger}
}

// Allow reports whether another request under key fits in the window. The
// window slides: each call records a timestamped member and counts members
// newer than now minus window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window)
	redisKey := rateLimitPrefix + key
	member := fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond()%1000)

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit pipeline: %w", err)
	}

	if countCmd.Val() >= int64(limit) {
		// Take back the member recorded above so denied requests do not
		// extend the lockout.
		r.client.ZRem(ctx, redisKey, member)
		r.logger.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", countCmd.Val()),
			zap.Int("limit", limit))
		return false, nil
	}
	return true, nil
}
