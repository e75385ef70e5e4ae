package cache

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const accessCodePrefix = "access_code:"

// AccessVerifier checks a room-entry code for an auction.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, auctionID uuid.UUID, accessCode string) error
}

// AccessCodeCache is a read-through cache in front of an AccessVerifier.
// Join storms at auction open hit redis instead of the database. A redis
// failure falls through to the inner verifier, never blocking a join.
type AccessCodeCache struct {
	inner  AccessVerifier
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewAccessCodeCache(inner AccessVerifier, client *redis.Client, ttl time.Duration, logger *zap.Logger) *AccessCodeCache {
	return &AccessCodeCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

// VerifyAccess checks the cached code first, delegating on miss and caching
// the code after a successful verification.
func (c *AccessCodeCache) VerifyAccess(ctx context.Context, auctionID uuid.UUID, accessCode string) error {
	key := accessCodePrefix + auctionID.String()

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if subtle.ConstantTimeCompare([]byte(cached), []byte(accessCode)) == 1 {
			return nil
		}
		// A mismatch may mean a wrong code or a rotated one; the inner
		// verifier decides.
	} else if err != redis.Nil {
		c.logger.Debug("access code cache read failed", zap.Error(err))
	}

	if err := c.inner.VerifyAccess(ctx, auctionID, accessCode); err != nil {
		return err
	}

	if err := c.client.Set(ctx, key, accessCode, c.ttl).Err(); err != nil {
		c.logger.Debug("access code cache write failed", zap.Error(err))
	}
	return nil
}
