package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/domain/errors"
)

func testClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

type countingVerifier struct {
	code  string
	calls int
}

func (v *countingVerifier) VerifyAccess(_ context.Context, _ uuid.UUID, accessCode string) error {
	v.calls++
	if accessCode != v.code {
		return errors.ErrInvalidAccessCode
	}
	return nil
}

func TestAccessCodeCache(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()
	auctionID := uuid.New()

	inner := &countingVerifier{code: "open-sesame"}
	cached := NewAccessCodeCache(inner, client, time.Minute, zap.NewNop())

	require.NoError(t, cached.VerifyAccess(ctx, auctionID, "open-sesame"))
	assert.Equal(t, 1, inner.calls)

	// Second check is served from redis.
	require.NoError(t, cached.VerifyAccess(ctx, auctionID, "open-sesame"))
	assert.Equal(t, 1, inner.calls)

	// Wrong codes always reach the inner verifier and fail.
	err := cached.VerifyAccess(ctx, auctionID, "wrong")
	assert.ErrorIs(t, err, errors.ErrInvalidAccessCode)
	assert.Equal(t, 2, inner.calls)
}

func TestAccessCodeCacheFallsThroughWhenRedisDown(t *testing.T) {
	client, mr := testClient(t)
	ctx := context.Background()

	inner := &countingVerifier{code: "open-sesame"}
	cached := NewAccessCodeCache(inner, client, time.Minute, zap.NewNop())

	mr.Close()
	require.NoError(t, cached.VerifyAccess(ctx, uuid.New(), "open-sesame"))
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()
	limiter := NewRateLimiter(client, zap.NewNop())

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "client-a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "client-a", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Denied requests must not consume quota for other keys.
	allowed, err = limiter.Allow(ctx, "client-b", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterWindowSlides(t *testing.T) {
	client, _ := testClient(t)
	ctx := context.Background()
	limiter := NewRateLimiter(client, zap.NewNop())

	allowed, err := limiter.Allow(ctx, "client-a", 1, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-a", 1, 50*time.Millisecond)
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(60 * time.Millisecond)
	allowed, err = limiter.Allow(ctx, "client-a", 1, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}
