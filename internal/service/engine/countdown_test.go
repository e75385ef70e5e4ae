package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/service/engine"
)

// tickRecorder collects driver callbacks. Ticks are recorded synchronously;
// expiries are signalled on a channel because they fire from the countdown
// goroutine.
type tickRecorder struct {
	mu       sync.Mutex
	ticks    []int
	tickCh   chan int
	expireCh chan uuid.UUID
}

func newTickRecorder() *tickRecorder {
	return &tickRecorder{
		tickCh:   make(chan int, 64),
		expireCh: make(chan uuid.UUID, 4),
	}
}

func (r *tickRecorder) onTick(auctionID, lotID uuid.UUID, remaining int) {
	r.mu.Lock()
	r.ticks = append(r.ticks, remaining)
	r.mu.Unlock()
	r.tickCh <- remaining
}

func (r *tickRecorder) onExpire(auctionID, lotID uuid.UUID) {
	r.expireCh <- lotID
}

func (r *tickRecorder) recorded() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.ticks))
	copy(out, r.ticks)
	return out
}

func (r *tickRecorder) waitTick(t *testing.T) int {
	t.Helper()
	select {
	case remaining := <-r.tickCh:
		return remaining
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return 0
	}
}

func (r *tickRecorder) waitExpiry(t *testing.T) uuid.UUID {
	t.Helper()
	select {
	case lotID := <-r.expireCh:
		return lotID
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for expiry")
		return uuid.Nil
	}
}

func (r *tickRecorder) assertNoExpiry(t *testing.T) {
	t.Helper()
	select {
	case <-r.expireCh:
		t.Fatal("unexpected expiry")
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestDriver(t *testing.T) (*engine.CountdownDriver, *clockwork.FakeClock, *tickRecorder) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	rec := newTickRecorder()
	d := engine.NewCountdownDriver(clock, rec.onTick, rec.onExpire, zap.NewNop())
	t.Cleanup(d.StopAll)
	return d, clock, rec
}

// advance moves the fake clock one second after the ticker goroutine is
// registered as a waiter, so each tick is observed deterministically.
func advance(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
}

func TestCountdownDriver_TicksDownToExpiry(t *testing.T) {
	d, clock, rec := newTestDriver(t)
	auctionID, lotID := uuid.New(), uuid.New()

	d.Start(auctionID, lotID, 3)

	advance(t, clock)
	assert.Equal(t, 2, rec.waitTick(t))
	advance(t, clock)
	assert.Equal(t, 1, rec.waitTick(t))

	advance(t, clock)
	assert.Equal(t, lotID, rec.waitExpiry(t))
	assert.Equal(t, []int{2, 1}, rec.recorded())
	assert.Equal(t, 0, d.Remaining(auctionID))
}

func TestCountdownDriver_ResetRestoresFullDuration(t *testing.T) {
	d, clock, rec := newTestDriver(t)
	auctionID, lotID := uuid.New(), uuid.New()

	d.Start(auctionID, lotID, 3)
	advance(t, clock)
	rec.waitTick(t)
	require.Equal(t, 2, d.Remaining(auctionID))

	// The reset itself announces the restored value, before any clock
	// movement.
	require.True(t, d.Reset(auctionID, lotID, 3))
	assert.Equal(t, 3, rec.waitTick(t))
	assert.Equal(t, 3, d.Remaining(auctionID))

	advance(t, clock)
	assert.Equal(t, 2, rec.waitTick(t))
	rec.assertNoExpiry(t)
	assert.Equal(t, []int{2, 3, 2}, rec.recorded())
}

func TestCountdownDriver_ResetIgnoredForWrongLot(t *testing.T) {
	d, _, _ := newTestDriver(t)
	auctionID, lotID := uuid.New(), uuid.New()

	d.Start(auctionID, lotID, 5)

	assert.False(t, d.Reset(auctionID, uuid.New(), 5))
	assert.False(t, d.Reset(uuid.New(), lotID, 5))
	assert.Equal(t, 5, d.Remaining(auctionID))
}

func TestCountdownDriver_StopReturnsRemainingAndSilences(t *testing.T) {
	d, clock, rec := newTestDriver(t)
	auctionID, lotID := uuid.New(), uuid.New()

	d.Start(auctionID, lotID, 5)
	advance(t, clock)
	rec.waitTick(t)

	assert.Equal(t, 4, d.Stop(auctionID))
	assert.Equal(t, 0, d.Remaining(auctionID))

	// Advancing further must produce neither ticks nor an expiry.
	clock.Advance(10 * time.Second)
	rec.assertNoExpiry(t)
	assert.Equal(t, []int{4}, rec.recorded())

	assert.Equal(t, 0, d.Stop(auctionID))
}

func TestCountdownDriver_StartReplacesRunningCountdown(t *testing.T) {
	d, clock, rec := newTestDriver(t)
	auctionID := uuid.New()
	firstLot, secondLot := uuid.New(), uuid.New()

	d.Start(auctionID, firstLot, 5)
	d.Start(auctionID, secondLot, 2)

	advance(t, clock)
	assert.Equal(t, 1, rec.waitTick(t))
	advance(t, clock)
	assert.Equal(t, secondLot, rec.waitExpiry(t))
}

func TestCountdownDriver_ExpiresExactlyOnce(t *testing.T) {
	d, clock, rec := newTestDriver(t)
	auctionID, lotID := uuid.New(), uuid.New()

	d.Start(auctionID, lotID, 1)
	advance(t, clock)
	rec.waitExpiry(t)

	clock.Advance(10 * time.Second)
	rec.assertNoExpiry(t)
}

func TestCountdownDriver_IndependentAuctions(t *testing.T) {
	d, clock, rec := newTestDriver(t)
	auctionA, lotA := uuid.New(), uuid.New()
	auctionB, lotB := uuid.New(), uuid.New()

	d.Start(auctionA, lotA, 1)
	d.Start(auctionB, lotB, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(time.Second)

	expired := rec.waitExpiry(t)
	assert.Equal(t, lotA, expired)
	assert.Equal(t, 2, rec.waitTick(t))
	assert.Equal(t, 2, d.Remaining(auctionB))
}
