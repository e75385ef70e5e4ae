package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// TickFunc receives the remaining seconds after each one-second tick.
type TickFunc func(auctionID, lotID uuid.UUID, remaining int)

// ExpireFunc receives exactly one expiry per countdown run.
type ExpireFunc func(auctionID, lotID uuid.UUID)

// CountdownDriver runs at most one countdown per auction. The server clock is
// authoritative: clients only render the remaining seconds it broadcasts.
type CountdownDriver struct {
	clock    clockwork.Clock
	onTick   TickFunc
	onExpire ExpireFunc
	logger   *zap.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*countdown
}

type countdown struct {
	auctionID uuid.UUID
	lotID     uuid.UUID

	// mu orders tick emission against Stop and Reset. Once stopped is
	// set, no further tick or expiry can be observed by callbacks.
	mu        sync.Mutex
	remaining int
	stopped   bool

	stopCh chan struct{}
}

// NewCountdownDriver creates a driver. Ticks and expiries are delivered via
// the callbacks; the expiry callback is responsible for its own serialization.
func NewCountdownDriver(clock clockwork.Clock, onTick TickFunc, onExpire ExpireFunc, logger *zap.Logger) *CountdownDriver {
	return &CountdownDriver{
		clock:    clock,
		onTick:   onTick,
		onExpire: onExpire,
		logger:   logger,
		timers:   make(map[uuid.UUID]*countdown),
	}
}

// Start begins a countdown for a lot, replacing any countdown already running
// for the auction.
func (d *CountdownDriver) Start(auctionID, lotID uuid.UUID, seconds int) {
	d.mu.Lock()
	if existing, ok := d.timers[auctionID]; ok {
		existing.stop()
	}
	c := &countdown{
		auctionID: auctionID,
		lotID:     lotID,
		remaining: seconds,
		stopCh:    make(chan struct{}),
	}
	d.timers[auctionID] = c
	d.mu.Unlock()

	go d.run(c)
}

// Reset restores the countdown to its full duration and emits a tick with the
// restored value at once, so clients re-render without waiting for the next
// second boundary. The reset is ignored if no countdown is running or the
// running one belongs to a different lot, so a bid racing a lot change can
// never extend the wrong countdown.
func (d *CountdownDriver) Reset(auctionID, lotID uuid.UUID, seconds int) bool {
	d.mu.Lock()
	c, ok := d.timers[auctionID]
	d.mu.Unlock()
	if !ok || c.lotID != lotID {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.remaining = seconds
	// Emitted under c.mu like the ticker's ticks, so a concurrent Stop
	// cannot observe this tick after it returns.
	d.onTick(auctionID, lotID, seconds)
	return true
}

// Remaining returns the seconds left on the auction's countdown, zero when
// none is running.
func (d *CountdownDriver) Remaining(auctionID uuid.UUID) int {
	d.mu.Lock()
	c, ok := d.timers[auctionID]
	d.mu.Unlock()
	if !ok {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0
	}
	return c.remaining
}

// Stop cancels the auction's countdown, returning the seconds that were left.
// After Stop returns, no tick or expiry for the cancelled countdown will be
// delivered. Stopping an auction with no countdown is a no-op.
func (d *CountdownDriver) Stop(auctionID uuid.UUID) int {
	d.mu.Lock()
	c, ok := d.timers[auctionID]
	if ok {
		delete(d.timers, auctionID)
	}
	d.mu.Unlock()
	if !ok {
		return 0
	}
	return c.stop()
}

// StopAll cancels every running countdown. Used on shutdown.
func (d *CountdownDriver) StopAll() {
	d.mu.Lock()
	timers := make([]*countdown, 0, len(d.timers))
	for id, c := range d.timers {
		timers = append(timers, c)
		delete(d.timers, id)
	}
	d.mu.Unlock()

	for _, c := range timers {
		c.stop()
	}
}

func (d *CountdownDriver) run(c *countdown) {
	ticker := d.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.Chan():
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			c.remaining--
			remaining := c.remaining
			expired := remaining <= 0
			if expired {
				c.stopped = true
			} else {
				// Ticks fire under c.mu so a concurrent Stop cannot
				// observe one after it returns.
				d.onTick(c.auctionID, c.lotID, remaining)
			}
			c.mu.Unlock()

			if expired {
				d.mu.Lock()
				if d.timers[c.auctionID] == c {
					delete(d.timers, c.auctionID)
				}
				d.mu.Unlock()
				// Expiry fires outside c.mu because the handler takes
				// the session lock, which bidders hold while resetting
				// this countdown. The handler re-checks the lot under
				// that lock, so a stale expiry is a no-op.
				d.onExpire(c.auctionID, c.lotID)
				return
			}
		}
	}
}

func (c *countdown) stop() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0
	}
	c.stopped = true
	close(c.stopCh)
	return c.remaining
}
