package mocks

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/service/engine"
)

// Broadcaster records broadcast events for assertions. Safe for concurrent
// use because the engine broadcasts from multiple goroutines.
type Broadcaster struct {
	mu     sync.Mutex
	events []engine.Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

func (b *Broadcaster) Broadcast(auctionID uuid.UUID, event engine.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// Events returns a copy of everything broadcast so far.
func (b *Broadcaster) Events() []engine.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]engine.Event, len(b.events))
	copy(out, b.events)
	return out
}

// EventsOfType filters recorded events by type.
func (b *Broadcaster) EventsOfType(t engine.EventType) []engine.Event {
	var out []engine.Event
	for _, ev := range b.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// MetricsCollector is a no-op engine metrics sink that counts rejections.
type MetricsCollector struct {
	mu        sync.Mutex
	rejected  map[string]int
	accepted  int
	finalized int
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{rejected: make(map[string]int)}
}

func (m *MetricsCollector) RecordBidAccepted(auctionID uuid.UUID, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

func (m *MetricsCollector) RecordBidRejected(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[code]++
}

func (m *MetricsCollector) RecordLotFinalized(status string, price float64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized++
}

func (m *MetricsCollector) RecordCountdownReset(auctionID uuid.UUID) {}

func (m *MetricsCollector) SetActiveAuctions(n int) {}

// Accepted returns the number of accepted bids recorded.
func (m *MetricsCollector) Accepted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted
}

// Rejected returns the rejection count for an error code.
func (m *MetricsCollector) Rejected(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[code]
}
