package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/service/engine"
)

// HubConfig tunes connection handling.
type HubConfig struct {
	BroadcastBufferSize int
	ClientBufferSize    int
	PingInterval        time.Duration
	PongTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxMessageSize      int64
	BidRatePerSecond    float64
	BidRateBurst        int
}

// DefaultHubConfig returns settings sized for a few thousand observers.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BroadcastBufferSize: 4096,
		ClientBufferSize:    64,
		PingInterval:        30 * time.Second,
		PongTimeout:         60 * time.Second,
		WriteTimeout:        10 * time.Second,
		MaxMessageSize:      8 * 1024,
		BidRatePerSecond:    5,
		BidRateBurst:        10,
	}
}

type roomMessage struct {
	auctionID uuid.UUID
	message   *Message
}

// Hub owns the auction rooms. Every room event fans out to the room's
// connections; a connection that cannot keep up is evicted rather than
// allowed to stall the fan-out.
type Hub struct {
	logger *zap.Logger
	config HubConfig

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]struct{}

	broadcastCh chan roomMessage
	register    chan *Client
	unregister  chan *Client

	// Closed when Run exits; releases registrations waiting on the loop.
	done chan struct{}
}

// NewHub creates a hub. Run must be called before clients connect.
func NewHub(config HubConfig, logger *zap.Logger) *Hub {
	return &Hub{
		logger:      logger,
		config:      config,
		rooms:       make(map[uuid.UUID]map[*Client]struct{}),
		broadcastCh: make(chan roomMessage, config.BroadcastBufferSize),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
	}
}

// Run processes registration and fan-out until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case rm := <-h.broadcastCh:
			h.fanOut(rm.auctionID, rm.message)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Broadcast implements the engine's broadcaster. It never blocks: when the
// hub's buffer is full the event is dropped and logged, because the auction
// state machine must not stall on slow consumers.
func (h *Hub) Broadcast(auctionID uuid.UUID, event engine.Event) {
	msg := &Message{
		Type:      MessageType(event.Type),
		Payload:   event.Payload,
		Timestamp: event.Timestamp,
	}
	select {
	case h.broadcastCh <- roomMessage{auctionID: auctionID, message: msg}:
	default:
		h.logger.Warn("broadcast buffer full, event dropped",
			zap.String("auction_id", auctionID.String()),
			zap.String("event_type", string(event.Type)))
	}
}

// Join subscribes a connected client to an auction room.
func (h *Hub) Join(client *Client, auctionID uuid.UUID) {
	client.auctionID = auctionID
	select {
	case h.register <- client:
	case <-client.done:
	}
}

// Leave unsubscribes a client. Safe to call more than once. Waits for the
// loop to take the unregister so a leave issued while the loop is busy is
// never lost; after shutdown the client is reaped by closeAll instead.
func (h *Hub) Leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// RoomSize returns the number of connections in an auction room.
func (h *Hub) RoomSize(auctionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[auctionID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[client.auctionID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.auctionID] = room
	}
	room[client] = struct{}{}

	h.logger.Debug("client joined room",
		zap.String("auction_id", client.auctionID.String()),
		zap.String("client_id", client.id.String()),
		zap.Int("room_size", len(room)))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.auctionID]
	if ok {
		if _, member := room[client]; member {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, client.auctionID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		client.close()
	}
}

func (h *Hub) fanOut(auctionID uuid.UUID, msg *Message) {
	h.mu.RLock()
	var stalled []*Client
	for client := range h.rooms[auctionID] {
		select {
		case client.send <- msg:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	// A full send buffer means the client stopped reading; evict it so the
	// room never backs up behind one connection.
	for _, client := range stalled {
		h.logger.Warn("evicting stalled client",
			zap.String("auction_id", auctionID.String()),
			zap.String("client_id", client.id.String()))
		h.removeClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for auctionID, room := range h.rooms {
		for client := range room {
			client.close()
		}
		delete(h.rooms, auctionID)
	}
}
