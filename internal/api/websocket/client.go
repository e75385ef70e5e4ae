package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arenabid/live-auction-backend/internal/infrastructure/auth"
)

// Client is one websocket connection. Outbound messages flow through send so
// the write pump is the only goroutine touching the connection for writes.
type Client struct {
	id     uuid.UUID
	claims *auth.Claims

	conn *websocket.Conn
	send chan *Message
	done chan struct{}

	// Set by Hub.Join; zero until the client joins a room.
	auctionID uuid.UUID
	joined    bool

	// Throttles bid commands, not room reads.
	limiter *rate.Limiter

	closeOnce sync.Once
	logger    *zap.Logger
}

func newClient(conn *websocket.Conn, claims *auth.Claims, config HubConfig, logger *zap.Logger) *Client {
	return &Client{
		id:      uuid.New(),
		claims:  claims,
		conn:    conn,
		send:    make(chan *Message, config.ClientBufferSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(config.BidRatePerSecond), config.BidRateBurst),
		logger:  logger,
	}
}

// deliver queues a private message, dropping it if the client stalled.
func (c *Client) deliver(msg *Message) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.logger.Warn("client send buffer full, private message dropped",
			zap.String("client_id", c.id.String()))
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump reads commands until the connection drops. One per connection.
func (c *Client) readPump(h *Handler) {
	defer func() {
		h.hub.Leave(c)
		c.close()
	}()

	c.conn.SetReadLimit(h.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("client_id", c.id.String()),
					zap.Error(err))
			}
			return
		}
		h.dispatch(c, raw)
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
// One per connection.
func (c *Client) writePump(h *Handler) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
