package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/domain/bid"
	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/domain/values"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/auth"
	"github.com/arenabid/live-auction-backend/internal/service/engine"
)

// AuctionEngine is the slice of the engine the gateway drives.
type AuctionEngine interface {
	VerifyAccess(ctx context.Context, auctionID uuid.UUID, accessCode string) error
	GetSnapshot(ctx context.Context, auctionID uuid.UUID) (*engine.Snapshot, error)
	SubmitBid(ctx context.Context, auctionID, lotID, teamID uuid.UUID, amount values.Money) (*bid.Bid, error)
	PutOnBlock(ctx context.Context, auctionID, lotID uuid.UUID) error
	EndBidding(ctx context.Context, auctionID, lotID uuid.UUID) error
	PauseAuction(ctx context.Context, auctionID uuid.UUID) error
	ResumeAuction(ctx context.Context, auctionID uuid.UUID) error
	EndAuction(ctx context.Context, auctionID uuid.UUID) error
}

// TokenValidator authenticates a connection's bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Handler upgrades HTTP requests into room connections and routes commands.
// Bid and lifecycle errors go back privately to the issuing connection; only
// accepted state changes are broadcast to the room.
type Handler struct {
	engine   AuctionEngine
	hub      *Hub
	tokens   TokenValidator
	config   HubConfig
	upgrader websocket.Upgrader
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a websocket handler.
func NewHandler(eng AuctionEngine, hub *Hub, tokens TokenValidator, config HubConfig, logger *zap.Logger) *Handler {
	return &Handler{
		engine:   eng,
		hub:      hub,
		tokens:   tokens,
		config:   config,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Room entry is enforced by token plus access code, not origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}

}

// ServeHTTP handles GET /ws. The token travels in the Authorization header
// or, for browser clients, the token query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(conn, claims, h.config, h.logger)
	go client.writePump(h)
	go client.readPump(h)
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// dispatch routes one inbound command. Runs on the client's read pump.
func (h *Handler) dispatch(c *Client, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.deliver(errorMessage("MALFORMED_COMMAND", "command is not valid JSON", nil))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cmd.Type {
	case CommandPing:
		c.deliver(newMessage(MessagePong, nil))
	case CommandJoinAuction:
		h.handleJoin(ctx, c, cmd.Payload)
	case CommandPlaceBid:
		h.handlePlaceBid(ctx, c, cmd.Payload)
	case CommandPutOnBlock:
		h.handleAdminLot(ctx, c, cmd.Payload, h.engine.PutOnBlock)
	case CommandEndBidding:
		h.handleAdminLot(ctx, c, cmd.Payload, h.engine.EndBidding)
	case CommandPauseAuction:
		h.handleAdminAuction(ctx, c, h.engine.PauseAuction)
	case CommandResumeAuction:
		h.handleAdminAuction(ctx, c, h.engine.ResumeAuction)
	case CommandEndAuction:
		h.handleAdminAuction(ctx, c, h.engine.EndAuction)
	default:
		c.deliver(errorMessage("UNKNOWN_COMMAND", "unsupported command type", map[string]interface{}{
			"type": string(cmd.Type),
		}))
	}
}

func (h *Handler) handleJoin(ctx context.Context, c *Client, raw json.RawMessage) {
	var payload JoinAuctionPayload
	if err := h.decodePayload(raw, &payload); err != nil {
		c.deliver(errorMessage("MALFORMED_COMMAND", "invalid join payload", nil))
		return
	}
	if c.joined {
		c.deliver(errorMessage("ALREADY_JOINED", "connection is already in a room", nil))
		return
	}
	// The token is minted for one auction; a join for any other is refused
	// before the access code is even looked at.
	if c.claims.AuctionID != payload.AuctionID {
		c.deliver(errorMessage("FORBIDDEN", "token is not valid for this auction", nil))
		return
	}
	if err := h.engine.VerifyAccess(ctx, payload.AuctionID, payload.AccessCode); err != nil {
		c.deliver(appErrorMessage(err))
		return
	}

	h.hub.Join(c, payload.AuctionID)
	c.joined = true

	snap, err := h.engine.GetSnapshot(ctx, payload.AuctionID)
	if err != nil {
		c.deliver(appErrorMessage(err))
		return
	}
	c.deliver(newMessage(MessageSnapshot, snap))
}

func (h *Handler) handlePlaceBid(ctx context.Context, c *Client, raw json.RawMessage) {
	if !c.joined {
		c.deliver(errorMessage("NOT_JOINED", "join the auction before bidding", nil))
		return
	}
	if c.claims.Role != auth.RoleBidder || c.claims.TeamID == nil {
		c.deliver(errorMessage("FORBIDDEN", "only bidders can place bids", nil))
		return
	}
	if !c.limiter.Allow() {
		c.deliver(errorMessage("RATE_LIMITED", "too many bids, slow down", nil))
		return
	}

	var payload PlaceBidPayload
	if err := h.decodePayload(raw, &payload); err != nil {
		c.deliver(errorMessage("MALFORMED_COMMAND", "invalid bid payload", nil))
		return
	}
	amount, err := values.NewMoneyFromString(payload.Amount, values.USD)
	if err != nil {
		c.deliver(errorMessage("INVALID_AMOUNT", "bid amount is not a valid number", nil))
		return
	}

	if _, err := h.engine.SubmitBid(ctx, c.auctionID, payload.LotID, *c.claims.TeamID, amount); err != nil {
		// Rejections are private; the room only hears accepted bids.
		c.deliver(appErrorMessage(err))
	}
}

type lotOp func(ctx context.Context, auctionID, lotID uuid.UUID) error

func (h *Handler) handleAdminLot(ctx context.Context, c *Client, raw json.RawMessage, op lotOp) {
	if !h.requireAdmin(c) {
		return
	}
	var payload PutOnBlockPayload
	if err := h.decodePayload(raw, &payload); err != nil {
		c.deliver(errorMessage("MALFORMED_COMMAND", "invalid lot payload", nil))
		return
	}
	if err := op(ctx, c.auctionID, payload.LotID); err != nil {
		c.deliver(appErrorMessage(err))
	}
}

func (h *Handler) handleAdminAuction(ctx context.Context, c *Client, op func(ctx context.Context, auctionID uuid.UUID) error) {
	if !h.requireAdmin(c) {
		return
	}
	if err := op(ctx, c.auctionID); err != nil {
		c.deliver(appErrorMessage(err))
	}
}

func (h *Handler) requireAdmin(c *Client) bool {
	if !c.joined {
		c.deliver(errorMessage("NOT_JOINED", "join the auction first", nil))
		return false
	}
	if c.claims.Role != auth.RoleAdmin {
		c.deliver(errorMessage("FORBIDDEN", "admin role required", nil))
		return false
	}
	return true
}

// decodePayload unmarshals a command payload and runs its validate tags.
func (h *Handler) decodePayload(raw json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

func errorMessage(code, message string, details map[string]interface{}) *Message {
	return newMessage(MessageError, ErrorPayload{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// appErrorMessage maps a domain error onto the private error payload.
func appErrorMessage(err error) *Message {
	payload := ErrorPayload{
		Code:    errors.Code(err),
		Message: err.Error(),
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		payload.Message = appErr.Message
		payload.Details = appErr.Details
	}
	return newMessage(MessageError, payload)
}
