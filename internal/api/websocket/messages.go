package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CommandType identifies an inbound client command.
type CommandType string

const (
	CommandJoinAuction   CommandType = "join_auction"
	CommandPlaceBid      CommandType = "place_bid"
	CommandPutOnBlock    CommandType = "put_on_block"
	CommandEndBidding    CommandType = "end_bidding"
	CommandPauseAuction  CommandType = "pause_auction"
	CommandResumeAuction CommandType = "resume_auction"
	CommandEndAuction    CommandType = "end_auction"
	CommandPing          CommandType = "ping"
)

// Command is the inbound message envelope. Payload is decoded per type.
type Command struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinAuctionPayload opens a room subscription.
type JoinAuctionPayload struct {
	AuctionID  uuid.UUID `json:"auction_id" validate:"required"`
	AccessCode string    `json:"access_code" validate:"required"`
}

// PlaceBidPayload submits a bid for the lot currently on the block. The team
// comes from the connection's token, never from the payload.
type PlaceBidPayload struct {
	LotID  uuid.UUID `json:"lot_id" validate:"required"`
	Amount string    `json:"amount" validate:"required,numeric"`
}

// PutOnBlockPayload opens a lot for bidding.
type PutOnBlockPayload struct {
	LotID uuid.UUID `json:"lot_id" validate:"required"`
}

// EndBiddingPayload closes bidding on the current lot early.
type EndBiddingPayload struct {
	LotID uuid.UUID `json:"lot_id" validate:"required"`
}

// MessageType identifies an outbound message.
type MessageType string

const (
	MessageSnapshot MessageType = "snapshot"
	MessageError    MessageType = "error"
	MessagePong     MessageType = "pong"
)

// Message is the outbound envelope. Room events reuse the engine's event
// type strings, so the two namespaces share one wire field.
type Message struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorPayload is sent privately to the connection whose command failed.
type ErrorPayload struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func newMessage(msgType MessageType, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
