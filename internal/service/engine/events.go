package engine

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a room broadcast event.
type EventType string

const (
	EventLotOpen           EventType = "lot_open"
	EventBidAccepted       EventType = "bid_accepted"
	EventTick              EventType = "tick"
	EventLotSold           EventType = "lot_sold"
	EventLotUnsold         EventType = "lot_unsold"
	EventAuctionEnded      EventType = "auction_ended"
	EventTeamBudgetUpdated EventType = "team_budget_updated"
)

// Event is the envelope broadcast to every connection in an auction room.
type Event struct {
	Type      EventType   `json:"type"`
	AuctionID uuid.UUID   `json:"auction_id"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType EventType, auctionID uuid.UUID, payload interface{}) Event {
	return Event{
		Type:      eventType,
		AuctionID: auctionID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// LotOpenPayload announces a lot going on the block.
type LotOpenPayload struct {
	LotID            uuid.UUID `json:"lot_id"`
	PlayerName       string    `json:"player_name"`
	Role             string    `json:"role"`
	BasePrice        string    `json:"base_price"`
	Sequence         int       `json:"sequence"`
	CountdownSeconds int       `json:"countdown_seconds"`
}

// BidAcceptedPayload announces a new high bid.
type BidAcceptedPayload struct {
	BidID            uuid.UUID `json:"bid_id"`
	LotID            uuid.UUID `json:"lot_id"`
	TeamID           uuid.UUID `json:"team_id"`
	TeamName         string    `json:"team_name"`
	Amount           string    `json:"amount"`
	Sequence         int       `json:"sequence"`
	CountdownSeconds int       `json:"countdown_seconds"`
}

// TickPayload carries the authoritative remaining countdown.
type TickPayload struct {
	LotID            uuid.UUID `json:"lot_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// LotSoldPayload announces a finalized sale.
type LotSoldPayload struct {
	LotID      uuid.UUID `json:"lot_id"`
	PlayerName string    `json:"player_name"`
	TeamID     uuid.UUID `json:"team_id"`
	TeamName   string    `json:"team_name"`
	FinalPrice string    `json:"final_price"`
}

// LotUnsoldPayload announces a lot that closed with no bids.
type LotUnsoldPayload struct {
	LotID      uuid.UUID `json:"lot_id"`
	PlayerName string    `json:"player_name"`
}

// AuctionEndedPayload announces the end of the auction.
type AuctionEndedPayload struct {
	EndedAt time.Time `json:"ended_at"`
}

// TeamBudgetUpdatedPayload announces a budget change after a sale.
type TeamBudgetUpdatedPayload struct {
	TeamID          uuid.UUID `json:"team_id"`
	RemainingBudget string    `json:"remaining_budget"`
	LotsWon         int       `json:"lots_won"`
}

// Snapshot is the full room state sent privately to a joining connection.
type Snapshot struct {
	AuctionID        uuid.UUID       `json:"auction_id"`
	AuctionName      string          `json:"auction_name"`
	Status           string          `json:"status"`
	BidIncrement     string          `json:"bid_increment"`
	CurrentLot       *SnapshotLot    `json:"current_lot,omitempty"`
	HighBid          *SnapshotBid    `json:"high_bid,omitempty"`
	RemainingSeconds int             `json:"remaining_seconds"`
	Teams            []SnapshotTeam  `json:"teams"`
}

// SnapshotLot is the current lot as seen by a joining connection.
type SnapshotLot struct {
	LotID      uuid.UUID `json:"lot_id"`
	PlayerName string    `json:"player_name"`
	Role       string    `json:"role"`
	BasePrice  string    `json:"base_price"`
	Sequence   int       `json:"sequence"`
}

// SnapshotBid is the standing high bid as seen by a joining connection.
type SnapshotBid struct {
	BidID    uuid.UUID `json:"bid_id"`
	TeamID   uuid.UUID `json:"team_id"`
	TeamName string    `json:"team_name"`
	Amount   string    `json:"amount"`
	Sequence int       `json:"sequence"`
}

// SnapshotTeam is one team's public standing.
type SnapshotTeam struct {
	TeamID          uuid.UUID `json:"team_id"`
	Name            string    `json:"name"`
	ShortCode       string    `json:"short_code"`
	RemainingBudget string    `json:"remaining_budget"`
	LotsWon         int       `json:"lots_won"`
}
