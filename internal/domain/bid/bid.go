package bid

import (
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// Bid is one attempt by a team to claim a lot at a price.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	LotID     uuid.UUID `json:"lot_id"`
	TeamID    uuid.UUID `json:"team_id"`

	Amount values.Money `json:"amount"`

	// Strictly increasing per lot, assigned by the arbiter.
	Sequence int `json:"sequence"`

	Outcome  Outcome   `json:"outcome"`
	PlacedAt time.Time `json:"placed_at"`
}

type Outcome int

const (
	OutcomeActive Outcome = iota
	OutcomeSuperseded
	OutcomeWon
)

func (o Outcome) String() string {
	switch o {
	case OutcomeActive:
		return "active"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeWon:
		return "won"
	default:
		return "unknown"
	}
}

// ParseOutcome converts a stored outcome string back to an Outcome.
func ParseOutcome(s string) Outcome {
	switch s {
	case "active":
		return OutcomeActive
	case "superseded":
		return OutcomeSuperseded
	case "won":
		return OutcomeWon
	default:
		return OutcomeSuperseded
	}
}

// NewBid creates an active bid. At most one bid per lot is active at a time;
// the arbiter supersedes the previous one inside the same critical section.
func NewBid(auctionID, lotID, teamID uuid.UUID, amount values.Money, sequence int) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		LotID:     lotID,
		TeamID:    teamID,
		Amount:    amount,
		Sequence:  sequence,
		Outcome:   OutcomeActive,
		PlacedAt:  time.Now(),
	}
}

// Supersede marks the bid as outbid.
func (b *Bid) Supersede() {
	b.Outcome = OutcomeSuperseded
}

// MarkWon marks the bid as the one that took the lot.
func (b *Bid) MarkWon() {
	b.Outcome = OutcomeWon
}
