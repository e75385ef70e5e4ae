package lot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// Lot is one item offered for competitive bidding within an auction.
type Lot struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`

	PlayerName string `json:"player_name"`
	Role       string `json:"role"`

	BasePrice values.Money `json:"base_price"`
	Status    Status       `json:"status"`

	// Set only once the lot sells; immutable afterwards.
	WinningTeamID *uuid.UUID    `json:"winning_team_id,omitempty"`
	FinalPrice    *values.Money `json:"final_price,omitempty"`

	// Position in the auction's lot order.
	Sequence int `json:"sequence"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusPending Status = iota
	StatusOnBlock
	StatusSold
	StatusUnsold
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOnBlock:
		return "on_block"
	case StatusSold:
		return "sold"
	case StatusUnsold:
		return "unsold"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored status string back to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "pending":
		return StatusPending
	case "on_block":
		return StatusOnBlock
	case "sold":
		return StatusSold
	case "unsold":
		return StatusUnsold
	default:
		return StatusPending
	}
}

// NewLot creates a pending lot.
func NewLot(auctionID uuid.UUID, playerName, role string, basePrice values.Money, sequence int) *Lot {
	now := time.Now()
	return &Lot{
		ID:         uuid.New(),
		AuctionID:  auctionID,
		PlayerName: playerName,
		Role:       role,
		BasePrice:  basePrice,
		Status:     StatusPending,
		Sequence:   sequence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsTerminal reports whether the lot has been finalized.
func (l *Lot) IsTerminal() bool {
	return l.Status == StatusSold || l.Status == StatusUnsold
}

// PutOnBlock opens the lot for bidding.
func (l *Lot) PutOnBlock() error {
	if l.Status != StatusPending {
		return fmt.Errorf("lot %s is %s, not pending", l.ID, l.Status)
	}
	l.Status = StatusOnBlock
	l.UpdatedAt = time.Now()
	return nil
}

// MarkSold finalizes the lot with a winner and final price.
func (l *Lot) MarkSold(teamID uuid.UUID, price values.Money) error {
	if l.Status != StatusOnBlock {
		return fmt.Errorf("lot %s is %s, not on_block", l.ID, l.Status)
	}
	l.Status = StatusSold
	l.WinningTeamID = &teamID
	l.FinalPrice = &price
	l.UpdatedAt = time.Now()
	return nil
}

// MarkUnsold finalizes the lot without a winner.
func (l *Lot) MarkUnsold() error {
	if l.Status != StatusOnBlock {
		return fmt.Errorf("lot %s is %s, not on_block", l.ID, l.Status)
	}
	l.Status = StatusUnsold
	l.UpdatedAt = time.Now()
	return nil
}

// ReturnToPending puts an on-block lot back in the queue. Used when the
// auction ends mid-lot: the lot is never auto-sold or auto-unsold.
func (l *Lot) ReturnToPending() error {
	if l.Status != StatusOnBlock {
		return fmt.Errorf("lot %s is %s, not on_block", l.ID, l.Status)
	}
	l.Status = StatusPending
	l.UpdatedAt = time.Now()
	return nil
}
