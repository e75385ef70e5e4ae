package team

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// Team is one bidding party in an auction.
type Team struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`

	Name      string `json:"name"`
	ShortCode string `json:"short_code"`

	StartingBudget  values.Money `json:"starting_budget"`
	RemainingBudget values.Money `json:"remaining_budget"`

	// Count of lots this team has won.
	LotsWon int `json:"lots_won"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTeam creates a team with its full budget remaining.
func NewTeam(auctionID uuid.UUID, name, shortCode string, budget values.Money) *Team {
	now := time.Now()
	return &Team{
		ID:              uuid.New(),
		AuctionID:       auctionID,
		Name:            name,
		ShortCode:       shortCode,
		StartingBudget:  budget,
		RemainingBudget: budget,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CanAfford reports whether the remaining budget covers the amount.
func (t *Team) CanAfford(amount values.Money) bool {
	return t.RemainingBudget.GreaterOrEqual(amount)
}

// Debit charges the team for a won lot. The budget is mutated only at lot
// finalization, never at bid time, so a lot can never be double-charged.
func (t *Team) Debit(amount values.Money) error {
	if !t.CanAfford(amount) {
		return ErrBudgetExceeded
	}
	remaining, err := t.RemainingBudget.Sub(amount)
	if err != nil {
		return fmt.Errorf("debit team %s: %w", t.ID, err)
	}
	t.RemainingBudget = remaining
	t.LotsWon++
	t.UpdatedAt = time.Now()
	return nil
}

var ErrBudgetExceeded = fmt.Errorf("remaining budget exceeded")
