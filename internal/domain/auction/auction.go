package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// Auction is the durable record for one live auction event.
type Auction struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	Status Status `json:"status"`

	// Room-entry gate checked when a connection joins; not a capability token.
	AccessCode string `json:"-"`

	// Bidding parameters
	BidIncrement     values.Money `json:"bid_increment"`
	CountdownSeconds int          `json:"countdown_seconds"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Status int

const (
	StatusPending Status = iota
	StatusLive
	StatusPaused
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLive:
		return "live"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored status string back to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "pending":
		return StatusPending
	case "live":
		return StatusLive
	case "paused":
		return StatusPaused
	case "ended":
		return StatusEnded
	default:
		return StatusPending
	}
}

// NewAuction creates an auction in the pending state.
func NewAuction(name, accessCode string, increment values.Money, countdownSeconds int) *Auction {
	now := time.Now()
	return &Auction{
		ID:               uuid.New(),
		Name:             name,
		Status:           StatusPending,
		AccessCode:       accessCode,
		BidIncrement:     increment,
		CountdownSeconds: countdownSeconds,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsTerminal reports whether the auction can no longer change state.
func (a *Auction) IsTerminal() bool {
	return a.Status == StatusEnded
}

// Start moves the auction to live.
func (a *Auction) Start() {
	now := time.Now()
	a.Status = StatusLive
	a.StartedAt = &now
	a.UpdatedAt = now
}

// Pause suspends bidding without ending the auction.
func (a *Auction) Pause() {
	a.Status = StatusPaused
	a.UpdatedAt = time.Now()
}

// Resume returns a paused auction to live.
func (a *Auction) Resume() {
	a.Status = StatusLive
	a.UpdatedAt = time.Now()
}

// End closes the auction permanently.
func (a *Auction) End() {
	now := time.Now()
	a.Status = StatusEnded
	a.EndedAt = &now
	a.UpdatedAt = now
}
