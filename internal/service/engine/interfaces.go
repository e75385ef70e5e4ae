package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/bid"
	"github.com/arenabid/live-auction-backend/internal/domain/lot"
	"github.com/arenabid/live-auction-backend/internal/domain/team"
	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// AuctionRepository defines the interface for auction storage
type AuctionRepository interface {
	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	// UpdateStatus persists an auction status transition
	UpdateStatus(ctx context.Context, id uuid.UUID, status auction.Status) error
}

// LotRepository defines the interface for lot storage
type LotRepository interface {
	// GetByID retrieves a lot by ID
	GetByID(ctx context.Context, id uuid.UUID) (*lot.Lot, error)
	// ListByAuction returns all lots for an auction in sequence order
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*lot.Lot, error)
	// UpdateStatus persists a lot transition atomically. Final price and
	// winner are set only on the sold transition.
	UpdateStatus(ctx context.Context, id uuid.UUID, status lot.Status, finalPrice *values.Money, winningTeamID *uuid.UUID) error
}

// TeamRepository defines the interface for team storage
type TeamRepository interface {
	// GetByID retrieves a team by ID
	GetByID(ctx context.Context, id uuid.UUID) (*team.Team, error)
	// ListByAuction returns all teams registered for an auction
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*team.Team, error)
	// UpdateBudget persists the post-finalize budget and acquisition count
	UpdateBudget(ctx context.Context, id uuid.UUID, remaining values.Money, lotsWon int) error
	// AppendAcquiredPlayer records a won lot on the team's roster
	AppendAcquiredPlayer(ctx context.Context, teamID, lotID uuid.UUID, price values.Money) error
}

// BidRepository defines the interface for bid storage
type BidRepository interface {
	// Create stores a new bid
	Create(ctx context.Context, b *bid.Bid) error
	// UpdateOutcome persists a bid outcome transition
	UpdateOutcome(ctx context.Context, id uuid.UUID, outcome bid.Outcome) error
	// ListByLot returns all bids for a lot in sequence order
	ListByLot(ctx context.Context, lotID uuid.UUID) ([]*bid.Bid, error)
}

// TxManager runs a function inside a single database transaction. Repository
// methods invoked with the context it passes to fn join that transaction, so
// the writes of a lot sale land or roll back together.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Broadcaster delivers room-scoped events to connected observers. Delivery is
// best-effort and must never block the caller.
type Broadcaster interface {
	Broadcast(auctionID uuid.UUID, event Event)
}

// MetricsCollector defines the interface for engine metrics
type MetricsCollector interface {
	// RecordBidAccepted records an accepted bid amount
	RecordBidAccepted(auctionID uuid.UUID, amount float64)
	// RecordBidRejected records a rejection by error code
	RecordBidRejected(code string)
	// RecordLotFinalized records a lot outcome and its time on the block
	RecordLotFinalized(status string, price float64, duration time.Duration)
	// RecordCountdownReset records a countdown reset after a bid
	RecordCountdownReset(auctionID uuid.UUID)
	// SetActiveAuctions records the number of live sessions
	SetActiveAuctions(n int)
}
