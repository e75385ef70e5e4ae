package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/bid"
	"github.com/arenabid/live-auction-backend/internal/domain/errors"
)

// BidRepository stores bids in Postgres. Bids are append-mostly; only the
// outcome column changes after insert.
type BidRepository struct {
	db *sql.DB
}

func NewBidRepository(db *sql.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create stores a new bid.
func (r *BidRepository) Create(ctx context.Context, b *bid.Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, lot_id, team_id, amount, sequence, outcome, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.AuctionID, b.LotID, b.TeamID,
		b.Amount.Amount(), b.Sequence, b.Outcome.String(), b.PlacedAt)
	if err != nil {
		return errors.NewPersistenceError("failed to create bid").WithCause(err)
	}
	return nil
}

// UpdateOutcome persists a bid outcome transition.
func (r *BidRepository) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome bid.Outcome) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE bids SET outcome = $2 WHERE id = $1`, id, outcome.String())
	if err != nil {
		return errors.NewPersistenceError("failed to update bid outcome").WithCause(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("bid")
	}
	return nil
}

// ListByLot returns all bids for a lot in sequence order.
func (r *BidRepository) ListByLot(ctx context.Context, lotID uuid.UUID) ([]*bid.Bid, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, auction_id, lot_id, team_id, amount, sequence, outcome, placed_at
		FROM bids WHERE lot_id = $1 ORDER BY sequence`, lotID)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to list bids").WithCause(err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		var (
			b       bid.Bid
			outcome string
		)
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.LotID, &b.TeamID,
			&b.Amount, &b.Sequence, &outcome, &b.PlacedAt); err != nil {
			return nil, errors.NewPersistenceError("failed to scan bid").WithCause(err)
		}
		b.Outcome = bid.ParseOutcome(outcome)
		bids = append(bids, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("failed to iterate bids").WithCause(err)
	}
	return bids, nil
}
