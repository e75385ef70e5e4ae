package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/errors"
)

// AuctionRepository stores auctions in Postgres.
type AuctionRepository struct {
	db *sql.DB
}

func NewAuctionRepository(db *sql.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

// Create inserts a new auction.
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (id, name, status, access_code, bid_increment, countdown_seconds,
			started_at, ended_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		a.ID, a.Name, a.Status.String(), a.AccessCode,
		a.BidIncrement.Amount(), a.CountdownSeconds,
		a.StartedAt, a.EndedAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return errors.NewPersistenceError("failed to create auction").WithCause(err)
	}
	return nil
}

// GetByID retrieves an auction by ID.
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `
		SELECT id, name, status, access_code, bid_increment, countdown_seconds,
			started_at, ended_at, created_at, updated_at
		FROM auctions WHERE id = $1`

	row := conn(ctx, r.db).QueryRowContext(ctx, query, id)
	a, err := scanAuction(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrAuctionNotFound
		}
		return nil, errors.NewPersistenceError("failed to get auction").WithCause(err)
	}
	return a, nil
}

// UpdateStatus persists an auction status transition, stamping started_at on
// the first move to live and ended_at on the move to ended.
func (r *AuctionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status auction.Status) error {
	query := `
		UPDATE auctions SET
			status = $2,
			started_at = CASE WHEN $2 = 'live' AND started_at IS NULL THEN $3 ELSE started_at END,
			ended_at = CASE WHEN $2 = 'ended' THEN $3 ELSE ended_at END,
			updated_at = $3
		WHERE id = $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, status.String(), time.Now())
	if err != nil {
		return errors.NewPersistenceError("failed to update auction status").WithCause(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.ErrAuctionNotFound
	}
	return nil
}

func scanAuction(row *sql.Row) (*auction.Auction, error) {
	var (
		a      auction.Auction
		status string
	)
	err := row.Scan(&a.ID, &a.Name, &status, &a.AccessCode, &a.BidIncrement,
		&a.CountdownSeconds, &a.StartedAt, &a.EndedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = auction.ParseStatus(status)
	return &a, nil
}
