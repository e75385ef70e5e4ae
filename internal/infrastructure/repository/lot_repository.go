package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/domain/lot"
	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// LotRepository stores lots in Postgres.
type LotRepository struct {
	db *sql.DB
}

func NewLotRepository(db *sql.DB) *LotRepository {
	return &LotRepository{db: db}
}

const lotColumns = `id, auction_id, player_name, role, base_price, status,
	winning_team_id, final_price, sequence, created_at, updated_at`

// Create inserts a new lot.
func (r *LotRepository) Create(ctx context.Context, l *lot.Lot) error {
	query := `
		INSERT INTO lots (id, auction_id, player_name, role, base_price, status,
			winning_team_id, final_price, sequence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var finalPrice any
	if l.FinalPrice != nil {
		finalPrice = l.FinalPrice.Amount()
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		l.ID, l.AuctionID, l.PlayerName, l.Role, l.BasePrice.Amount(),
		l.Status.String(), l.WinningTeamID, finalPrice, l.Sequence,
		l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return errors.NewPersistenceError("failed to create lot").WithCause(err)
	}
	return nil
}

// GetByID retrieves a lot by ID.
func (r *LotRepository) GetByID(ctx context.Context, id uuid.UUID) (*lot.Lot, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+lotColumns+` FROM lots WHERE id = $1`, id)

	l, err := scanLot(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrLotNotFound
		}
		return nil, errors.NewPersistenceError("failed to get lot").WithCause(err)
	}
	return l, nil
}

// ListByAuction returns all lots for an auction in sequence order.
func (r *LotRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*lot.Lot, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+lotColumns+` FROM lots WHERE auction_id = $1 ORDER BY sequence`, auctionID)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to list lots").WithCause(err)
	}
	defer rows.Close()

	var lots []*lot.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, errors.NewPersistenceError("failed to scan lot").WithCause(err)
		}
		lots = append(lots, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("failed to iterate lots").WithCause(err)
	}
	return lots, nil
}

// UpdateStatus persists a lot transition. Final price and winner are written
// only when provided, on the sold transition.
func (r *LotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status lot.Status, finalPrice *values.Money, winningTeamID *uuid.UUID) error {
	query := `
		UPDATE lots SET
			status = $2,
			final_price = $3,
			winning_team_id = $4,
			updated_at = $5
		WHERE id = $1`

	var price any
	if finalPrice != nil {
		price = finalPrice.Amount()
	}
	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		id, status.String(), price, winningTeamID, time.Now())
	if err != nil {
		return errors.NewPersistenceError("failed to update lot status").WithCause(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.ErrLotNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (*lot.Lot, error) {
	var (
		l          lot.Lot
		status     string
		winner     uuid.NullUUID
		finalPrice sql.NullString
	)
	err := row.Scan(&l.ID, &l.AuctionID, &l.PlayerName, &l.Role, &l.BasePrice,
		&status, &winner, &finalPrice, &l.Sequence, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = lot.ParseStatus(status)
	if winner.Valid {
		id := winner.UUID
		l.WinningTeamID = &id
	}
	if finalPrice.Valid {
		price, err := values.NewMoneyFromString(finalPrice.String, values.USD)
		if err != nil {
			return nil, err
		}
		l.FinalPrice = &price
	}
	return &l, nil
}
