package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/domain/team"
	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// TeamRepository stores teams and their acquisitions in Postgres.
type TeamRepository struct {
	db *sql.DB
}

func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `id, auction_id, name, short_code, starting_budget,
	remaining_budget, lots_won, created_at, updated_at`

// Create inserts a new team.
func (r *TeamRepository) Create(ctx context.Context, t *team.Team) error {
	query := `
		INSERT INTO teams (id, auction_id, name, short_code, starting_budget,
			remaining_budget, lots_won, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.AuctionID, t.Name, t.ShortCode,
		t.StartingBudget.Amount(), t.RemainingBudget.Amount(), t.LotsWon,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return errors.NewPersistenceError("failed to create team").WithCause(err)
	}
	return nil
}

// GetByID retrieves a team by ID.
func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*team.Team, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)

	t, err := scanTeam(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrTeamNotFound
		}
		return nil, errors.NewPersistenceError("failed to get team").WithCause(err)
	}
	return t, nil
}

// ListByAuction returns all teams registered for an auction.
func (r *TeamRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*team.Team, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE auction_id = $1 ORDER BY short_code`, auctionID)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to list teams").WithCause(err)
	}
	defer rows.Close()

	var teams []*team.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, errors.NewPersistenceError("failed to scan team").WithCause(err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("failed to iterate teams").WithCause(err)
	}
	return teams, nil
}

// UpdateBudget persists the post-finalize budget and acquisition count.
func (r *TeamRepository) UpdateBudget(ctx context.Context, id uuid.UUID, remaining values.Money, lotsWon int) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE teams SET remaining_budget = $2, lots_won = $3, updated_at = $4 WHERE id = $1`,
		id, remaining.Amount(), lotsWon, time.Now())
	if err != nil {
		return errors.NewPersistenceError("failed to update team budget").WithCause(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.ErrTeamNotFound
	}
	return nil
}

// AppendAcquiredPlayer records a won lot on the team's roster.
func (r *TeamRepository) AppendAcquiredPlayer(ctx context.Context, teamID, lotID uuid.UUID, price values.Money) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO acquisitions (id, team_id, lot_id, price, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), teamID, lotID, price.Amount(), time.Now())
	if err != nil {
		return errors.NewPersistenceError("failed to record acquisition").WithCause(err)
	}
	return nil
}

func scanTeam(row rowScanner) (*team.Team, error) {
	var t team.Team
	err := row.Scan(&t.ID, &t.AuctionID, &t.Name, &t.ShortCode,
		&t.StartingBudget, &t.RemainingBudget, &t.LotsWon,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
