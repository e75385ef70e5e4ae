package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/bid"
	"github.com/arenabid/live-auction-backend/internal/domain/lot"
	"github.com/arenabid/live-auction-backend/internal/domain/team"
	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// AuctionRepository mock
type AuctionRepository struct {
	mock.Mock
}

func (m *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auction.Auction), args.Error(1)
}

func (m *AuctionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status auction.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// LotRepository mock
type LotRepository struct {
	mock.Mock
}

func (m *LotRepository) GetByID(ctx context.Context, id uuid.UUID) (*lot.Lot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lot.Lot), args.Error(1)
}

func (m *LotRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*lot.Lot, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*lot.Lot), args.Error(1)
}

func (m *LotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status lot.Status, finalPrice *values.Money, winningTeamID *uuid.UUID) error {
	args := m.Called(ctx, id, status, finalPrice, winningTeamID)
	return args.Error(0)
}

// TeamRepository mock
type TeamRepository struct {
	mock.Mock
}

func (m *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*team.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*team.Team), args.Error(1)
}

func (m *TeamRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*team.Team, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*team.Team), args.Error(1)
}

func (m *TeamRepository) UpdateBudget(ctx context.Context, id uuid.UUID, remaining values.Money, lotsWon int) error {
	args := m.Called(ctx, id, remaining, lotsWon)
	return args.Error(0)
}

func (m *TeamRepository) AppendAcquiredPlayer(ctx context.Context, teamID, lotID uuid.UUID, price values.Money) error {
	args := m.Called(ctx, teamID, lotID, price)
	return args.Error(0)
}

// BidRepository mock
type BidRepository struct {
	mock.Mock
}

func (m *BidRepository) Create(ctx context.Context, b *bid.Bid) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *BidRepository) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome bid.Outcome) error {
	args := m.Called(ctx, id, outcome)
	return args.Error(0)
}

func (m *BidRepository) ListByLot(ctx context.Context, lotID uuid.UUID) ([]*bid.Bid, error) {
	args := m.Called(ctx, lotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bid.Bid), args.Error(1)
}

// TxManager mock runs the function inline, outside any transaction.
type TxManager struct{}

func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
