package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/bid"
	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/domain/lot"
	"github.com/arenabid/live-auction-backend/internal/domain/team"
	"github.com/arenabid/live-auction-backend/internal/domain/values"
	"github.com/arenabid/live-auction-backend/internal/service/engine"
	"github.com/arenabid/live-auction-backend/internal/testutil/fixtures"
)

func TestStartAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("pending auction goes live with a session", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		tm := fixtures.NewTeamBuilder(a).Build(t)
		h.startLiveAuction(t, a, []*team.Team{tm})

		snap, err := h.engine.GetSnapshot(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "live", snap.Status)
		require.Len(t, snap.Teams, 1)
		assert.Equal(t, tm.ID, snap.Teams[0].TeamID)
	})

	t.Run("starting twice conflicts", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		h.startLiveAuction(t, a, nil)

		err := h.engine.StartAuction(ctx, a.ID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeStateConflict))
	})

	t.Run("concurrent starts admit exactly one session", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)

		// Each starter reads its own copy of the pending record, as two
		// processes racing through the repository would.
		const starters = 8
		for i := 0; i < starters; i++ {
			pending := *a
			h.auctionRepo.On("GetByID", mock.Anything, a.ID).Return(&pending, nil).Once()
		}
		h.auctionRepo.On("UpdateStatus", mock.Anything, a.ID, auction.StatusLive).Return(nil)
		h.teamRepo.On("ListByAuction", mock.Anything, a.ID).Return(nil, nil)

		var wg sync.WaitGroup
		results := make(chan error, starters)
		for i := 0; i < starters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- h.engine.StartAuction(ctx, a.ID)
			}()
		}
		wg.Wait()
		close(results)

		var started int
		for err := range results {
			if err == nil {
				started++
				continue
			}
			assert.True(t, errors.IsType(err, errors.ErrorTypeStateConflict))
		}
		assert.Equal(t, 1, started)

		snap, err := h.engine.GetSnapshot(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "live", snap.Status)
	})

	t.Run("ended auction cannot be restarted", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		a.Start()
		a.End()
		h.auctionRepo.On("GetByID", mock.Anything, a.ID).Return(a, nil).Once()

		err := h.engine.StartAuction(ctx, a.ID)
		require.Error(t, err)
		assert.Equal(t, "AUCTION_ENDED", errors.Code(err))
	})
}

func TestPutOnBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("opens the lot and broadcasts", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().WithCountdown(10).Build(t)
		l := fixtures.NewLotBuilder(a).WithPlayer("R. Sharma", "batter").Build(t)
		h.startLiveAuction(t, a, nil)
		h.openLot(t, a, l)

		assert.Equal(t, lot.StatusOnBlock, l.Status)
		assert.Equal(t, 10, h.engine.CountdownRemaining(a.ID))

		opened := h.broadcaster.EventsOfType(engine.EventLotOpen)
		require.Len(t, opened, 1)
		payload := opened[0].Payload.(engine.LotOpenPayload)
		assert.Equal(t, "R. Sharma", payload.PlayerName)
		assert.Equal(t, 10, payload.CountdownSeconds)
	})

	t.Run("rejects a second lot while one is on the block", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		first := fixtures.NewLotBuilder(a).Build(t)
		second := fixtures.NewLotBuilder(a).WithSequence(2).Build(t)
		h.startLiveAuction(t, a, nil)
		h.openLot(t, a, first)

		err := h.engine.PutOnBlock(ctx, a.ID, second.ID)
		require.Error(t, err)
		assert.Equal(t, "LOT_ALREADY_ON_BLOCK", errors.Code(err))
	})

	t.Run("rejects a lot that was already offered", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		l := fixtures.NewLotBuilder(a).Build(t)
		require.NoError(t, l.PutOnBlock())
		require.NoError(t, l.MarkUnsold())
		h.startLiveAuction(t, a, nil)
		h.lotRepo.On("GetByID", mock.Anything, l.ID).Return(l, nil).Once()

		err := h.engine.PutOnBlock(ctx, a.ID, l.ID)
		require.Error(t, err)
		assert.Equal(t, "LOT_NOT_PENDING", errors.Code(err))
	})

	t.Run("rejects a lot belonging to another auction", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		other := fixtures.NewAuctionBuilder().Build(t)
		l := fixtures.NewLotBuilder(other).Build(t)
		h.startLiveAuction(t, a, nil)
		h.lotRepo.On("GetByID", mock.Anything, l.ID).Return(l, nil).Once()

		err := h.engine.PutOnBlock(ctx, a.ID, l.ID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	})
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("no bids closes the lot unsold", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		l := fixtures.NewLotBuilder(a).Build(t)
		h.startLiveAuction(t, a, nil)
		h.openLot(t, a, l)
		h.lotRepo.On("UpdateStatus", mock.Anything, l.ID, lot.StatusUnsold, (*values.Money)(nil), (*uuid.UUID)(nil)).Return(nil).Once()

		require.NoError(t, h.engine.Finalize(ctx, a.ID, l.ID))

		assert.Equal(t, lot.StatusUnsold, l.Status)
		assert.Len(t, h.broadcaster.EventsOfType(engine.EventLotUnsold), 1)
		assert.Empty(t, h.broadcaster.EventsOfType(engine.EventLotSold))

		snap, err := h.engine.GetSnapshot(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, snap.CurrentLot)
	})

	t.Run("standing high bid wins the lot", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().WithIncrement(5).Build(t)
		tm := fixtures.NewTeamBuilder(a).WithBudget(1000).Build(t)
		l := fixtures.NewLotBuilder(a).WithBasePrice(100).Build(t)
		h.startLiveAuction(t, a, []*team.Team{tm})
		h.openLot(t, a, l)
		h.bidRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		winning, err := h.engine.SubmitBid(ctx, a.ID, l.ID, tm.ID, fixtures.Money(t, 150))
		require.NoError(t, err)

		price := fixtures.Money(t, 150)
		h.lotRepo.On("UpdateStatus", mock.Anything, l.ID, lot.StatusSold, &price, &tm.ID).Return(nil).Once()
		h.teamRepo.On("UpdateBudget", mock.Anything, tm.ID, fixtures.Money(t, 850), 1).Return(nil).Once()
		h.teamRepo.On("AppendAcquiredPlayer", mock.Anything, tm.ID, l.ID, price).Return(nil).Once()
		h.bidRepo.On("UpdateOutcome", mock.Anything, winning.ID, bid.OutcomeWon).Return(nil).Once()

		require.NoError(t, h.engine.Finalize(ctx, a.ID, l.ID))

		assert.Equal(t, lot.StatusSold, l.Status)
		require.NotNil(t, l.WinningTeamID)
		assert.Equal(t, tm.ID, *l.WinningTeamID)
		assert.Equal(t, fixtures.Money(t, 850), tm.RemainingBudget)
		assert.Equal(t, 1, tm.LotsWon)
		assert.Equal(t, bid.OutcomeWon, winning.Outcome)

		assert.Len(t, h.broadcaster.EventsOfType(engine.EventLotSold), 1)
		budgets := h.broadcaster.EventsOfType(engine.EventTeamBudgetUpdated)
		require.Len(t, budgets, 1)
		payload := budgets[0].Payload.(engine.TeamBudgetUpdatedPayload)
		assert.Equal(t, "850.00 USD", payload.RemainingBudget)

		h.lotRepo.AssertExpectations(t)
		h.teamRepo.AssertExpectations(t)
	})

	t.Run("second finalize is a stale no-op", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		tm := fixtures.NewTeamBuilder(a).WithBudget(1000).Build(t)
		l := fixtures.NewLotBuilder(a).WithBasePrice(100).Build(t)
		h.startLiveAuction(t, a, []*team.Team{tm})
		h.openLot(t, a, l)
		h.bidRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		h.bidRepo.On("UpdateOutcome", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		h.lotRepo.On("UpdateStatus", mock.Anything, l.ID, lot.StatusSold, mock.Anything, mock.Anything).Return(nil).Once()
		h.teamRepo.On("UpdateBudget", mock.Anything, tm.ID, mock.Anything, mock.Anything).Return(nil).Once()
		h.teamRepo.On("AppendAcquiredPlayer", mock.Anything, tm.ID, l.ID, mock.Anything).Return(nil).Once()

		_, err := h.engine.SubmitBid(ctx, a.ID, l.ID, tm.ID, fixtures.Money(t, 200))
		require.NoError(t, err)
		require.NoError(t, h.engine.Finalize(ctx, a.ID, l.ID))

		err = h.engine.Finalize(ctx, a.ID, l.ID)
		require.Error(t, err)
		assert.Equal(t, "STALE_LOT", errors.Code(err))

		// The budget was debited exactly once.
		assert.Equal(t, fixtures.Money(t, 800), tm.RemainingBudget)
		assert.Equal(t, 1, tm.LotsWon)
	})

	t.Run("persistence failure keeps the lot on the block", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		tm := fixtures.NewTeamBuilder(a).WithBudget(1000).Build(t)
		l := fixtures.NewLotBuilder(a).WithBasePrice(100).Build(t)
		h.startLiveAuction(t, a, []*team.Team{tm})
		h.openLot(t, a, l)
		h.bidRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := h.engine.SubmitBid(ctx, a.ID, l.ID, tm.ID, fixtures.Money(t, 100))
		require.NoError(t, err)

		// Every attempt of every retry fails.
		h.lotRepo.On("UpdateStatus", mock.Anything, l.ID, lot.StatusSold, mock.Anything, mock.Anything).Return(assert.AnError).Times(3)

		err = h.engine.Finalize(ctx, a.ID, l.ID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypePersistence))
		assert.True(t, errors.IsRetryable(err))

		// Nothing was charged and the lot is still current, so finalize
		// can be retried.
		assert.Equal(t, lot.StatusOnBlock, l.Status)
		assert.Equal(t, fixtures.Money(t, 1000), tm.RemainingBudget)

		h.lotRepo.On("UpdateStatus", mock.Anything, l.ID, lot.StatusSold, mock.Anything, mock.Anything).Return(nil).Once()
		h.teamRepo.On("UpdateBudget", mock.Anything, tm.ID, mock.Anything, mock.Anything).Return(nil).Once()
		h.teamRepo.On("AppendAcquiredPlayer", mock.Anything, tm.ID, l.ID, mock.Anything).Return(nil).Once()
		h.bidRepo.On("UpdateOutcome", mock.Anything, mock.Anything, bid.OutcomeWon).Return(nil).Once()

		require.NoError(t, h.engine.Finalize(ctx, a.ID, l.ID))
		assert.Equal(t, lot.StatusSold, l.Status)
	})
}

func TestCountdownExpiryFinalizesLot(t *testing.T) {
	h := newTestHarness(t)
	a := fixtures.NewAuctionBuilder().WithCountdown(2).Build(t)
	l := fixtures.NewLotBuilder(a).Build(t)
	h.startLiveAuction(t, a, nil)
	h.openLot(t, a, l)
	h.lotRepo.On("UpdateStatus", mock.Anything, l.ID, lot.StatusUnsold, (*values.Money)(nil), (*uuid.UUID)(nil)).Return(nil).Once()

	advance(t, h.clock)
	advance(t, h.clock)

	require.Eventually(t, func() bool {
		return len(h.broadcaster.EventsOfType(engine.EventLotUnsold)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	snap, err := h.engine.GetSnapshot(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, snap.CurrentLot)
}

func TestPauseAndResume(t *testing.T) {
	ctx := context.Background()
	h := newTestHarness(t)
	a := fixtures.NewAuctionBuilder().WithCountdown(10).Build(t)
	tm := fixtures.NewTeamBuilder(a).Build(t)
	l := fixtures.NewLotBuilder(a).WithBasePrice(100).Build(t)
	h.startLiveAuction(t, a, []*team.Team{tm})
	h.openLot(t, a, l)

	advance(t, h.clock)
	require.Eventually(t, func() bool {
		return h.engine.CountdownRemaining(a.ID) == 9
	}, 2*time.Second, 10*time.Millisecond)

	h.auctionRepo.On("UpdateStatus", mock.Anything, a.ID, auction.StatusPaused).Return(nil).Once()
	require.NoError(t, h.engine.PauseAuction(ctx, a.ID))

	snap, err := h.engine.GetSnapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "paused", snap.Status)
	assert.Equal(t, 9, snap.RemainingSeconds)

	// Pausing twice conflicts.
	err = h.engine.PauseAuction(ctx, a.ID)
	require.Error(t, err)
	assert.Equal(t, "AUCTION_NOT_LIVE", errors.Code(err))

	h.auctionRepo.On("UpdateStatus", mock.Anything, a.ID, auction.StatusLive).Return(nil).Once()
	require.NoError(t, h.engine.ResumeAuction(ctx, a.ID))

	// The countdown resumes from where the pause froze it.
	assert.Equal(t, 9, h.engine.CountdownRemaining(a.ID))

	h.bidRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	_, err = h.engine.SubmitBid(ctx, a.ID, l.ID, tm.ID, fixtures.Money(t, 100))
	require.NoError(t, err)
}

func TestEndAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("lot on the block returns to pending", func(t *testing.T) {
		h := newTestHarness(t)
		a := fixtures.NewAuctionBuilder().Build(t)
		tm := fixtures.NewTeamBuilder(a).WithBudget(1000).Build(t)
		l := fixtures.NewLotBuilder(a).WithBasePrice(100).Build(t)
		h.startLiveAuction(t, a, []*team.Team{tm})
		h.openLot(t, a, l)
		h.bidRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := h.engine.SubmitBid(ctx, a.ID, l.ID, tm.ID, fixtures.Money(t, 100))
		require.NoError(t, err)

		h.lotRepo.On("UpdateStatus", mock.Anything, l.ID, lot.StatusPending, (*values.Money)(nil), (*uuid.UUID)(nil)).Return(nil).Once()
		h.auctionRepo.On("UpdateStatus", mock.Anything, a.ID, auction.StatusEnded).Return(nil).Once()

		require.NoError(t, h.engine.EndAuction(ctx, a.ID))

		// The lot is never auto-settled and the team is never charged.
		assert.Equal(t, lot.StatusPending, l.Status)
		assert.Nil(t, l.WinningTeamID)
		assert.Equal(t, fixtures.Money(t, 1000), tm.RemainingBudget)

		assert.Len(t, h.broadcaster.EventsOfType(engine.EventAuctionEnded), 1)
		assert.Empty(t, h.broadcaster.EventsOfType(engine.EventLotSold))

		_, err = h.engine.GetSnapshot(ctx, a.ID)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	})

	t.Run("ending an unknown session fails", func(t *testing.T) {
		h := newTestHarness(t)

		err := h.engine.EndAuction(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	})
}
