package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/bid"
	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/domain/lot"
)

// StartAuction moves a pending auction to live and registers its session.
// Teams are loaded into the session budget cache once, here; from this point
// the session is the authority on budgets until the auction ends.
func (e *Engine) StartAuction(ctx context.Context, auctionID uuid.UUID) error {
	if e.store.Get(auctionID) != nil {
		return errors.NewStateConflictError("AUCTION_ALREADY_LIVE", "Auction session already exists")
	}

	a, err := e.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return errors.ErrAuctionNotFound
	}
	if a.Status != auction.StatusPending {
		if a.Status == auction.StatusEnded {
			return errors.ErrAuctionAlreadyEnded
		}
		return errors.NewStateConflictError("AUCTION_NOT_PENDING", "Auction has already been started")
	}

	teams, err := e.teamRepo.ListByAuction(ctx, auctionID)
	if err != nil {
		return errors.NewPersistenceError("load teams").WithCause(err)
	}

	a.Start()
	if err := e.auctionRepo.UpdateStatus(ctx, auctionID, auction.StatusLive); err != nil {
		return errors.NewPersistenceError("start auction").WithCause(err)
	}

	// The check at the top is only a fast path; the insert is the decider
	// when two starts race past it.
	if !e.store.PutIfAbsent(auctionID, newSession(a, teams)) {
		return errors.NewStateConflictError("AUCTION_ALREADY_LIVE", "Auction session already exists")
	}
	e.metrics.SetActiveAuctions(e.store.Len())

	e.logger.Info("auction started",
		zap.String("auction_id", auctionID.String()),
		zap.Int("teams", len(teams)))
	return nil
}

// PutOnBlock opens a pending lot for bidding and starts its countdown. Only
// one lot per auction can be on the block.
func (e *Engine) PutOnBlock(ctx context.Context, auctionID, lotID uuid.UUID) error {
	sess := e.store.Get(auctionID)
	if sess == nil {
		return errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.auction.Status != auction.StatusLive {
		return errors.ErrAuctionNotLive
	}
	if sess.currentLot != nil {
		return errors.ErrLotAlreadyOnBlock
	}

	l, err := e.lotRepo.GetByID(ctx, lotID)
	if err != nil {
		return errors.ErrLotNotFound
	}
	if l.AuctionID != auctionID {
		return errors.ErrLotNotFound
	}
	if l.Status != lot.StatusPending {
		return errors.ErrLotNotPending
	}

	if err := e.lotRepo.UpdateStatus(ctx, lotID, lot.StatusOnBlock, nil, nil); err != nil {
		return errors.NewPersistenceError("put lot on block").WithCause(err)
	}
	if err := l.PutOnBlock(); err != nil {
		return errors.NewInternalError("open lot").WithCause(err)
	}

	sess.currentLot = l
	sess.highBid = nil
	sess.bidSeq = 0
	sess.lotOpenedAt = e.clock.Now()

	e.countdown.Start(auctionID, lotID, sess.auction.CountdownSeconds)

	e.broadcaster.Broadcast(auctionID, NewEvent(EventLotOpen, auctionID, LotOpenPayload{
		LotID:            l.ID,
		PlayerName:       l.PlayerName,
		Role:             l.Role,
		BasePrice:        l.BasePrice.String(),
		Sequence:         l.Sequence,
		CountdownSeconds: sess.auction.CountdownSeconds,
	}))

	e.logger.Info("lot on block",
		zap.String("auction_id", auctionID.String()),
		zap.String("lot_id", lotID.String()),
		zap.String("player", l.PlayerName))
	return nil
}

// EndBidding closes the current lot early on an admin's request. It is the
// same finalization the countdown expiry performs.
func (e *Engine) EndBidding(ctx context.Context, auctionID, lotID uuid.UUID) error {
	return e.Finalize(ctx, auctionID, lotID)
}

// Finalize settles a lot: sold to the standing high bid, unsold when there is
// none. Idempotent; a finalize for a lot that is no longer on the block
// returns ErrStaleLot and changes nothing, which makes the countdown-expiry
// versus admin-close race harmless.
func (e *Engine) Finalize(ctx context.Context, auctionID, lotID uuid.UUID) error {
	sess := e.store.Get(auctionID)
	if sess == nil {
		return errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.currentLot == nil || sess.currentLot.ID != lotID {
		return errors.ErrStaleLot
	}

	l := sess.currentLot
	timeOnBlock := e.clock.Since(sess.lotOpenedAt)

	if sess.highBid == nil {
		if err := e.persistWithRetry(ctx, "mark lot unsold", func(ctx context.Context) error {
			return e.lotRepo.UpdateStatus(ctx, lotID, lot.StatusUnsold, nil, nil)
		}); err != nil {
			// The lot stays on the block; the admin can retry.
			return err
		}
		if err := l.MarkUnsold(); err != nil {
			return errors.NewInternalError("mark lot unsold").WithCause(err)
		}

		e.closeLot(sess)
		e.metrics.RecordLotFinalized(lot.StatusUnsold.String(), 0, timeOnBlock)
		e.broadcaster.Broadcast(auctionID, NewEvent(EventLotUnsold, auctionID, LotUnsoldPayload{
			LotID:      l.ID,
			PlayerName: l.PlayerName,
		}))

		e.logger.Info("lot unsold",
			zap.String("auction_id", auctionID.String()),
			zap.String("lot_id", lotID.String()))
		return nil
	}

	winning := sess.highBid
	t, ok := sess.teams[winning.TeamID]
	if !ok {
		return errors.NewInternalError("winning team missing from session")
	}
	price := winning.Amount

	// All durable writes run in one transaction, before any in-memory
	// mutation, so a persistence failure leaves the lot on the block with
	// nothing charged.
	if err := e.persistWithRetry(ctx, "finalize lot sale", func(ctx context.Context) error {
		return e.txManager.WithTx(ctx, func(ctx context.Context) error {
			if err := e.lotRepo.UpdateStatus(ctx, lotID, lot.StatusSold, &price, &winning.TeamID); err != nil {
				return err
			}
			remaining, err := t.RemainingBudget.Sub(price)
			if err != nil {
				return err
			}
			if err := e.teamRepo.UpdateBudget(ctx, t.ID, remaining, t.LotsWon+1); err != nil {
				return err
			}
			if err := e.teamRepo.AppendAcquiredPlayer(ctx, t.ID, lotID, price); err != nil {
				return err
			}
			return e.bidRepo.UpdateOutcome(ctx, winning.ID, bid.OutcomeWon)
		})
	}); err != nil {
		return err
	}

	if err := l.MarkSold(t.ID, price); err != nil {
		return errors.NewInternalError("mark lot sold").WithCause(err)
	}
	if err := t.Debit(price); err != nil {
		// CanAfford held when the bid was accepted and budgets only move
		// at finalization, so this indicates corrupted session state.
		return errors.NewInternalError("debit winning team").WithCause(err)
	}
	winning.MarkWon()

	e.closeLot(sess)
	e.metrics.RecordLotFinalized(lot.StatusSold.String(), price.Float64(), timeOnBlock)

	e.broadcaster.Broadcast(auctionID, NewEvent(EventLotSold, auctionID, LotSoldPayload{
		LotID:      l.ID,
		PlayerName: l.PlayerName,
		TeamID:     t.ID,
		TeamName:   t.Name,
		FinalPrice: price.String(),
	}))
	e.broadcaster.Broadcast(auctionID, NewEvent(EventTeamBudgetUpdated, auctionID, TeamBudgetUpdatedPayload{
		TeamID:          t.ID,
		RemainingBudget: t.RemainingBudget.String(),
		LotsWon:         t.LotsWon,
	}))

	e.logger.Info("lot sold",
		zap.String("auction_id", auctionID.String()),
		zap.String("lot_id", lotID.String()),
		zap.String("team_id", t.ID.String()),
		zap.String("final_price", price.String()))
	return nil
}

// PauseAuction freezes a live auction. The countdown is cancelled and its
// remaining seconds preserved for resume; the current lot and high bid stay.
func (e *Engine) PauseAuction(ctx context.Context, auctionID uuid.UUID) error {
	sess := e.store.Get(auctionID)
	if sess == nil {
		return errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.auction.Status != auction.StatusLive {
		return errors.ErrAuctionNotLive
	}

	sess.pausedRemaining = e.countdown.Stop(auctionID)
	sess.auction.Pause()
	if err := e.auctionRepo.UpdateStatus(ctx, auctionID, auction.StatusPaused); err != nil {
		return errors.NewPersistenceError("pause auction").WithCause(err)
	}

	e.logger.Info("auction paused",
		zap.String("auction_id", auctionID.String()),
		zap.Int("remaining_seconds", sess.pausedRemaining))
	return nil
}

// ResumeAuction returns a paused auction to live, restarting the countdown
// from where the pause froze it.
func (e *Engine) ResumeAuction(ctx context.Context, auctionID uuid.UUID) error {
	sess := e.store.Get(auctionID)
	if sess == nil {
		return errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.auction.Status != auction.StatusPaused {
		return errors.NewStateConflictError("AUCTION_NOT_PAUSED", "Auction is not paused")
	}

	sess.auction.Resume()
	if err := e.auctionRepo.UpdateStatus(ctx, auctionID, auction.StatusLive); err != nil {
		return errors.NewPersistenceError("resume auction").WithCause(err)
	}

	if sess.currentLot != nil && sess.pausedRemaining > 0 {
		e.countdown.Start(auctionID, sess.currentLot.ID, sess.pausedRemaining)
	}
	sess.pausedRemaining = 0

	e.logger.Info("auction resumed", zap.String("auction_id", auctionID.String()))
	return nil
}

// EndAuction closes the auction. A lot still on the block is returned to
// pending, never auto-settled, so an accidental end is recoverable by manual
// reconciliation. The countdown is cancelled before the ended event goes out,
// so no tick follows it.
func (e *Engine) EndAuction(ctx context.Context, auctionID uuid.UUID) error {
	sess := e.store.Get(auctionID)
	if sess == nil {
		return errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.auction.Status == auction.StatusEnded {
		return errors.ErrAuctionAlreadyEnded
	}

	e.countdown.Stop(auctionID)

	if l := sess.currentLot; l != nil {
		if err := e.persistWithRetry(ctx, "return lot to pending", func(ctx context.Context) error {
			return e.lotRepo.UpdateStatus(ctx, l.ID, lot.StatusPending, nil, nil)
		}); err != nil {
			return err
		}
		if err := l.ReturnToPending(); err != nil {
			return errors.NewInternalError("return lot to pending").WithCause(err)
		}
		if sess.highBid != nil {
			e.logger.Warn("auction ended with a standing bid; lot returned to pending",
				zap.String("auction_id", auctionID.String()),
				zap.String("lot_id", l.ID.String()),
				zap.String("bid_id", sess.highBid.ID.String()))
		}
		sess.currentLot = nil
		sess.highBid = nil
	}

	sess.auction.End()
	if err := e.auctionRepo.UpdateStatus(ctx, auctionID, auction.StatusEnded); err != nil {
		return errors.NewPersistenceError("end auction").WithCause(err)
	}

	e.broadcaster.Broadcast(auctionID, NewEvent(EventAuctionEnded, auctionID, AuctionEndedPayload{
		EndedAt: *sess.auction.EndedAt,
	}))

	e.store.Delete(auctionID)
	e.metrics.SetActiveAuctions(e.store.Len())

	e.logger.Info("auction ended", zap.String("auction_id", auctionID.String()))
	return nil
}

// closeLot clears the block and cancels the countdown under the session lock.
func (e *Engine) closeLot(sess *Session) {
	e.countdown.Stop(sess.auction.ID)
	sess.currentLot = nil
	sess.highBid = nil
}

// persistWithRetry runs a durable write with bounded exponential backoff.
// Finalize writes must land or the lot stays on the block, so transient
// database errors get a few chances before surfacing.
func (e *Engine) persistWithRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := e.cfg.FinalizeRetryDelay
	for attempt := 1; attempt <= e.cfg.FinalizeRetryAttempts; attempt++ {
		if err := fn(ctx); err != nil {
			lastErr = err
			e.logger.Warn("persistence attempt failed",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < e.cfg.FinalizeRetryAttempts {
				select {
				case <-ctx.Done():
					return errors.NewPersistenceError(op).WithCause(ctx.Err())
				case <-time.After(delay):
				}
				delay *= 2
			}
			continue
		}
		return nil
	}
	return errors.NewPersistenceError(op).WithCause(lastErr)
}
