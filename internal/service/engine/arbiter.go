package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/bid"
	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// SubmitBid validates and records a bid. The whole check-and-accept runs
// under the auction's session lock, so concurrent bidders are linearized and
// exactly one of two equal racing bids wins on arrival order.
func (e *Engine) SubmitBid(ctx context.Context, auctionID, lotID, teamID uuid.UUID, amount values.Money) (*bid.Bid, error) {
	sess := e.store.Get(auctionID)
	if sess == nil {
		return nil, errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.auction.Status != auction.StatusLive {
		e.metrics.RecordBidRejected(errors.Code(errors.ErrAuctionNotLive))
		return nil, errors.ErrAuctionNotLive
	}
	if sess.currentLot == nil || sess.currentLot.ID != lotID {
		e.metrics.RecordBidRejected(errors.Code(errors.ErrStaleLot))
		return nil, errors.ErrStaleLot
	}

	minimum, err := e.minimumBid(sess)
	if err != nil {
		return nil, errors.NewInternalError("compute minimum bid").WithCause(err)
	}
	if amount.LessThan(minimum) {
		e.metrics.RecordBidRejected(errors.Code(errors.ErrBidBelowMinimum))
		return nil, errors.NewValidationError("BID_BELOW_MINIMUM", "Bid amount is below the minimum acceptable amount").
			WithDetails(map[string]interface{}{
				"minimum": minimum.String(),
				"amount":  amount.String(),
			})
	}

	t, ok := sess.teams[teamID]
	if !ok {
		e.metrics.RecordBidRejected(errors.Code(errors.ErrTeamNotFound))
		return nil, errors.ErrTeamNotFound
	}
	if !t.CanAfford(amount) {
		e.metrics.RecordBidRejected(errors.Code(errors.ErrInsufficientBudget))
		return nil, errors.NewValidationError("INSUFFICIENT_BUDGET", "Team budget cannot cover the bid amount").
			WithDetails(map[string]interface{}{
				"remaining_budget": t.RemainingBudget.String(),
				"amount":           amount.String(),
			})
	}

	newBid := bid.NewBid(auctionID, lotID, teamID, amount, sess.nextBidSeq())
	if err := e.bidRepo.Create(ctx, newBid); err != nil {
		sess.bidSeq--
		return nil, errors.NewPersistenceError("record bid").WithCause(err)
	}

	if prev := sess.highBid; prev != nil {
		prev.Supersede()
		// The durable outcome tag is record keeping only; the standing
		// high bid in the session is authoritative, so a failed update
		// is logged and reconciled by the next finalize.
		if err := e.bidRepo.UpdateOutcome(ctx, prev.ID, bid.OutcomeSuperseded); err != nil {
			e.logger.Warn("mark superseded bid failed",
				zap.String("bid_id", prev.ID.String()),
				zap.Error(err))
		}
	}
	sess.highBid = newBid

	e.countdown.Reset(auctionID, lotID, sess.auction.CountdownSeconds)
	e.metrics.RecordCountdownReset(auctionID)
	e.metrics.RecordBidAccepted(auctionID, amount.Float64())

	e.broadcaster.Broadcast(auctionID, NewEvent(EventBidAccepted, auctionID, BidAcceptedPayload{
		BidID:            newBid.ID,
		LotID:            lotID,
		TeamID:           teamID,
		TeamName:         t.Name,
		Amount:           amount.String(),
		Sequence:         newBid.Sequence,
		CountdownSeconds: sess.auction.CountdownSeconds,
	}))

	e.logger.Info("bid accepted",
		zap.String("auction_id", auctionID.String()),
		zap.String("lot_id", lotID.String()),
		zap.String("team_id", teamID.String()),
		zap.String("amount", amount.String()),
		zap.Int("sequence", newBid.Sequence))

	return newBid, nil
}

// minimumBid is the base price for the first bid, then high bid plus the
// auction increment.
func (e *Engine) minimumBid(sess *Session) (values.Money, error) {
	if sess.highBid == nil {
		return sess.currentLot.BasePrice, nil
	}
	return sess.highBid.Amount.Add(sess.auction.BidIncrement)
}
