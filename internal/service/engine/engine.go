package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/errors"
)

// Config tunes engine behavior.
type Config struct {
	// Attempts for the finalize persistence write before giving up.
	FinalizeRetryAttempts int
	// Base delay between finalize retries, doubled each attempt.
	FinalizeRetryDelay time.Duration
}

// DefaultConfig returns production retry settings.
func DefaultConfig() Config {
	return Config{
		FinalizeRetryAttempts: 3,
		FinalizeRetryDelay:    100 * time.Millisecond,
	}
}

// Engine is the authoritative auction state machine. One process owns an
// auction at a time; every state transition for an auction runs under that
// auction's session lock.
type Engine struct {
	cfg Config

	store     *SessionStore
	countdown *CountdownDriver

	auctionRepo AuctionRepository
	lotRepo     LotRepository
	teamRepo    TeamRepository
	bidRepo     BidRepository
	txManager   TxManager

	broadcaster Broadcaster
	metrics     MetricsCollector
	clock       clockwork.Clock
	logger      *zap.Logger
}

// New wires an engine. The countdown driver is owned by the engine so expiry
// lands back in the same serialized critical section as bids.
func New(
	cfg Config,
	auctionRepo AuctionRepository,
	lotRepo LotRepository,
	teamRepo TeamRepository,
	bidRepo BidRepository,
	txManager TxManager,
	broadcaster Broadcaster,
	metrics MetricsCollector,
	clock clockwork.Clock,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		cfg:         cfg,
		store:       NewSessionStore(),
		auctionRepo: auctionRepo,
		lotRepo:     lotRepo,
		teamRepo:    teamRepo,
		bidRepo:     bidRepo,
		txManager:   txManager,
		broadcaster: broadcaster,
		metrics:     metrics,
		clock:       clock,
		logger:      logger,
	}
	e.countdown = NewCountdownDriver(clock, e.handleTick, e.handleExpiry, logger)
	return e
}

// Close stops every countdown. Sessions are not persisted; a restart requires
// the operator to start auctions again.
func (e *Engine) Close() {
	e.countdown.StopAll()
}

// VerifyAccess checks an auction's room access code. Works for live sessions
// and, for auctions not yet started, falls back to the stored record.
func (e *Engine) VerifyAccess(ctx context.Context, auctionID uuid.UUID, accessCode string) error {
	if sess := e.store.Get(auctionID); sess != nil {
		sess.mu.Lock()
		code := sess.auction.AccessCode
		sess.mu.Unlock()
		if code != accessCode {
			return errors.ErrInvalidAccessCode
		}
		return nil
	}

	a, err := e.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return errors.ErrAuctionNotFound
	}
	if a.AccessCode != accessCode {
		return errors.ErrInvalidAccessCode
	}
	return nil
}

// GetSnapshot returns the full room state for a joining connection. The state
// is read under the session lock so the snapshot is internally consistent.
func (e *Engine) GetSnapshot(ctx context.Context, auctionID uuid.UUID) (*Snapshot, error) {
	sess := e.store.Get(auctionID)
	if sess == nil {
		return nil, errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap := &Snapshot{
		AuctionID:        sess.auction.ID,
		AuctionName:      sess.auction.Name,
		Status:           sess.auction.Status.String(),
		BidIncrement:     sess.auction.BidIncrement.String(),
		RemainingSeconds: e.countdown.Remaining(auctionID),
		Teams:            sess.snapshotTeams(),
	}
	if sess.auction.Status == auction.StatusPaused && sess.currentLot != nil {
		snap.RemainingSeconds = sess.pausedRemaining
	}
	if sess.currentLot != nil {
		snap.CurrentLot = &SnapshotLot{
			LotID:      sess.currentLot.ID,
			PlayerName: sess.currentLot.PlayerName,
			Role:       sess.currentLot.Role,
			BasePrice:  sess.currentLot.BasePrice.String(),
			Sequence:   sess.currentLot.Sequence,
		}
	}
	if sess.highBid != nil {
		snap.HighBid = &SnapshotBid{
			BidID:    sess.highBid.ID,
			TeamID:   sess.highBid.TeamID,
			TeamName: e.teamName(sess, sess.highBid.TeamID),
			Amount:   sess.highBid.Amount.String(),
			Sequence: sess.highBid.Sequence,
		}
	}
	return snap, nil
}

// CountdownRemaining returns the seconds left on an auction's countdown,
// zero when none is running.
func (e *Engine) CountdownRemaining(auctionID uuid.UUID) int {
	return e.countdown.Remaining(auctionID)
}

func (e *Engine) teamName(sess *Session, teamID uuid.UUID) string {
	if t, ok := sess.teams[teamID]; ok {
		return t.Name
	}
	return ""
}

func (e *Engine) handleTick(auctionID, lotID uuid.UUID, remaining int) {
	e.broadcaster.Broadcast(auctionID, NewEvent(EventTick, auctionID, TickPayload{
		LotID:            lotID,
		RemainingSeconds: remaining,
	}))
}

// handleExpiry runs on the countdown goroutine. Finalize re-checks the lot
// under the session lock, so an expiry that lost a race with an admin close
// or an auction end resolves as a clean no-op.
func (e *Engine) handleExpiry(auctionID, lotID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Finalize(ctx, auctionID, lotID); err != nil {
		if errors.IsType(err, errors.ErrorTypeStateConflict) || errors.IsType(err, errors.ErrorTypeNotFound) {
			e.logger.Debug("countdown expiry superseded",
				zap.String("auction_id", auctionID.String()),
				zap.String("lot_id", lotID.String()),
				zap.Error(err))
			return
		}
		e.logger.Error("finalize after countdown expiry failed",
			zap.String("auction_id", auctionID.String()),
			zap.String("lot_id", lotID.String()),
			zap.Error(err))
	}
}
