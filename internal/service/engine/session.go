package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/bid"
	"github.com/arenabid/live-auction-backend/internal/domain/lot"
	"github.com/arenabid/live-auction-backend/internal/domain/team"
)

// Session is the authoritative in-memory state for one live auction. All
// mutation happens under mu; the holder of mu is the single writer for the
// auction, so reads and transitions inside the lock are consistent.
type Session struct {
	mu sync.Mutex

	auction *auction.Auction

	// Lot currently on the block, nil between lots.
	currentLot *lot.Lot

	// Standing high bid for the current lot, nil until the first bid.
	highBid *bid.Bid

	// Bid sequence counter for the current lot, reset when a lot opens.
	bidSeq int

	// Budgets cache keyed by team ID, loaded when the auction starts.
	teams map[uuid.UUID]*team.Team

	// Remaining countdown seconds captured when the auction is paused
	// mid-lot, restored on resume.
	pausedRemaining int

	// Moment the current lot went on the block, for finalize metrics.
	lotOpenedAt time.Time
}

func newSession(a *auction.Auction, teams []*team.Team) *Session {
	byID := make(map[uuid.UUID]*team.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	return &Session{
		auction: a,
		teams:   byID,
	}
}

func (s *Session) nextBidSeq() int {
	s.bidSeq++
	return s.bidSeq
}

// snapshotTeams returns the teams sorted by short code for stable output.
func (s *Session) snapshotTeams() []SnapshotTeam {
	out := make([]SnapshotTeam, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, SnapshotTeam{
			TeamID:          t.ID,
			Name:            t.Name,
			ShortCode:       t.ShortCode,
			RemainingBudget: t.RemainingBudget.String(),
			LotsWon:         t.LotsWon,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortCode < out[j].ShortCode })
	return out
}

// SessionStore holds the live sessions. Lookup is read-locked so concurrent
// bidders on different auctions never contend with each other.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Get returns the session for an auction, or nil when none is live.
func (ss *SessionStore) Get(auctionID uuid.UUID) *Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.sessions[auctionID]
}

// Put registers a session, replacing any existing one for the auction.
func (ss *SessionStore) Put(auctionID uuid.UUID, s *Session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[auctionID] = s
}

// PutIfAbsent registers a session unless the auction already has one. Returns
// false when the existing session was kept, so two racing starts cannot both
// install a session.
func (ss *SessionStore) PutIfAbsent(auctionID uuid.UUID, s *Session) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.sessions[auctionID]; ok {
		return false
	}
	ss.sessions[auctionID] = s
	return true
}

// Delete evicts a session.
func (ss *SessionStore) Delete(auctionID uuid.UUID) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, auctionID)
}

// Len returns the number of live sessions.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}
