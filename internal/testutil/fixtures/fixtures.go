package fixtures

import (
	"testing"

	"github.com/arenabid/live-auction-backend/internal/domain/auction"
	"github.com/arenabid/live-auction-backend/internal/domain/lot"
	"github.com/arenabid/live-auction-backend/internal/domain/team"
	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

// Money builds a USD amount from whole units, failing the test on error.
func Money(t *testing.T, units int64) values.Money {
	t.Helper()
	m, err := values.NewMoneyFromInt(units, values.USD)
	if err != nil {
		t.Fatalf("build money: %v", err)
	}
	return m
}

// AuctionBuilder builds test auctions.
type AuctionBuilder struct {
	name             string
	accessCode       string
	increment        int64
	countdownSeconds int
}

func NewAuctionBuilder() *AuctionBuilder {
	return &AuctionBuilder{
		name:             "Test Auction",
		accessCode:       "secret",
		increment:        5,
		countdownSeconds: 10,
	}
}

func (b *AuctionBuilder) WithName(name string) *AuctionBuilder {
	b.name = name
	return b
}

func (b *AuctionBuilder) WithAccessCode(code string) *AuctionBuilder {
	b.accessCode = code
	return b
}

func (b *AuctionBuilder) WithIncrement(units int64) *AuctionBuilder {
	b.increment = units
	return b
}

func (b *AuctionBuilder) WithCountdown(seconds int) *AuctionBuilder {
	b.countdownSeconds = seconds
	return b
}

func (b *AuctionBuilder) Build(t *testing.T) *auction.Auction {
	t.Helper()
	return auction.NewAuction(b.name, b.accessCode, Money(t, b.increment), b.countdownSeconds)
}

// BuildLive builds an auction already moved to live.
func (b *AuctionBuilder) BuildLive(t *testing.T) *auction.Auction {
	t.Helper()
	a := b.Build(t)
	a.Start()
	return a
}

// LotBuilder builds test lots.
type LotBuilder struct {
	auction    *auction.Auction
	playerName string
	role       string
	basePrice  int64
	sequence   int
}

func NewLotBuilder(a *auction.Auction) *LotBuilder {
	return &LotBuilder{
		auction:    a,
		playerName: "Test Player",
		role:       "batter",
		basePrice:  100,
		sequence:   1,
	}
}

func (b *LotBuilder) WithPlayer(name, role string) *LotBuilder {
	b.playerName = name
	b.role = role
	return b
}

func (b *LotBuilder) WithBasePrice(units int64) *LotBuilder {
	b.basePrice = units
	return b
}

func (b *LotBuilder) WithSequence(seq int) *LotBuilder {
	b.sequence = seq
	return b
}

func (b *LotBuilder) Build(t *testing.T) *lot.Lot {
	t.Helper()
	return lot.NewLot(b.auction.ID, b.playerName, b.role, Money(t, b.basePrice), b.sequence)
}

// TeamBuilder builds test teams.
type TeamBuilder struct {
	auction   *auction.Auction
	name      string
	shortCode string
	budget    int64
}

func NewTeamBuilder(a *auction.Auction) *TeamBuilder {
	return &TeamBuilder{
		auction:   a,
		name:      "Test Team",
		shortCode: "TT",
		budget:    1000,
	}
}

func (b *TeamBuilder) WithName(name, shortCode string) *TeamBuilder {
	b.name = name
	b.shortCode = shortCode
	return b
}

func (b *TeamBuilder) WithBudget(units int64) *TeamBuilder {
	b.budget = units
	return b
}

func (b *TeamBuilder) Build(t *testing.T) *team.Team {
	t.Helper()
	return team.NewTeam(b.auction.ID, b.name, b.shortCode, Money(t, b.budget))
}
