package lot

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabid/live-auction-backend/internal/domain/values"
)

func basePrice(t *testing.T) values.Money {
	t.Helper()
	m, err := values.NewMoneyFromInt(100, values.USD)
	require.NoError(t, err)
	return m
}

func TestNewLot(t *testing.T) {
	auctionID := uuid.New()
	l := NewLot(auctionID, "V. Kohli", "batter", basePrice(t), 1)

	assert.Equal(t, auctionID, l.AuctionID)
	assert.Equal(t, StatusPending, l.Status)
	assert.Nil(t, l.WinningTeamID)
	assert.Nil(t, l.FinalPrice)
	assert.False(t, l.IsTerminal())
}

func TestLotTransitions(t *testing.T) {
	t.Run("pending to on_block to sold", func(t *testing.T) {
		l := NewLot(uuid.New(), "V. Kohli", "batter", basePrice(t), 1)
		teamID := uuid.New()
		price, err := values.NewMoneyFromInt(250, values.USD)
		require.NoError(t, err)

		require.NoError(t, l.PutOnBlock())
		assert.Equal(t, StatusOnBlock, l.Status)

		require.NoError(t, l.MarkSold(teamID, price))
		assert.Equal(t, StatusSold, l.Status)
		require.NotNil(t, l.WinningTeamID)
		assert.Equal(t, teamID, *l.WinningTeamID)
		require.NotNil(t, l.FinalPrice)
		assert.True(t, price.Equal(*l.FinalPrice))
		assert.True(t, l.IsTerminal())
	})

	t.Run("pending to on_block to unsold", func(t *testing.T) {
		l := NewLot(uuid.New(), "V. Kohli", "batter", basePrice(t), 1)

		require.NoError(t, l.PutOnBlock())
		require.NoError(t, l.MarkUnsold())
		assert.Equal(t, StatusUnsold, l.Status)
		assert.Nil(t, l.WinningTeamID)
		assert.True(t, l.IsTerminal())
	})

	t.Run("on_block back to pending", func(t *testing.T) {
		l := NewLot(uuid.New(), "V. Kohli", "batter", basePrice(t), 1)

		require.NoError(t, l.PutOnBlock())
		require.NoError(t, l.ReturnToPending())
		assert.Equal(t, StatusPending, l.Status)
	})

	t.Run("invalid transitions are rejected", func(t *testing.T) {
		l := NewLot(uuid.New(), "V. Kohli", "batter", basePrice(t), 1)

		assert.Error(t, l.MarkSold(uuid.New(), basePrice(t)))
		assert.Error(t, l.MarkUnsold())
		assert.Error(t, l.ReturnToPending())

		require.NoError(t, l.PutOnBlock())
		assert.Error(t, l.PutOnBlock())

		require.NoError(t, l.MarkUnsold())
		assert.Error(t, l.MarkSold(uuid.New(), basePrice(t)))
		assert.Error(t, l.PutOnBlock())
	})
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusOnBlock, StatusSold, StatusUnsold} {
		assert.Equal(t, s, ParseStatus(s.String()))
	}
}
