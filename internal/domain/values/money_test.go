package values

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  bool
	}{
		{"valid USD", "100.50", "USD", false},
		{"valid lowercase currency", "10", "usd", false},
		{"valid INR", "2000000", "INR", false},
		{"empty currency", "10", "", true},
		{"bad currency length", "10", "USDX", true},
		{"unsupported currency", "10", "XXX", true},
		{"bad amount", "abc", "USD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoneyFromString(tt.amount, tt.currency)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, m.Currency(), 3)
			assert.Equal(t, strings.ToUpper(m.Currency()), m.Currency())
		})
	}
}

func TestMoneyComparisons(t *testing.T) {
	a := MustNewMoneyFromInt(100, USD)
	b := MustNewMoneyFromInt(150, USD)

	assert.True(t, a.LessThan(b))
	assert.False(t, b.LessThan(a))
	assert.True(t, b.GreaterOrEqual(a))
	assert.True(t, a.GreaterOrEqual(a))
	assert.True(t, a.Equal(MustNewMoneyFromInt(100, USD)))

	assert.Panics(t, func() {
		a.Compare(MustNewMoneyFromInt(100, EUR))
	})
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustNewMoneyFromInt(100, USD)
	b := MustNewMoneyFromInt(30, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustNewMoneyFromInt(130, USD)))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustNewMoneyFromInt(70, USD)))

	_, err = a.Add(MustNewMoneyFromInt(1, EUR))
	assert.Error(t, err)
	_, err = a.Sub(MustNewMoneyFromInt(1, EUR))
	assert.Error(t, err)
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := MustNewMoney(decimal.RequireFromString("123.45"), USD)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equal(decoded))
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "123.45 USD", MustNewMoney(decimal.RequireFromString("123.45"), USD).String())
	assert.Equal(t, "100.00 USD", MustNewMoneyFromInt(100, USD).String())
}
