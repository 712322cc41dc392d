package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotional(t *testing.T) {
	tests := []struct {
		name   string
		price  Price
		amount Amount
		want   Price
	}{
		{"small buy", 11_372_000, 90_000, 10_235},
		{"small sell", 11_292_000, 30_000, 3_388},
		{"whole unit", 100, AmountScale, 100},
		{"zero amount", 100, 0, 0},
		{"rounds half up", 1, AmountScale/2 + 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, overflow := Notional(tt.price, tt.amount)
			require.False(t, overflow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotionalOverflow(t *testing.T) {
	_, overflow := Notional(Price(maxInt64), Amount(maxInt64))
	assert.True(t, overflow)
}

func TestCommission(t *testing.T) {
	assert.Equal(t, Price(5), Commission(10_235, 5))
	assert.Equal(t, Price(2), Commission(3_388, 5))
	assert.Equal(t, Price(0), Commission(0, 5))
	assert.Equal(t, Price(0), Commission(1_000, 0))
}

func TestRoundDiv(t *testing.T) {
	assert.Equal(t, int64(2), RoundDiv(3, 2))
	assert.Equal(t, int64(1), RoundDiv(2, 2))
	assert.Equal(t, int64(-2), RoundDiv(-3, 2))
	assert.Equal(t, int64(7), RoundDiv(65, 10))
}

func TestParsePrice(t *testing.T) {
	got, err := ParsePrice("11372000.0")
	require.NoError(t, err)
	assert.Equal(t, Price(11_372_000), got)

	got, err = ParsePrice("10234.8")
	require.NoError(t, err)
	assert.Equal(t, Price(10_235), got)

	_, err = ParsePrice("")
	assert.Error(t, err)
	_, err = ParsePrice("abc")
	assert.Error(t, err)

	// A junk fraction must not pass as a rounding reference.
	_, err = ParsePrice("12.x")
	assert.Error(t, err)
	_, err = ParsePrice("12.5x")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("0.0009")
	require.NoError(t, err)
	assert.Equal(t, Amount(90_000), got)

	got, err = ParseAmount("1")
	require.NoError(t, err)
	assert.Equal(t, Amount(AmountScale), got)

	got, err = ParseAmount("0.000000015")
	require.NoError(t, err)
	assert.Equal(t, Amount(2), got)

	_, err = ParseAmount("0.00000001x")
	assert.Error(t, err)
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "0.00090000", Amount(90_000).String())
	assert.Equal(t, "1.00000000", Amount(AmountScale).String())
	assert.Equal(t, "-0.00000001", Amount(-1).String())
}
