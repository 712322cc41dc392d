package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func feed(s *BuyAndHold, closing model.Price) {
	s.UpdateTradingInfo([]model.MarketSnapshot{{Market: "KRW-BTC", Closing: closing}})
}

func TestBuyAndHoldNeedsDataFirst(t *testing.T) {
	s := NewBuyAndHold()
	s.Initialize(50_000)
	assert.Nil(t, s.GetRequest())
}

func TestBuyAndHoldSpendsOneTranchePerCycle(t *testing.T) {
	s := NewBuyAndHold()
	s.Initialize(50_000)
	feed(s, 11_372_000)

	var all []model.TradeRequest
	for i := 0; i < 10; i++ {
		requests := s.GetRequest()
		all = append(all, requests...)
	}

	// Five tranches of 10000 each, then nothing.
	require.Len(t, all, 5)
	for _, req := range all {
		assert.Equal(t, enum.RequestKindBuy, req.Kind)
		assert.Equal(t, "KRW-BTC", req.Market)
		assert.Equal(t, model.Price(11_372_000), req.Price)
		// 10000 / 11372000 of the asset, at 1e-8 scale.
		assert.Equal(t, model.Amount(87_935), req.Amount)
		assert.NotEmpty(t, req.ID)
	}
}

func TestBuyAndHoldRefundsFailedTranche(t *testing.T) {
	s := NewBuyAndHold()
	s.Initialize(50_000)
	feed(s, 11_372_000)

	for i := 0; i < 5; i++ {
		require.NotEmpty(t, s.GetRequest())
	}
	require.Empty(t, s.GetRequest())

	s.UpdateResult(model.TradeResult{
		Request: model.TradeRequest{ID: "failed"},
		State:   enum.ResultStateError,
		Message: "insufficient balance",
	})

	// The refunded tranche is spent again on the next cycle.
	assert.Len(t, s.GetRequest(), 1)
	assert.Empty(t, s.GetRequest())
}

func TestBuyAndHoldIgnoresNonTerminalResults(t *testing.T) {
	s := NewBuyAndHold()
	s.Initialize(50_000)
	feed(s, 11_372_000)

	for i := 0; i < 5; i++ {
		require.NotEmpty(t, s.GetRequest())
	}
	s.UpdateResult(model.TradeResult{State: enum.ResultStateRequested})
	assert.Empty(t, s.GetRequest())
}

func TestBuyAndHoldInitializeIsOneTime(t *testing.T) {
	s := NewBuyAndHold()
	s.Initialize(50_000)
	s.Initialize(100_000)
	assert.Equal(t, model.Price(50_000), s.budget)
}
