package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func candle(closing model.Price) model.MarketSnapshot {
	return model.MarketSnapshot{
		Market:    "KRW-BTC",
		Opening:   closing,
		High:      closing,
		Low:       closing,
		Closing:   closing,
		Volume:    model.AmountScale,
		Timestamp: time.Now(),
	}
}

func request(kind enum.RequestKind, price model.Price, amount model.Amount) model.TradeRequest {
	return model.TradeRequest{
		ID:       kind.String() + "-" + price.String(),
		Kind:     kind,
		Market:   "KRW-BTC",
		Price:    price,
		Amount:   amount,
		IssuedAt: time.Now(),
	}
}

func sendAndWait(t *testing.T, g *Gateway, req model.TradeRequest) model.TradeResult {
	t.Helper()
	results := make(chan model.TradeResult, 1)
	g.SendRequest([]model.TradeRequest{req}, func(r model.TradeResult) { results <- r })
	select {
	case r := <-results:
		return r
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
		return model.TradeResult{}
	}
}

func TestGatewayBuySellSettlement(t *testing.T) {
	g := NewGateway(Config{
		Market:       "KRW-BTC",
		Budget:       50_000,
		CommissionBP: 5,
		Series:       []model.MarketSnapshot{candle(11_372_000), candle(11_292_000)},
	})
	defer g.Stop()

	buy := sendAndWait(t, g, request(enum.RequestKindBuy, 11_372_000, 90_000))
	require.Equal(t, enum.ResultStateDone, buy.State)
	assert.Equal(t, model.Amount(90_000), buy.Amount)

	account, err := g.GetAccountInfo()
	require.NoError(t, err)
	assert.Equal(t, model.Price(39_760), account.Cash)
	assert.Equal(t, model.Amount(90_000), account.Holdings["KRW-BTC"].Amount)

	sell := sendAndWait(t, g, request(enum.RequestKindSell, 11_292_000, 30_000))
	require.Equal(t, enum.ResultStateDone, sell.State)
	assert.Equal(t, model.Amount(30_000), sell.Amount)

	account, err = g.GetAccountInfo()
	require.NoError(t, err)
	assert.Equal(t, model.Price(43_146), account.Cash)
	assert.Equal(t, model.Amount(60_000), account.Holdings["KRW-BTC"].Amount)
	assert.Equal(t, model.Price(11_292_000), account.Quotes["KRW-BTC"])
}

func TestGatewaySellCapsAtHeldAmount(t *testing.T) {
	g := NewGateway(Config{
		Market:       "KRW-BTC",
		Budget:       50_000,
		CommissionBP: 5,
		Series:       []model.MarketSnapshot{candle(11_372_000), candle(11_292_000)},
	})
	defer g.Stop()

	buy := sendAndWait(t, g, request(enum.RequestKindBuy, 11_372_000, 60_000))
	require.Equal(t, enum.ResultStateDone, buy.State)

	sell := sendAndWait(t, g, request(enum.RequestKindSell, 11_292_000, 130_000))
	require.Equal(t, enum.ResultStateDone, sell.State)
	assert.Equal(t, model.Amount(60_000), sell.Amount)

	account, err := g.GetAccountInfo()
	require.NoError(t, err)
	assert.Empty(t, account.Holdings)
}

func TestGatewayBuyInsufficientBalance(t *testing.T) {
	g := NewGateway(Config{
		Market:       "KRW-BTC",
		Budget:       1_000,
		CommissionBP: 5,
		Series:       []model.MarketSnapshot{candle(11_372_000)},
	})
	defer g.Stop()

	result := sendAndWait(t, g, request(enum.RequestKindBuy, 11_372_000, 90_000))
	require.Equal(t, enum.ResultStateError, result.State)

	account, err := g.GetAccountInfo()
	require.NoError(t, err)
	assert.Equal(t, model.Price(1_000), account.Cash)
}

func TestGatewaySellWithoutHoldings(t *testing.T) {
	g := NewGateway(Config{
		Market:       "KRW-BTC",
		Budget:       50_000,
		CommissionBP: 5,
		Series:       []model.MarketSnapshot{candle(11_372_000)},
	})
	defer g.Stop()

	result := sendAndWait(t, g, request(enum.RequestKindSell, 11_372_000, 30_000))
	assert.Equal(t, enum.ResultStateError, result.State)
}

func TestGatewayExhaustedSeriesReportsGameOver(t *testing.T) {
	g := NewGateway(Config{
		Market:       "KRW-BTC",
		Budget:       50_000,
		CommissionBP: 5,
		Series:       []model.MarketSnapshot{candle(11_372_000)},
	})
	defer g.Stop()

	first := sendAndWait(t, g, request(enum.RequestKindBuy, 11_372_000, 60_000))
	require.Equal(t, enum.ResultStateDone, first.State)
	require.False(t, first.IsExhausted())

	second := sendAndWait(t, g, request(enum.RequestKindBuy, 11_372_000, 60_000))
	assert.Equal(t, enum.ResultStateDone, second.State)
	assert.True(t, second.IsExhausted())
	assert.Equal(t, model.ResultMessageExhausted, second.Message)
}

func TestGatewayBuyGuardsAverageCostOverflow(t *testing.T) {
	g := NewGateway(Config{
		Market:       "KRW-BTC",
		Budget:       200_000_000_000,
		CommissionBP: 5,
		Series:       []model.MarketSnapshot{candle(3_000_000_000), candle(3_000_000_000)},
	})
	defer g.Stop()

	first := sendAndWait(t, g, request(enum.RequestKindBuy, 3_000_000_000, 3_000_000_000))
	require.Equal(t, enum.ResultStateDone, first.State)

	// Accumulating the same position again would wrap the cost basis; the
	// fill is refused and the account stays untouched.
	second := sendAndWait(t, g, request(enum.RequestKindBuy, 3_000_000_000, 3_000_000_000))
	assert.Equal(t, enum.ResultStateError, second.State)

	account, err := g.GetAccountInfo()
	require.NoError(t, err)
	assert.Equal(t, model.Amount(3_000_000_000), account.Holdings["KRW-BTC"].Amount)
	assert.Equal(t, model.Price(3_000_000_000), account.Holdings["KRW-BTC"].AvgPrice)
	assert.Equal(t, model.Price(109_955_000_000), account.Cash)
}

func TestGatewayCancelIsNoOp(t *testing.T) {
	g := NewGateway(Config{
		Market:       "KRW-BTC",
		Budget:       50_000,
		CommissionBP: 5,
		Series:       []model.MarketSnapshot{candle(11_372_000)},
	})
	defer g.Stop()

	g.Cancel("nothing")
	g.CancelAll()

	delivered := make(chan model.TradeResult, 1)
	g.SendRequest([]model.TradeRequest{{
		ID:     "cancel-req",
		Kind:   enum.RequestKindCancel,
		Market: "KRW-BTC",
	}}, func(r model.TradeResult) { delivered <- r })

	select {
	case <-delivered:
		t.Fatal("cancel request should not produce a result in replay")
	case <-time.After(50 * time.Millisecond):
	}
}
