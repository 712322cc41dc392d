package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/model/enum"
)

const _buyHoldTranches = 5

// BuyAndHold splits its budget into equal tranches and buys one tranche per
// cycle at the latest closing price, then holds.
type BuyAndHold struct {
	initialized bool
	budget      model.Price
	tranche     model.Price
	remaining   model.Price

	latest model.MarketSnapshot
	seen   bool
}

func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{}
}

func (s *BuyAndHold) Initialize(budget model.Price) {
	if s.initialized {
		return
	}
	s.initialized = true
	s.budget = budget
	s.tranche = model.Price(model.RoundDiv(int64(budget), _buyHoldTranches))
	s.remaining = budget
}

func (s *BuyAndHold) UpdateTradingInfo(snapshots []model.MarketSnapshot) {
	if len(snapshots) == 0 {
		return
	}
	s.latest = snapshots[len(snapshots)-1]
	s.seen = true
}

func (s *BuyAndHold) GetRequest() []model.TradeRequest {
	if !s.initialized || !s.seen || s.remaining < s.tranche || s.tranche <= 0 {
		return nil
	}

	price := s.latest.Closing
	if price <= 0 {
		return nil
	}
	amount := model.Amount(model.RoundDiv(int64(s.tranche)*model.AmountScale, int64(price)))
	if amount <= 0 {
		return nil
	}

	s.remaining -= s.tranche
	return []model.TradeRequest{{
		ID:       uuid.NewString(),
		Kind:     enum.RequestKindBuy,
		Market:   s.latest.Market,
		Price:    price,
		Amount:   amount,
		IssuedAt: time.Now(),
	}}
}

func (s *BuyAndHold) UpdateResult(result model.TradeResult) {
	if !result.IsTerminal() {
		return
	}
	if result.State == enum.ResultStateError {
		// The tranche never executed; free it for a later cycle.
		s.remaining += s.tranche
		if s.remaining > s.budget {
			s.remaining = s.budget
		}
		logs.Debugf("buy and hold request %s failed: %s", result.Request.ID, result.Message)
	}
}
