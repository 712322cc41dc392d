package sim

import (
	"math"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/worker"
	"main/pkg/exception"
)

// Config describes the replayed venue.
type Config struct {
	Market       string
	Budget       model.Price
	CommissionBP int64
	Series       []model.MarketSnapshot
}

// Gateway is the in-memory replay venue. It implements the same contract as
// a live adapter but resolves fills synchronously against the replayed price
// series: one series turn is consumed per handled request, and once the
// series is exhausted every further request resolves to the game-over
// sentinel result.
//
// Balance arithmetic runs only on the gateway's worker goroutine, keeping it
// single-threaded and order-preserving; GetAccountInfo readers take the
// account mutex.
type Gateway struct {
	cfg    Config
	worker *worker.Worker

	mu       sync.Mutex
	cash     model.Price
	holdings map[string]model.Holding
	quotes   map[string]model.Price
	turn     int
}

// NewGateway creates and starts a replay venue with the configured budget.
func NewGateway(cfg Config) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		worker:   worker.New("gateway-sim", 0),
		cash:     cfg.Budget,
		holdings: make(map[string]model.Holding),
		quotes:   make(map[string]model.Price),
	}
	g.worker.Start()
	return g
}

// SendRequest posts each request for synchronous resolution on the gateway
// goroutine. Cancel-kind requests are ignored: fills resolve immediately, so
// the pending set is always empty.
func (g *Gateway) SendRequest(requests []model.TradeRequest, onComplete func(model.TradeResult)) {
	for _, req := range requests {
		req := req
		if req.Kind == enum.RequestKindCancel {
			logs.Debugf("sim gateway ignores cancel request %s", req.ID)
			continue
		}
		g.worker.Post(func() { g.handle(req, onComplete) })
	}
}

// Cancel is a no-op: nothing stays pending in replay.
func (g *Gateway) Cancel(requestID string) {}

// CancelAll is a no-op: nothing stays pending in replay.
func (g *Gateway) CancelAll() {}

// GetAccountInfo snapshots the replayed account.
func (g *Gateway) GetAccountInfo() (model.AccountSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	snapshot := model.AccountSnapshot{
		Cash:     g.cash,
		Holdings: make(map[string]model.Holding, len(g.holdings)),
		Quotes:   make(map[string]model.Price, len(g.quotes)),
		AsOf:     time.Now(),
	}
	for k, v := range g.holdings {
		snapshot.Holdings[k] = v
	}
	for k, v := range g.quotes {
		snapshot.Quotes[k] = v
	}
	return snapshot, nil
}

// Stop drains the worker.
func (g *Gateway) Stop() {
	g.worker.Stop()
}

func (g *Gateway) handle(req model.TradeRequest, onComplete func(model.TradeResult)) {
	if onComplete == nil {
		onComplete = func(model.TradeResult) {}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.turn >= len(g.cfg.Series) {
		onComplete(model.TradeResult{
			Request:   req,
			Kind:      req.Kind,
			Message:   model.ResultMessageExhausted,
			State:     enum.ResultStateDone,
			SettledAt: time.Now(),
		})
		return
	}

	candle := g.cfg.Series[g.turn]
	g.turn++
	g.quotes[candle.Market] = candle.Closing

	if req.Price <= 0 || req.Amount <= 0 {
		onComplete(model.NewErrorResult(req, exception.ErrOrderInvalidRequest.Error(), candle.Timestamp))
		return
	}

	switch req.Kind {
	case enum.RequestKindBuy:
		onComplete(g.fillBuy(req, candle.Timestamp))
	case enum.RequestKindSell:
		onComplete(g.fillSell(req, candle.Timestamp))
	default:
		onComplete(model.NewErrorResult(req, exception.ErrOrderInvalidRequest.Error(), candle.Timestamp))
	}
}

func (g *Gateway) fillBuy(req model.TradeRequest, settledAt time.Time) model.TradeResult {
	notional, overflow := model.Notional(req.Price, req.Amount)
	if overflow {
		return model.NewErrorResult(req, exception.ErrOrderInvalidRequest.Error(), settledAt)
	}
	fee := model.Commission(notional, g.cfg.CommissionBP)
	total := notional + fee
	if total > g.cash {
		return model.NewErrorResult(req, exception.ErrOrderInsufficientBalance.Error(), settledAt)
	}

	held := g.holdings[req.Market]
	nextAmount := held.Amount + req.Amount
	heldCost, heldOverflow := scaledCost(held.AvgPrice, held.Amount)
	addCost, addOverflow := scaledCost(req.Price, req.Amount)
	if heldOverflow || addOverflow || heldCost > math.MaxInt64-addCost {
		return model.NewErrorResult(req, exception.ErrOrderInvalidRequest.Error(), settledAt)
	}

	g.cash -= total
	avg := model.RoundDiv(heldCost+addCost, int64(nextAmount))
	g.holdings[req.Market] = model.Holding{AvgPrice: model.Price(avg), Amount: nextAmount}

	return model.TradeResult{
		Request:   req,
		Kind:      req.Kind,
		Price:     req.Price,
		Amount:    req.Amount,
		State:     enum.ResultStateDone,
		SettledAt: settledAt,
	}
}

// scaledCost is the price*amount product before descaling, guarded so a large
// accumulated position cannot wrap the cost basis. Inputs are non-negative.
func scaledCost(price model.Price, amount model.Amount) (int64, bool) {
	p, a := int64(price), int64(amount)
	if p == 0 || a == 0 {
		return 0, false
	}
	if p > math.MaxInt64/a {
		return 0, true
	}
	return p * a, false
}

// fillSell caps the executed amount at the held amount, so an oversized sell
// reports the partially filled quantity and only that quantity settles.
func (g *Gateway) fillSell(req model.TradeRequest, settledAt time.Time) model.TradeResult {
	held := g.holdings[req.Market]
	if held.Amount <= 0 {
		return model.NewErrorResult(req, exception.ErrOrderInsufficientAsset.Error(), settledAt)
	}

	filled := req.Amount
	if filled > held.Amount {
		filled = held.Amount
	}

	notional, overflow := model.Notional(req.Price, filled)
	if overflow {
		return model.NewErrorResult(req, exception.ErrOrderInvalidRequest.Error(), settledAt)
	}
	fee := model.Commission(notional, g.cfg.CommissionBP)

	g.cash += notional - fee
	held.Amount -= filled
	if held.Amount == 0 {
		delete(g.holdings, req.Market)
	} else {
		g.holdings[req.Market] = held
	}

	return model.TradeResult{
		Request:   req,
		Kind:      req.Kind,
		Price:     req.Price,
		Amount:    filled,
		State:     enum.ResultStateDone,
		SettledAt: settledAt,
	}
}
