package strategy

import "main/internal/model"

// Strategy is the decision function driven by the operator. All methods are
// invoked from the operator's worker goroutine, so implementations need no
// locking of their own.
type Strategy interface {
	// Initialize hands the strategy its budget. One-time; a second call is a no-op.
	Initialize(budget model.Price)
	// UpdateTradingInfo feeds the latest market snapshots.
	UpdateTradingInfo(snapshots []model.MarketSnapshot)
	// GetRequest returns zero or more orders to submit this cycle.
	GetRequest() []model.TradeRequest
	// UpdateResult feeds every venue notification back, requested and terminal.
	UpdateResult(result model.TradeResult)
}
