package live

import (
	"time"

	"main/internal/model"
)

// RiskConfig defines static pre-submission limits. Zero values disable a check.
type RiskConfig struct {
	KillSwitch       bool          `json:"killSwitch"`
	MaxOrderAmount   model.Amount  `json:"maxOrderAmount"`
	MaxOrderNotional model.Price   `json:"maxOrderNotional"`
	OrderRateLimit   int           `json:"orderRateLimit"`
	OrderRateWindow  time.Duration `json:"orderRateWindow"`
}

// RiskDecision is the outcome of evaluating one request.
type RiskDecision struct {
	Allowed bool
	Reason  string
}

// RiskEngine gates order submissions before they reach the venue. It runs on
// the gateway worker goroutine, so it needs no locking.
type RiskEngine struct {
	cfg             RiskConfig
	rateWindowStart time.Time
	rateCount       int
}

func NewRiskEngine(cfg RiskConfig) *RiskEngine {
	return &RiskEngine{cfg: cfg}
}

// Evaluate applies the configured limits to a request.
func (e *RiskEngine) Evaluate(req model.TradeRequest) RiskDecision {
	if e.cfg.KillSwitch {
		return RiskDecision{Reason: "kill switch"}
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		now := time.Now()
		if e.rateWindowStart.IsZero() || now.Sub(e.rateWindowStart) >= e.cfg.OrderRateWindow {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return RiskDecision{Reason: "order rate limit"}
		}
	}

	if e.cfg.MaxOrderAmount > 0 && req.Amount > e.cfg.MaxOrderAmount {
		return RiskDecision{Reason: "max order amount"}
	}

	if e.cfg.MaxOrderNotional > 0 {
		notional, overflow := model.Notional(req.Price, req.Amount)
		if overflow || notional > e.cfg.MaxOrderNotional {
			return RiskDecision{Reason: "max order notional"}
		}
	}

	return RiskDecision{Allowed: true}
}
