package model

import "time"

// MarketSnapshot is one candle of market data served to the decision cycle.
type MarketSnapshot struct {
	Market    string
	Opening   Price
	High      Price
	Low       Price
	Closing   Price
	Volume    Amount
	Timestamp time.Time
}

// Validate checks the snapshot has a usable shape for a tick.
func (s MarketSnapshot) Validate() bool {
	if s.Market == "" || s.Closing <= 0 {
		return false
	}
	if s.High < s.Low {
		return false
	}
	return true
}
