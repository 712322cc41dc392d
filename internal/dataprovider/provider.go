package dataprovider

import (
	"context"
	"time"

	"main/internal/model"
)

// DataProvider serves market data once per decision cycle.
//
// GetInfo returns exception.ErrDataExhausted once a replayed series has no
// more candles; that sentinel is only meaningful to the replay operator.
// Any other error means the source is unavailable for this cycle.
type DataProvider interface {
	GetInfo() ([]model.MarketSnapshot, error)
}

// CandleRepository persists fetched candles. Implemented by the repository
// package; optional for providers.
type CandleRepository interface {
	SaveCandles(ctx context.Context, candles []model.MarketSnapshot) error
	LoadCandles(ctx context.Context, market string, from, to time.Time) ([]model.MarketSnapshot, error)
}
