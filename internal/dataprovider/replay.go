package dataprovider

import (
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/pkg/exception"
)

const _candleTimeLayout = "2006-01-02T15:04:05"

// Replay serves a fixed candle series one tick at a time, then reports
// exhaustion through the termination sentinel.
type Replay struct {
	mu     sync.Mutex
	series []model.MarketSnapshot
	cursor int
}

// NewReplay wraps a loaded series.
func NewReplay(series []model.MarketSnapshot) (*Replay, error) {
	if len(series) == 0 {
		return nil, exception.ErrDataEmptySeries
	}
	return &Replay{series: series}, nil
}

// GetInfo returns the next candle, or ErrDataExhausted once the series ends.
func (p *Replay) GetInfo() ([]model.MarketSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cursor >= len(p.series) {
		return nil, exception.ErrDataExhausted
	}
	candle := p.series[p.cursor]
	p.cursor++
	return []model.MarketSnapshot{candle}, nil
}

// Remaining reports how many candles are left to serve.
func (p *Replay) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.series) - p.cursor
}

type candlePayload struct {
	Market   string          `json:"market"`
	DateTime string          `json:"date_time"`
	Opening  decimal.Decimal `json:"opening_price"`
	High     decimal.Decimal `json:"high_price"`
	Low      decimal.Decimal `json:"low_price"`
	Closing  decimal.Decimal `json:"closing_price"`
	Volume   decimal.Decimal `json:"acc_volume"`
}

// LoadSeriesFile reads a JSON candle series from disk.
func LoadSeriesFile(path string) ([]model.MarketSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read series file")
	}

	var payloads []candlePayload
	if err := sonic.Unmarshal(data, &payloads); err != nil {
		return nil, errors.Wrap(err, "decode series file")
	}

	series := make([]model.MarketSnapshot, 0, len(payloads))
	for _, p := range payloads {
		candle, err := p.toSnapshot()
		if err != nil {
			return nil, errors.Wrap(err, "convert candle").With("market", p.Market).With("dateTime", p.DateTime)
		}
		series = append(series, candle)
	}
	if len(series) == 0 {
		return nil, exception.ErrDataEmptySeries
	}
	return series, nil
}

func (p candlePayload) toSnapshot() (model.MarketSnapshot, error) {
	var (
		candle model.MarketSnapshot
		err    error
	)

	candle.Market = p.Market
	if candle.Opening, err = model.ParsePrice(p.Opening.String()); err != nil {
		return candle, err
	}
	if candle.High, err = model.ParsePrice(p.High.String()); err != nil {
		return candle, err
	}
	if candle.Low, err = model.ParsePrice(p.Low.String()); err != nil {
		return candle, err
	}
	if candle.Closing, err = model.ParsePrice(p.Closing.String()); err != nil {
		return candle, err
	}
	if candle.Volume, err = model.ParseAmount(p.Volume.String()); err != nil {
		return candle, err
	}
	if p.DateTime != "" {
		if candle.Timestamp, err = time.Parse(_candleTimeLayout, p.DateTime); err != nil {
			return candle, err
		}
	}
	if !candle.Validate() {
		return candle, exception.ErrDataMalformed
	}
	return candle, nil
}
