package dataprovider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/pkg/exception"
)

const (
	_upbitBaseUrl          = "https://api.upbit.com"
	_upbitCandleTimeLayout = "2006-01-02T15:04:05"
)

// Upbit fetches the latest minute candle per tick over REST. When a candle
// repository is attached, every fetched candle is written through best-effort.
type Upbit struct {
	client  *http.Client
	baseURL string
	market  string
	repo    CandleRepository
}

// NewUpbit creates a provider for one market, e.g. "KRW-BTC".
func NewUpbit(client *http.Client, market string) *Upbit {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Upbit{
		client:  client,
		baseURL: _upbitBaseUrl,
		market:  market,
	}
}

// WithRepository attaches a write-through candle repository.
func (p *Upbit) WithRepository(repo CandleRepository) *Upbit {
	p.repo = repo
	return p
}

// WithBaseURL overrides the venue endpoint.
func (p *Upbit) WithBaseURL(base string) *Upbit {
	p.baseURL = base
	return p
}

type upbitCandle struct {
	Market         string          `json:"market"`
	CandleDateTime string          `json:"candle_date_time_kst"`
	Opening        decimal.Decimal `json:"opening_price"`
	High           decimal.Decimal `json:"high_price"`
	Low            decimal.Decimal `json:"low_price"`
	Closing        decimal.Decimal `json:"trade_price"`
	Volume         decimal.Decimal `json:"candle_acc_trade_volume"`
}

// GetInfo fetches the most recent minute candle. This is the one synchronous
// I/O call the operator performs on its tick goroutine; the latency counts
// against the tick budget.
func (p *Upbit) GetInfo() ([]model.MarketSnapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/candles/minutes/1?%s", p.baseURL, url.Values{
		"market": {p.market},
		"count":  {"1"},
	}.Encode())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build candle request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(exception.ErrDataUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(exception.ErrDataUnavailable, fmt.Sprintf("status %d", resp.StatusCode))
	}

	var candles []upbitCandle
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&candles); err != nil {
		return nil, errors.Wrap(exception.ErrDataMalformed, err.Error())
	}
	if len(candles) == 0 {
		return nil, exception.ErrDataUnavailable
	}

	snapshots := make([]model.MarketSnapshot, 0, len(candles))
	for _, c := range candles {
		snapshot, err := c.toSnapshot()
		if err != nil {
			return nil, errors.Wrap(exception.ErrDataMalformed, err.Error())
		}
		snapshots = append(snapshots, snapshot)
	}

	if p.repo != nil {
		if err := p.repo.SaveCandles(ctx, snapshots); err != nil {
			logs.Warnf("save candles, err: %+v", err)
		}
	}
	return snapshots, nil
}

func (c upbitCandle) toSnapshot() (model.MarketSnapshot, error) {
	var (
		snapshot model.MarketSnapshot
		err      error
	)

	snapshot.Market = c.Market
	if snapshot.Opening, err = model.ParsePrice(c.Opening.String()); err != nil {
		return snapshot, err
	}
	if snapshot.High, err = model.ParsePrice(c.High.String()); err != nil {
		return snapshot, err
	}
	if snapshot.Low, err = model.ParsePrice(c.Low.String()); err != nil {
		return snapshot, err
	}
	if snapshot.Closing, err = model.ParsePrice(c.Closing.String()); err != nil {
		return snapshot, err
	}
	if snapshot.Volume, err = model.ParseAmount(c.Volume.String()); err != nil {
		return snapshot, err
	}
	if c.CandleDateTime != "" {
		if snapshot.Timestamp, err = time.Parse(_upbitCandleTimeLayout, c.CandleDateTime); err != nil {
			return snapshot, err
		}
	}
	return snapshot, nil
}
