package dataprovider

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
	"main/pkg/exception"
)

const _upbitBaseWsUrl = "wss://api.upbit.com/websocket/v1"

// UpbitStream keeps a websocket ticker subscription and serves the last seen
// trade as a synthetic one-point snapshot, so a tick never blocks on the
// network. It complements the REST provider for sub-minute cadences.
type UpbitStream struct {
	wss    *ws.WebSocket
	market string

	mu   sync.Mutex
	last model.MarketSnapshot
	seen bool
}

// NewUpbitStream creates a streaming quote provider for one market.
func NewUpbitStream(ctx context.Context, market string) *UpbitStream {
	return &UpbitStream{
		wss:    ws.New(ctx, _upbitBaseWsUrl),
		market: market,
	}
}

func (p *UpbitStream) Close() {
	p.wss.Close()
}

// Start opens the socket, subscribes the ticker stream, and begins caching.
func (p *UpbitStream) Start(ctx context.Context) error {
	if err := p.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	if err := p.subscribeTicker(ctx); err != nil {
		return err
	}

	p.observeTicker(ctx)
	return nil
}

type upbitTicker struct {
	Type      string          `json:"type"`
	Code      string          `json:"code"`
	Price     decimal.Decimal `json:"trade_price"`
	Volume    decimal.Decimal `json:"acc_trade_volume"`
	Timestamp int64           `json:"timestamp"`
}

func (p *UpbitStream) subscribeTicker(ctx context.Context) error {
	appendIntoRegister := true
	if err := p.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			payload := []any{
				map[string]string{"ticket": "trader-" + p.market},
				map[string]any{"type": "ticker", "codes": []string{p.market}},
			}
			if err := client.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("market", p.market)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			ticker, ok := ws.ReadMessage[upbitTicker](m)
			if !ok || ticker.Type != "ticker" || ticker.Code != p.market {
				return false, nil
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

func (p *UpbitStream) observeTicker(ctx context.Context) {
	ch, cancel := p.wss.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				ticker, ok := ws.ReadMessage[upbitTicker](m)
				if !ok || ticker.Type != "ticker" || ticker.Code != p.market {
					continue
				}

				p.cache(ticker)
			}
		}
	}()
}

func (p *UpbitStream) cache(ticker upbitTicker) {
	price, err := model.ParsePrice(ticker.Price.String())
	if err != nil || price <= 0 {
		return
	}
	volume, _ := model.ParseAmount(ticker.Volume.String())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = model.MarketSnapshot{
		Market:    ticker.Code,
		Opening:   price,
		High:      price,
		Low:       price,
		Closing:   price,
		Volume:    volume,
		Timestamp: time.UnixMilli(ticker.Timestamp),
	}
	p.seen = true
}

// GetInfo returns the last cached trade without blocking.
func (p *UpbitStream) GetInfo() ([]model.MarketSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.seen {
		return nil, exception.ErrDataUnavailable
	}
	return []model.MarketSnapshot{p.last}, nil
}
