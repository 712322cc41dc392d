package gateway

import (
	"time"

	"main/internal/gateway/live"
	"main/internal/gateway/live/upbit"
	"main/internal/gateway/sim"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/pkg/exception"
)

// OrderGateway is the contract every execution-venue adapter implements.
// Submission is asynchronous; the caller never blocks on venue I/O. The
// onComplete callback receives every venue notification for a submitted
// request: zero or more requested states followed by exactly one terminal
// done or error state per request id.
type OrderGateway interface {
	SendRequest(requests []model.TradeRequest, onComplete func(model.TradeResult))
	Cancel(requestID string)
	CancelAll()
	GetAccountInfo() (model.AccountSnapshot, error)
	Stop()
}

// Config carries everything any adapter variant may need. Unused fields are
// ignored by the selected venue.
type Config struct {
	Market       string
	Budget       model.Price
	CommissionBP int64
	PollInterval time.Duration
	Risk         live.RiskConfig
	Series       []model.MarketSnapshot
	Upbit        upbit.Config
	Metrics      *obs.Metrics
}

// New selects an adapter by venue code at construction time.
func New(venue enum.Venue, cfg Config) (OrderGateway, error) {
	switch venue {
	case enum.VenueSimulation:
		return sim.NewGateway(sim.Config{
			Market:       cfg.Market,
			Budget:       cfg.Budget,
			CommissionBP: cfg.CommissionBP,
			Series:       cfg.Series,
		}), nil
	case enum.VenueUpbit:
		delegator, err := upbit.NewDelegator(nil, cfg.Upbit)
		if err != nil {
			return nil, err
		}
		return live.NewGateway(live.Config{
			Name:         venue.String(),
			PollInterval: cfg.PollInterval,
			Risk:         cfg.Risk,
			Metrics:      cfg.Metrics,
		}, delegator), nil
	default:
		return nil, exception.ErrOrderUnsupportedVenue
	}
}
