package analyzer

import (
	"math"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/pkg/exception"
)

// Analyzer is the bookkeeping collaborator: it records what the decision
// cycle saw and did, and turns that into a return report on demand.
type Analyzer interface {
	// Initialize injects the account-state getter. One-time.
	Initialize(getAccountInfo func() (model.AccountSnapshot, error))
	// MakeStartPoint captures the baseline account state the report measures against.
	MakeStartPoint()
	PutTradingInfo(snapshots []model.MarketSnapshot)
	PutRequests(requests []model.TradeRequest)
	PutResult(result model.TradeResult)
	GetReturnReport() (*model.ReportSummary, error)
}

type marketRange struct {
	first model.Price
	last  model.Price
}

// Basic keeps everything in memory. Persistence of reports belongs to an
// external collaborator, not here.
type Basic struct {
	mu             sync.Mutex
	getAccountInfo func() (model.AccountSnapshot, error)

	baseline    model.AccountSnapshot
	hasBaseline bool
	latest      model.AccountSnapshot

	markets  map[string]*marketRange
	requests []model.TradeRequest
	results  []model.TradeResult
	from     time.Time
	to       time.Time
}

func NewBasic() *Basic {
	return &Basic{markets: make(map[string]*marketRange)}
}

func (a *Basic) Initialize(getAccountInfo func() (model.AccountSnapshot, error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.getAccountInfo != nil {
		return
	}
	a.getAccountInfo = getAccountInfo
}

// MakeStartPoint snapshots the account as the report baseline. Called by the
// operator when trading starts.
func (a *Basic) MakeStartPoint() {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot, err := a.refreshLocked()
	if err != nil {
		logs.Errorf("analyzer start point, err: %+v", err)
		return
	}
	a.baseline = snapshot
	a.hasBaseline = true
	a.from = time.Now()
}

func (a *Basic) PutTradingInfo(snapshots []model.MarketSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range snapshots {
		r, ok := a.markets[s.Market]
		if !ok {
			r = &marketRange{first: s.Closing}
			a.markets[s.Market] = r
		}
		r.last = s.Closing
	}
	a.to = time.Now()
}

func (a *Basic) PutRequests(requests []model.TradeRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, requests...)
}

// PutResult records a terminal result and refreshes the account view, so the
// report always reflects settled trades.
func (a *Basic) PutResult(result model.TradeResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.results = append(a.results, result)
	if _, err := a.refreshLocked(); err != nil {
		logs.Warnf("analyzer account refresh, err: %+v", err)
	}
}

// GetReturnReport computes the rolling report against the baseline.
func (a *Basic) GetReturnReport() (*model.ReportSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot, err := a.refreshLocked()
	if err != nil {
		return nil, errors.Wrap(err, "refresh account")
	}
	if !a.hasBaseline {
		a.baseline = snapshot
		a.hasBaseline = true
	}

	budget := a.baseline.EstimatedValue()
	estimated := snapshot.EstimatedValue()

	report := &model.ReportSummary{
		Budget:          budget,
		Cash:            snapshot.Cash,
		EstimatedValue:  estimated,
		PriceChangeRate: make(map[string]float64, len(a.markets)),
		From:            a.from,
		To:              a.to,
		ResultCount:     len(a.results),
	}
	if budget > 0 {
		report.ReturnRate = roundRate(float64(estimated-budget) / float64(budget) * 100)
	}
	for market, r := range a.markets {
		if r.first > 0 {
			report.PriceChangeRate[market] = roundRate(float64(r.last-r.first) / float64(r.first) * 100)
		}
	}
	return report, nil
}

func (a *Basic) refreshLocked() (model.AccountSnapshot, error) {
	if a.getAccountInfo == nil {
		return model.AccountSnapshot{}, exception.ErrNilAccountGetter
	}
	snapshot, err := a.getAccountInfo()
	if err != nil {
		return a.latest, err
	}
	a.latest = snapshot
	return snapshot, nil
}

func roundRate(v float64) float64 {
	return math.Round(v*1000) / 1000
}
