package live

import (
	"context"
	"sort"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/worker"
	"main/pkg/exception"
)

const _defaultPollInterval = time.Second

// Delegator is the venue-specific half of an adapter: request signing, HTTP
// payloads, response decoding. One implementation per venue.
type Delegator interface {
	// PlaceOrder submits one order and returns the venue correlation id.
	PlaceOrder(ctx context.Context, req model.TradeRequest) (string, error)
	// QueryOrders reports the status of the given venue ids in one batch.
	QueryOrders(ctx context.Context, venueIDs []string) ([]OrderStatus, error)
	// CancelOrder asks the venue to cancel. The returned status carries the
	// venue's view of the order when the venue provides one.
	CancelOrder(ctx context.Context, venueID string) (OrderStatus, error)
	QueryAccount(ctx context.Context) (model.AccountSnapshot, error)
}

// OrderStatus is the venue's view of one order.
type OrderStatus struct {
	VenueID string
	State   enum.ResultState
	// Price and Amount describe what actually filled, not what was requested.
	Price   model.Price
	Amount  model.Amount
	Message string
}

// HasFillDetail reports whether the status carries usable fill figures.
func (s OrderStatus) HasFillDetail() bool {
	return s.Price > 0 || s.Amount > 0
}

// Config controls the reconciliation engine around a delegator.
type Config struct {
	Name         string
	PollInterval time.Duration
	Risk         RiskConfig
	Metrics      *obs.Metrics
}

type pendingOrder struct {
	req        model.TradeRequest
	venueID    string
	onComplete func(model.TradeResult)
	last       model.TradeResult
	seq        uint64
}

// Gateway reconciles asynchronous venue responses back to pending requests.
//
// All mutable state (pending table, poll timer) is owned by the gateway's
// worker goroutine: public methods only post work, so a slow venue never
// blocks the caller, and callbacks for one request id are delivered in venue
// order with exactly one terminal delivery.
type Gateway struct {
	cfg       Config
	delegator Delegator
	risk      *RiskEngine
	worker    *worker.Worker

	// worker-owned from here down
	pending   map[string]*pendingOrder
	byVenueID map[string]string
	pollTimer *time.Timer
	seq       uint64
}

// NewGateway creates and starts an adapter around the given delegator.
func NewGateway(cfg Config, delegator Delegator) *Gateway {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = _defaultPollInterval
	}
	if cfg.Name == "" {
		cfg.Name = "live"
	}
	g := &Gateway{
		cfg:       cfg,
		delegator: delegator,
		risk:      NewRiskEngine(cfg.Risk),
		worker:    worker.New("gateway-"+cfg.Name, 0),
		pending:   make(map[string]*pendingOrder),
		byVenueID: make(map[string]string),
	}
	g.worker.Start()
	return g
}

// SendRequest posts submission work for each request and returns immediately.
// Cancel-kind requests trigger the cancel path for their correlation id.
func (g *Gateway) SendRequest(requests []model.TradeRequest, onComplete func(model.TradeResult)) {
	for _, req := range requests {
		req := req
		if req.Kind == enum.RequestKindCancel {
			g.Cancel(req.ID)
			continue
		}
		if !g.worker.Post(func() { g.submit(req, onComplete) }) {
			logs.Warnf("gateway %s dropped request %s", g.cfg.Name, req.ID)
		}
	}
}

// Cancel asks the venue to cancel the request and resolves the local entry
// with a best-effort terminal result, whether or not the venue still knew it.
func (g *Gateway) Cancel(requestID string) {
	g.worker.Post(func() { g.cancelPending(requestID) })
}

// CancelAll cancels every pending request, ordered by submission time, each
// cancellation independent. A no-op when nothing is pending.
func (g *Gateway) CancelAll() {
	g.worker.Post(func() {
		entries := make([]*pendingOrder, 0, len(g.pending))
		for _, entry := range g.pending {
			entries = append(entries, entry)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
		for _, entry := range entries {
			g.cancelPending(entry.req.ID)
		}
	})
}

// GetAccountInfo queries the venue synchronously on the caller's goroutine.
func (g *Gateway) GetAccountInfo() (model.AccountSnapshot, error) {
	return g.delegator.QueryAccount(context.Background())
}

// Stop drains the worker and disarms the poll timer. Pending entries are
// left unresolved; callers cancel first when they need terminal results.
func (g *Gateway) Stop() {
	g.worker.Post(func() {
		if g.pollTimer != nil {
			g.pollTimer.Stop()
			g.pollTimer = nil
		}
	})
	g.worker.Stop()
}

func (g *Gateway) submit(req model.TradeRequest, onComplete func(model.TradeResult)) {
	now := time.Now()
	if onComplete == nil {
		onComplete = func(model.TradeResult) {}
	}

	if err := g.validate(req); err != nil {
		onComplete(model.NewErrorResult(req, err.Error(), now))
		g.cfg.Metrics.IncResult(enum.ResultStateError.String())
		return
	}
	if decision := g.risk.Evaluate(req); !decision.Allowed {
		logs.Warnf("gateway %s denied request %s, reason: %s", g.cfg.Name, req.ID, decision.Reason)
		onComplete(model.NewErrorResult(req, exception.ErrOrderRiskDenied.Error(), now))
		g.cfg.Metrics.IncResult(enum.ResultStateError.String())
		return
	}

	venueID, err := g.delegator.PlaceOrder(context.Background(), req)
	if err != nil {
		logs.Errorf("gateway %s place order %s, err: %+v", g.cfg.Name, req.ID, err)
		onComplete(model.NewErrorResult(req, err.Error(), time.Now()))
		g.cfg.Metrics.IncResult(enum.ResultStateError.String())
		return
	}

	g.seq++
	requested := model.NewRequestedResult(req, time.Now())
	g.pending[req.ID] = &pendingOrder{
		req:        req,
		venueID:    venueID,
		onComplete: onComplete,
		last:       requested,
		seq:        g.seq,
	}
	g.byVenueID[venueID] = req.ID
	g.cfg.Metrics.IncOrder(req.Kind.String())
	g.cfg.Metrics.SetPendingOrders(len(g.pending))

	onComplete(requested)
	g.armPoll()
}

func (g *Gateway) validate(req model.TradeRequest) error {
	if req.ID == "" || !req.Kind.IsAvailable() {
		return exception.ErrOrderInvalidRequest
	}
	if req.Price <= 0 || req.Amount <= 0 {
		return exception.ErrOrderInvalidRequest
	}
	if _, ok := g.pending[req.ID]; ok {
		return exception.ErrOrderDuplicateRequest
	}
	return nil
}

// armPoll lazily creates the self-rearming status poll timer. It is created
// on the first pending order and cleared when the pending set empties.
func (g *Gateway) armPoll() {
	if g.pollTimer != nil || len(g.pending) == 0 {
		return
	}
	g.pollTimer = time.AfterFunc(g.cfg.PollInterval, func() {
		g.worker.Post(g.poll)
	})
}

func (g *Gateway) poll() {
	g.pollTimer = nil
	if len(g.pending) == 0 {
		return
	}

	started := time.Now()
	venueIDs := make([]string, 0, len(g.pending))
	for _, entry := range g.pending {
		venueIDs = append(venueIDs, entry.venueID)
	}

	statuses, err := g.delegator.QueryOrders(context.Background(), venueIDs)
	g.cfg.Metrics.ObservePoll(time.Since(started))
	if err != nil {
		logs.Errorf("gateway %s poll orders, err: %+v", g.cfg.Name, err)
		g.armPoll()
		return
	}

	for _, status := range statuses {
		requestID, ok := g.byVenueID[status.VenueID]
		if !ok {
			continue
		}
		entry, ok := g.pending[requestID]
		if !ok || !status.State.IsTerminal() {
			continue
		}
		g.resolve(entry, status)
	}

	g.armPoll()
}

// resolve delivers the terminal result for a pending entry and removes it.
// Fill figures come from the venue status so partial fills are reported with
// the executed amount, not the requested one.
func (g *Gateway) resolve(entry *pendingOrder, status OrderStatus) {
	result := model.TradeResult{
		Request:   entry.req,
		Kind:      entry.req.Kind,
		Price:     status.Price,
		Amount:    status.Amount,
		Message:   status.Message,
		State:     status.State,
		SettledAt: time.Now(),
	}

	delete(g.pending, entry.req.ID)
	delete(g.byVenueID, entry.venueID)
	g.cfg.Metrics.IncResult(result.State.String())
	g.cfg.Metrics.SetPendingOrders(len(g.pending))

	entry.onComplete(result)
}

func (g *Gateway) cancelPending(requestID string) {
	entry, ok := g.pending[requestID]
	if !ok {
		return
	}

	status, err := g.delegator.CancelOrder(context.Background(), entry.venueID)
	if err != nil {
		logs.Errorf("gateway %s cancel order %s, err: %+v", g.cfg.Name, requestID, err)
		status = OrderStatus{VenueID: entry.venueID}
	}
	if !status.HasFillDetail() {
		// The cancel response had no fill figures; query once for a better view.
		if fresh, err := g.delegator.QueryOrders(context.Background(), []string{entry.venueID}); err == nil {
			for _, s := range fresh {
				if s.VenueID == entry.venueID {
					status = s
					break
				}
			}
		}
	}
	if !status.State.IsTerminal() {
		status.State = enum.ResultStateDone
	}
	if status.Message == "" {
		status.Message = "canceled"
	}

	g.resolve(entry, status)

	if len(g.pending) == 0 && g.pollTimer != nil {
		g.pollTimer.Stop()
		g.pollTimer = nil
	}
}
