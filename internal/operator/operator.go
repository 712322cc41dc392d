package operator

import (
	"errors"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/analyzer"
	"main/internal/dataprovider"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/strategy"
	"main/internal/worker"
	"main/pkg/exception"
)

const (
	_defaultInterval   = 10 * time.Second
	_defaultScoreEvery = 60
)

// Config controls one operator instance.
type Config struct {
	Tag      string
	Interval time.Duration
	// ScoreEvery snapshots a best-effort rolling score every N ticks. 0 disables.
	ScoreEvery int
	Metrics    *obs.Metrics
}

// Operator drives the periodic decision cycle: pull market data, feed the
// strategy and analyzer, submit the strategy's orders, and reconcile the
// asynchronous completions back in. Its timer never waits for venue I/O.
type Operator struct {
	cfg    Config
	worker *worker.Worker
	replay bool

	mu          sync.Mutex
	state       State
	initialized bool
	interval    time.Duration
	timer       *time.Timer
	lastExpired time.Time
	finalReport *model.ReportSummary

	dataProvider dataprovider.DataProvider
	strategy     strategy.Strategy
	gateway      gateway.OrderGateway
	analyzer     analyzer.Analyzer
	budget       model.Price

	// worker-owned
	tickCount int

	resultsMu sync.Mutex
	results   []model.TradeResult

	done     chan struct{}
	doneOnce sync.Once
}

// New creates an operator in the uninitialized state.
func New(cfg Config) *Operator {
	if cfg.Interval <= 0 {
		cfg.Interval = _defaultInterval
	}
	if cfg.ScoreEvery < 0 {
		cfg.ScoreEvery = _defaultScoreEvery
	}
	if cfg.Tag == "" {
		cfg.Tag = "operator"
	}

	op := &Operator{
		cfg:      cfg,
		worker:   worker.New(cfg.Tag, 0),
		interval: cfg.Interval,
		done:     make(chan struct{}),
	}
	op.worker.OnTerminated(func(err error) {
		if err != nil {
			// Intentionally not restarted: continuing after an unknown fault
			// risks inconsistent trading state. An operator must intervene.
			logs.Errorf("%s ticking halted, err: %+v", op.cfg.Tag, err)
		}
	})
	return op
}

// Initialize wires the four collaborators. One-time; a repeated call is a
// silent no-op.
func (op *Operator) Initialize(
	dataProvider dataprovider.DataProvider,
	st strategy.Strategy,
	gw gateway.OrderGateway,
	an analyzer.Analyzer,
	budget model.Price,
) {
	op.mu.Lock()
	defer op.mu.Unlock()

	if op.initialized {
		return
	}
	op.initialized = true
	op.dataProvider = dataProvider
	op.strategy = st
	op.gateway = gw
	op.analyzer = an
	op.budget = budget

	st.Initialize(budget)
	an.Initialize(gw.GetAccountInfo)
	op.state = StateReady
}

// Start begins ticking. It reports false when the operator is not ready or a
// timer is already armed.
func (op *Operator) Start() bool {
	op.mu.Lock()
	if !op.initialized || op.state != StateReady || op.timer != nil {
		op.mu.Unlock()
		return false
	}
	op.state = StateRunning
	op.lastExpired = time.Time{}
	op.mu.Unlock()

	op.analyzer.MakeStartPoint()
	op.worker.Start()
	op.worker.Post(op.executeTick)
	logs.Infof("%s started, interval: %s", op.cfg.Tag, op.Interval())
	return true
}

// Stop drains in-flight work, cancels all outstanding orders, closes out the
// bookkeeping with one final snapshot, and returns the closing report. The
// operator goes back to ready for reuse. Completion callbacks still in
// flight after Stop returns are dropped by the stopped worker.
func (op *Operator) Stop() *model.ReportSummary {
	op.mu.Lock()
	switch op.state {
	case StateSimulationTerminated:
		report := op.finalReport
		op.mu.Unlock()
		op.worker.Stop()
		return report
	case StateRunning:
		op.state = StateTerminating
		op.disarmLocked()
		op.mu.Unlock()
	default:
		op.mu.Unlock()
		return nil
	}

	op.gateway.CancelAll()
	op.worker.Stop()

	// A game-over result queued before the stop marker terminates the replay
	// during the drain. The terminal state sticks; the report it built is the
	// closing report, and the operator never goes back to ready.
	op.mu.Lock()
	if op.state == StateSimulationTerminated {
		report := op.finalReport
		op.mu.Unlock()
		return report
	}
	op.mu.Unlock()

	if infos, err := op.dataProvider.GetInfo(); err == nil {
		op.analyzer.PutTradingInfo(infos)
	}
	report, err := op.analyzer.GetReturnReport()
	if err != nil {
		logs.Errorf("%s closing report, err: %+v", op.cfg.Tag, err)
	}

	op.mu.Lock()
	op.state = StateReady
	op.mu.Unlock()
	logs.Infof("%s stopped", op.cfg.Tag)
	return report
}

// SetInterval changes the tick period. While running, the change is
// serialized through the worker so no tick observes a torn update.
func (op *Operator) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	set := func() {
		op.mu.Lock()
		op.interval = interval
		op.mu.Unlock()
	}
	if !op.worker.Post(set) {
		set()
	}
}

// Interval returns the current tick period.
func (op *Operator) Interval() time.Duration {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.interval
}

// State returns the current lifecycle state.
func (op *Operator) State() State {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// GetScore computes a rolling report and hands it to the callback. The work
// runs on the worker when it is alive, inline otherwise, so the score stays
// queryable after a fatal fault.
func (op *Operator) GetScore(callback func(*model.ReportSummary)) {
	if callback == nil {
		return
	}
	task := func() {
		report, err := op.analyzer.GetReturnReport()
		if err != nil {
			logs.Errorf("%s score, err: %+v", op.cfg.Tag, err)
			callback(nil)
			return
		}
		op.cfg.Metrics.SetReturnRate(report.ReturnRate)
		callback(report)
	}
	if !op.worker.Post(task) {
		task()
	}
}

// GetTradingResults returns a copy of every terminal result seen so far.
func (op *Operator) GetTradingResults() []model.TradeResult {
	op.resultsMu.Lock()
	defer op.resultsMu.Unlock()
	out := make([]model.TradeResult, len(op.results))
	copy(out, op.results)
	return out
}

// executeTick is the synchronous portion of one decision cycle. It always
// runs on the worker goroutine. Recoverable faults (bad data shapes) abort
// the cycle and let the next timer fire; panics crash the worker by design.
func (op *Operator) executeTick() {
	if op.State() != StateRunning {
		return
	}

	started := time.Now()
	op.tickCount++

	infos, err := op.dataProvider.GetInfo()
	if err != nil {
		if errors.Is(err, exception.ErrDataExhausted) && op.replay {
			op.finalizeReplay()
			return
		}
		logs.Warnf("%s tick %d aborted, err: %+v", op.cfg.Tag, op.tickCount, err)
		op.cfg.Metrics.IncTickFault()
		op.rearm()
		return
	}
	for _, info := range infos {
		if !info.Validate() {
			logs.Warnf("%s tick %d aborted, malformed snapshot: %+v", op.cfg.Tag, op.tickCount, info)
			op.cfg.Metrics.IncTickFault()
			op.rearm()
			return
		}
	}

	op.strategy.UpdateTradingInfo(infos)
	op.analyzer.PutTradingInfo(infos)

	if requests := op.strategy.GetRequest(); len(requests) > 0 {
		op.analyzer.PutRequests(requests)
		op.gateway.SendRequest(requests, op.onComplete)
	}

	op.cfg.Metrics.IncTick()
	op.cfg.Metrics.ObserveTick(time.Since(started))

	if op.cfg.ScoreEvery > 0 && op.tickCount%op.cfg.ScoreEvery == 0 {
		op.snapshotScore()
	}

	op.rearm()
}

// onComplete is handed to the gateway with every submission. It re-enters
// the operator through the worker, so strategy and analyzer are only ever
// touched from one goroutine. Results arriving after the worker stopped are
// dropped.
func (op *Operator) onComplete(result model.TradeResult) {
	if !op.worker.Post(func() { op.handleResult(result) }) {
		logs.Debugf("%s dropped late result for request %s", op.cfg.Tag, result.Request.ID)
	}
}

func (op *Operator) handleResult(result model.TradeResult) {
	if op.replay && result.IsExhausted() {
		op.finalizeReplay()
		return
	}

	op.strategy.UpdateResult(result)
	if !result.IsTerminal() {
		return
	}

	op.resultsMu.Lock()
	op.results = append(op.results, result)
	op.resultsMu.Unlock()
	op.analyzer.PutResult(result)
}

// rearm schedules the next tick, compensating the delay by the time already
// spent since this tick's timer expired so the steady-state period converges
// to the configured interval. The first interval after Start has no expiry
// reference and runs uncompensated.
func (op *Operator) rearm() {
	op.mu.Lock()

	if op.state != StateRunning || op.timer != nil {
		op.mu.Unlock()
		return
	}

	interval := op.interval
	delay := interval
	if !op.lastExpired.IsZero() {
		delay = interval - time.Since(op.lastExpired)
		if delay < 0 {
			delay = 0
		}
	}

	// Sub-second cadences skip the timer entirely: creating one per tick
	// would dominate the period. The worker waits out the remainder and
	// calls the tick handler directly.
	if interval < time.Second {
		op.mu.Unlock()
		op.worker.Post(func() {
			if delay > 0 {
				time.Sleep(delay)
			}
			op.mu.Lock()
			op.lastExpired = time.Now()
			op.mu.Unlock()
			op.executeTick()
		})
		return
	}

	op.timer = time.AfterFunc(delay, op.onTimerExpired)
	op.mu.Unlock()
}

func (op *Operator) onTimerExpired() {
	op.mu.Lock()
	op.lastExpired = time.Now()
	op.timer = nil
	running := op.state == StateRunning
	op.mu.Unlock()

	if !running {
		return
	}
	if !op.worker.Post(op.executeTick) {
		logs.Warnf("%s tick dropped, worker unavailable", op.cfg.Tag)
	}
}

func (op *Operator) disarmLocked() {
	if op.timer != nil {
		op.timer.Stop()
		op.timer = nil
	}
}

// snapshotScore logs a best-effort rolling score. Failures never abort the tick.
func (op *Operator) snapshotScore() {
	report, err := op.analyzer.GetReturnReport()
	if err != nil {
		logs.Warnf("%s score snapshot, err: %+v", op.cfg.Tag, err)
		return
	}
	op.cfg.Metrics.SetReturnRate(report.ReturnRate)
	logs.Infof("%s score: return %.3f%%, estimated %s", op.cfg.Tag, report.ReturnRate, report.EstimatedValue)
}
