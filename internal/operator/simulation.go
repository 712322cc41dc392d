package operator

import (
	"github.com/yanun0323/logs"

	"main/internal/model"
)

// NewSimulation creates an operator that replays a finite data series. It
// behaves like a live operator except that series exhaustion is the normal
// ending: the operator settles into the simulation_terminated state with the
// closing report already built, instead of ticking forever.
func NewSimulation(cfg Config) *Operator {
	op := New(cfg)
	op.replay = true
	return op
}

// Done is closed once a replay run has terminated and its closing report is
// available through Stop. It never closes for a live operator.
func (op *Operator) Done() <-chan struct{} {
	return op.done
}

// finalizeReplay ends a replay run. Runs on the worker, so no tick races it.
// Exhaustion can surface twice (once from the data side, once as a gateway
// result); only the first call does anything.
func (op *Operator) finalizeReplay() {
	op.mu.Lock()
	if op.state == StateSimulationTerminated {
		op.mu.Unlock()
		return
	}
	op.state = StateSimulationTerminated
	op.disarmLocked()
	op.mu.Unlock()

	if infos, err := op.dataProvider.GetInfo(); err == nil {
		op.analyzer.PutTradingInfo(infos)
	}

	report, err := op.analyzer.GetReturnReport()
	if err != nil {
		logs.Errorf("%s replay closing report, err: %+v", op.cfg.Tag, err)
	} else {
		op.cfg.Metrics.SetReturnRate(report.ReturnRate)
		logs.Infof("%s replay finished: return %.3f%%, %d results",
			op.cfg.Tag, report.ReturnRate, report.ResultCount)
	}

	op.mu.Lock()
	op.finalReport = report
	op.mu.Unlock()
	op.doneOnce.Do(func() { close(op.done) })
}

// FinalReport returns the closing report of a terminated replay, nil before
// termination.
func (op *Operator) FinalReport() *model.ReportSummary {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.finalReport
}
