package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus collectors. A nil *Metrics is a
// valid no-op receiver so components never guard their instrumentation.
type Metrics struct {
	ticks       prometheus.Counter
	tickFaults  prometheus.Counter
	tickLatency prometheus.Histogram
	pollLatency prometheus.Histogram

	orders  *prometheus.CounterVec
	results *prometheus.CounterVec
	pending prometheus.Gauge
	score   prometheus.Gauge
}

// NewMetrics builds and registers the collectors. A nil registerer skips
// registration, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_ticks_total",
			Help: "Decision cycles executed",
		}),
		tickFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_tick_faults_total",
			Help: "Decision cycles aborted by recoverable faults",
		}),
		tickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_tick_seconds",
			Help:    "Synchronous portion of a decision cycle",
			Buckets: prometheus.DefBuckets,
		}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_order_poll_seconds",
			Help:    "Batched venue status query duration",
			Buckets: prometheus.DefBuckets,
		}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Orders accepted by the venue",
		}, []string{"kind"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_results_total",
			Help: "Completion results delivered",
		}, []string{"state"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_pending_orders",
			Help: "Orders awaiting a terminal venue status",
		}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_return_rate",
			Help: "Last best-effort return rate snapshot (percent)",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ticks, m.tickFaults, m.tickLatency, m.pollLatency,
			m.orders, m.results, m.pending, m.score,
		)
	}
	return m
}

func (m *Metrics) IncTick() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}

func (m *Metrics) IncTickFault() {
	if m == nil {
		return
	}
	m.tickFaults.Inc()
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickLatency.Observe(d.Seconds())
}

func (m *Metrics) ObservePoll(d time.Duration) {
	if m == nil {
		return
	}
	m.pollLatency.Observe(d.Seconds())
}

func (m *Metrics) IncOrder(kind string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncResult(state string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(state).Inc()
}

func (m *Metrics) SetPendingOrders(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) SetReturnRate(rate float64) {
	if m == nil {
		return
	}
	m.score.Set(rate)
}
