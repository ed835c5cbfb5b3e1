package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the flow service. All methods are safe on a nil receiver.
type Metrics struct {
	flowsCreated     prometheus.Counter
	flowsRestored    prometheus.Counter
	flowsEvicted     prometheus.Counter
	activeFlows      prometheus.Gauge
	transitions      *prometheus.CounterVec
	blockedActions   *prometheus.CounterVec
	fallbackAdvances *prometheus.CounterVec
	snapshotFailures prometheus.Counter
}

// New registers the flow metrics against reg, or the default registry when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		flowsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "ticketflow_flows_created_total",
			Help: "Flows started",
		}),
		flowsRestored: f.NewCounter(prometheus.CounterOpts{
			Name: "ticketflow_flows_restored_total",
			Help: "Flows restored from a snapshot",
		}),
		flowsEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "ticketflow_flows_evicted_total",
			Help: "Idle flows dropped from memory",
		}),
		activeFlows: f.NewGauge(prometheus.GaugeOpts{
			Name: "ticketflow_flows_active",
			Help: "Flows currently held in memory",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_screen_transitions_total",
			Help: "Screen transitions by source and target screen",
		}, []string{"from", "to"}),
		blockedActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_actions_blocked_total",
			Help: "Actions not dispatched because required fields were missing or a resend was cooling down",
		}, []string{"action"}),
		fallbackAdvances: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_fallback_advances_total",
			Help: "Screens advanced even though the remote write failed",
		}, []string{"action"}),
		snapshotFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ticketflow_snapshot_failures_total",
			Help: "Snapshot saves or loads that failed",
		}),
	}
}

func (m *Metrics) IncFlowsCreated() {
	if m == nil {
		return
	}
	m.flowsCreated.Inc()
	m.activeFlows.Inc()
}

func (m *Metrics) IncFlowsRestored() {
	if m == nil {
		return
	}
	m.flowsRestored.Inc()
	m.activeFlows.Inc()
}

func (m *Metrics) IncFlowsEvicted() {
	if m == nil {
		return
	}
	m.flowsEvicted.Inc()
	m.activeFlows.Dec()
}

func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncBlocked(action string) {
	if m == nil {
		return
	}
	m.blockedActions.WithLabelValues(action).Inc()
}

func (m *Metrics) IncFallbackAdvance(action string) {
	if m == nil {
		return
	}
	m.fallbackAdvances.WithLabelValues(action).Inc()
}

func (m *Metrics) IncSnapshotFailure() {
	if m == nil {
		return
	}
	m.snapshotFailures.Inc()
}
