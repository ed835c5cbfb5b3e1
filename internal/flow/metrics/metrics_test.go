package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncFlowsCreated()
	m.IncFlowsCreated()
	m.IncFlowsEvicted()
	m.IncTransition("home", "email")
	m.IncFallbackAdvance("submit-profile")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.flowsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeFlows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("home", "email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbackAdvances.WithLabelValues("submit-profile")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncFlowsCreated()
		m.IncFlowsRestored()
		m.IncFlowsEvicted()
		m.IncTransition("a", "b")
		m.IncBlocked("send-code")
		m.IncFallbackAdvance("confirm-payment")
		m.IncSnapshotFailure()
	})
}
