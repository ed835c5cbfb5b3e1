package reconciliation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketflow_reconciliation_records_total",
		Help: "Reconciliation records written, by operation and failure kind",
	}, []string{"operation", "failure_kind"})

	relayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketflow_reconciliation_relayed_total",
		Help: "Reconciliation records published to the broker",
	})

	relayFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketflow_reconciliation_relay_failures_total",
		Help: "Relay batches that failed to publish",
	})

	relayCircuitOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ticketflow_reconciliation_relay_circuit_open",
		Help: "1 while the relay circuit breaker is open",
	})
)
