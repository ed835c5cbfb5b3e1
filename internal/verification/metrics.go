package verification

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketflow_verification_calls_total",
		Help: "Calls to the verification service by operation and outcome kind",
	}, []string{"operation", "outcome"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticketflow_verification_call_duration_seconds",
		Help:    "Latency of calls to the verification service",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})
)

func observe(operation string, kind Kind, elapsed time.Duration) {
	callsTotal.WithLabelValues(operation, string(kind)).Inc()
	callDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
