package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for batch dispatch.
type Metrics struct {
	// BatchesStarted counts batch runs initiated.
	BatchesStarted prometheus.Counter

	// BatchesRejected counts batch runs refused by the per-group cap.
	BatchesRejected prometheus.Counter

	// AttemptsTotal counts per-contact attempts, labeled by final status.
	AttemptsTotal *prometheus.CounterVec

	// DialFailures counts provider dial errors.
	DialFailures prometheus.Counter

	// PollTimeouts counts attempts that never reached a terminal status
	// within the poll budget.
	PollTimeouts prometheus.Counter

	// CallDuration observes completed call durations in seconds.
	CallDuration prometheus.Histogram
}

// NewMetrics registers the dispatch metrics on the given registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BatchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_started_total",
			Help:      "Total number of dispatch batches started",
		}),
		BatchesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_rejected_total",
			Help:      "Total number of dispatch batches refused by the per-group cap",
		}),
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of per-contact dial attempts by final status",
		}, []string{"status"}),
		DialFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dial_failures_total",
			Help:      "Total number of provider dial errors",
		}),
		PollTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_timeouts_total",
			Help:      "Total number of attempts that exhausted the poll budget",
		}),
		CallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Completed call durations in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
	}
}
