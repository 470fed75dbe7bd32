// Package telemetry exposes Prometheus metrics for business-level
// observability of the order modification funnel.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the modification workflow.
// A nil *Metrics is valid and records nothing, so wiring stays optional
// in tests and library use.
type Metrics struct {
	SessionsStarted    prometheus.Counter
	Previews           prometheus.Counter
	Commits            prometheus.Counter
	Cancellations      prometheus.Counter
	Failures           *prometheus.CounterVec
	RefundsIssued      prometheus.Counter
	TransitionFailures prometheus.Counter
	PriceDelta         prometheus.Histogram
}

// NewMetrics creates and registers modification metrics with the
// default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vidar"
	}
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modification_sessions_started_total",
			Help:      "Order modification sessions opened",
		}),
		Previews: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modification_previews_total",
			Help:      "Dry-run submissions that returned a projection",
		}),
		Commits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modification_commits_total",
			Help:      "Successful modification commits",
		}),
		Cancellations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modification_cancellations_total",
			Help:      "Previewed modifications cancelled by the operator",
		}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modification_failures_total",
			Help:      "Typed submission failures by error code",
		}, []string{"code"}),
		RefundsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modification_refunds_total",
			Help:      "Refunds issued by committed modifications",
		}),
		TransitionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modification_transition_failures_total",
			Help:      "State transitions rejected after a successful commit",
		}),
		PriceDelta: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "modification_price_delta_minor_units",
			Help:      "Absolute price delta of committed modifications",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

func (m *Metrics) Previewed() {
	if m != nil {
		m.Previews.Inc()
	}
}

func (m *Metrics) Committed(priceDelta int64, refunded bool) {
	if m == nil {
		return
	}
	m.Commits.Inc()
	if refunded {
		m.RefundsIssued.Inc()
	}
	if priceDelta < 0 {
		priceDelta = -priceDelta
	}
	m.PriceDelta.Observe(float64(priceDelta))
}

func (m *Metrics) Cancelled() {
	if m != nil {
		m.Cancellations.Inc()
	}
}

func (m *Metrics) Failed(code string) {
	if m != nil {
		m.Failures.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) TransitionFailed() {
	if m != nil {
		m.TransitionFailures.Inc()
	}
}
