package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation for a single realm, grounded
// on the corpus's promauto.With(reg) registration pattern rather than the
// package-global promauto default registry, so multiple realms (and tests)
// never collide on metric names.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	MessagesTotal     *prometheus.CounterVec
	CallsTotal        *prometheus.CounterVec
	CallDuration      prometheus.Histogram
	RegisteredProcs   prometheus.Gauge
	ActiveSubscribers prometheus.Gauge
}

// NewMetrics creates and registers a realm's metrics with reg, labeling
// every metric with the realm's name so a process hosting several realms
// can tell them apart in one registry.
func NewMetrics(reg prometheus.Registerer, realm string) *Metrics {
	labels := prometheus.Labels{"realm": realm}
	return &Metrics{
		ActiveSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace:   "tornwamp",
			Name:        "active_sessions",
			Help:        "Number of attached sessions in the realm.",
			ConstLabels: labels,
		}),
		MessagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "tornwamp",
			Name:        "messages_total",
			Help:        "Total WAMP messages routed to subscribers, by message type (only EVENT is counted).",
			ConstLabels: labels,
		}, []string{"type"}),
		CallsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "tornwamp",
			Name:        "calls_total",
			Help:        "Total RPC calls, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		CallDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace:   "tornwamp",
			Name:        "call_duration_seconds",
			Help:        "Time from CALL to terminal RESULT/ERROR.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
		RegisteredProcs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace:   "tornwamp",
			Name:        "registered_procedures",
			Help:        "Number of procedures currently registered.",
			ConstLabels: labels,
		}),
		ActiveSubscribers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace:   "tornwamp",
			Name:        "active_subscriptions",
			Help:        "Number of live subscriptions across all topics.",
			ConstLabels: labels,
		}),
	}
}
