// Package metrics provides Prometheus metrics for the call bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "haulcall"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	CallsTotal   prometheus.Counter
	CallsActive  prometheus.Gauge
	CallsFailed  prometheus.Counter
	CallDuration prometheus.Histogram

	SegmentsTotal   prometheus.Counter
	SegmentsDeduped prometheus.Counter
	SegmentsPartial prometheus.Counter

	EmergenciesDetected prometheus.Counter
	Escalations         *prometheus.CounterVec // outcome: acked|timeout

	SummariesWritten prometheus.Counter
	SummaryRetries   prometheus.Counter

	LLMFallbacks prometheus.Counter
}

// Default is the global metrics instance.
var Default = New()

// New creates and registers all metrics.
func New() *Metrics {
	return &Metrics{
		CallsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total call sessions created",
		}),
		CallsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Currently active call sessions",
		}),
		CallsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_failed_total",
			Help:      "Calls finalized by transport failure",
		}),
		CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Call duration from start to terminal state",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
		}),
		SegmentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Transcript segments processed",
		}),
		SegmentsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_deduped_total",
			Help:      "Duplicate final segments dropped",
		}),
		SegmentsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_partial_total",
			Help:      "Partial (non-final) segments received",
		}),
		EmergenciesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emergencies_detected_total",
			Help:      "Calls that branched to the emergency scenario",
		}),
		Escalations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Dispatcher escalations by outcome",
		}, []string{"outcome"}),
		SummariesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_written_total",
			Help:      "Structured summaries persisted",
		}),
		SummaryRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_retries_total",
			Help:      "Summary writes retried after a persistence failure",
		}),
		LLMFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_fallbacks_total",
			Help:      "Prompt compositions that fell back to templates",
		}),
	}
}
