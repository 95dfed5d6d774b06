package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "defect_lens"

// LensMetrics holds the Prometheus metrics of the report viewer backend.
type LensMetrics struct {
	RedactionCalls    *prometheus.CounterVec
	RedactionDuration prometheus.Histogram
	StaleDiscards     prometheus.Counter
	Selections        prometheus.Counter
	RoleChanges       *prometheus.CounterVec
	StreamClients     prometheus.Gauge
}

// NewLensMetrics creates the viewer metrics and registers them on reg.
func NewLensMetrics(reg prometheus.Registerer) *LensMetrics {
	factory := promauto.With(reg)
	return &LensMetrics{
		RedactionCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "redaction_calls_total",
			Help:      "Total number of applied redaction calls by outcome.",
		}, []string{"outcome"}), // outcome: succeeded, failed
		RedactionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "redaction_duration_seconds",
			Help:      "Latency of redaction calls whose result was applied.",
			Buckets:   prometheus.DefBuckets,
		}),
		StaleDiscards: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "redaction_stale_discards_total",
			Help:      "Total number of redaction results dropped because the selection changed.",
		}),
		Selections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "selections_total",
			Help:      "Total number of applied defect selections.",
		}),
		RoleChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "role_changes_total",
			Help:      "Total number of role changes by new role.",
		}, []string{"role"}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected view stream clients.",
		}),
	}
}

// RedactorMetrics holds the Prometheus metrics of the redaction service.
type RedactorMetrics struct {
	Requests         *prometheus.CounterVec
	UpstreamDuration prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	JournalErrors    prometheus.Counter
}

// NewRedactorMetrics creates the redaction service metrics and registers them on reg.
func NewRedactorMetrics(reg prometheus.Registerer) *RedactorMetrics {
	factory := promauto.With(reg)
	return &RedactorMetrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redactor",
			Name:      "requests_total",
			Help:      "Total number of redaction requests by role and source.",
		}, []string{"role", "source"}), // source: passthrough, cache, upstream, error
		UpstreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redactor",
			Name:      "upstream_duration_seconds",
			Help:      "Latency of upstream redaction backend calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redactor",
			Name:      "cache_hits_total",
			Help:      "Total number of redaction cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redactor",
			Name:      "cache_misses_total",
			Help:      "Total number of redaction cache misses.",
		}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redactor",
			Name:      "journal_errors_total",
			Help:      "Total number of audit journal append failures.",
		}),
	}
}
