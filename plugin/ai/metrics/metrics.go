// Package metrics exposes Prometheus collectors for the AI core.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focuspilot_cache_lookups_total",
			Help: "Total number of cache lookups by namespace and result.",
		},
		[]string{"namespace", "result"},
	)

	CollaboratorCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focuspilot_collaborator_calls_total",
			Help: "Total number of external model calls by collaborator and status.",
		},
		[]string{"collaborator", "status"},
	)

	CollaboratorCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "focuspilot_collaborator_call_duration_seconds",
			Help:    "External model call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collaborator"},
	)

	ValidationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focuspilot_validation_rejections_total",
			Help: "Total number of inputs rejected by the validation pipeline.",
		},
		[]string{"reason"},
	)

	SafetyFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focuspilot_safety_fallbacks_total",
			Help: "Total number of safety checks answered by the local heuristic.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CacheLookupsTotal,
		CollaboratorCallsTotal,
		CollaboratorCallDuration,
		ValidationRejectionsTotal,
		SafetyFallbacksTotal,
	)
}

// Namespace returns the logical namespace of a cache key ("goals_ab12..." -> "goals").
func Namespace(key string) string {
	ns, _, found := strings.Cut(key, "_")
	if !found || ns == "" {
		return "other"
	}
	return ns
}

// CacheLookup records a cache hit or miss for the key's namespace.
func CacheLookup(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(Namespace(key), result).Inc()
}

// CollaboratorCall records the outcome and latency of an external call.
func CollaboratorCall(collaborator string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CollaboratorCallsTotal.WithLabelValues(collaborator, status).Inc()
	CollaboratorCallDuration.WithLabelValues(collaborator).Observe(time.Since(started).Seconds())
}

// ValidationRejected records a rejected input.
func ValidationRejected(reason string) {
	ValidationRejectionsTotal.WithLabelValues(reason).Inc()
}
