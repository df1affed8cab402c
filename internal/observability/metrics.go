package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis command failures by operation.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldcase_redis_errors_total",
		Help: "Total number of Redis errors by operation",
	}, []string{"operation"})

	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldcase_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AuthzDenials counts access checks that ended in a denial, by action.
	AuthzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldcase_authz_denials_total",
		Help: "Total number of denied project access checks",
	}, []string{"action"})

	// InvitationEvents counts invitation lifecycle transitions.
	InvitationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldcase_invitation_events_total",
		Help: "Invitation lifecycle events by outcome",
	}, []string{"event"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
