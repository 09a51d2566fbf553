// Package metrics defines Prometheus metrics for tasktrail.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasktrail_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktrail_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktrail_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	// TaskMutations counts coordinated mutations by action and outcome
	// (ok, validation, not_found, forbidden, unauthenticated, storage).
	TaskMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktrail_task_mutations_total",
			Help: "Task mutations by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	MutationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tasktrail_mutation_duration_seconds",
			Help:    "Time from transaction begin to commit or abort",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	EventQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tasktrail_event_queue_depth",
			Help: "Current task event queue depth",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tasktrail_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		TaskMutations, MutationDuration,
		EventQueueDepth, WSConnections,
	)
}
