package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP server

	// APIRequestsTotal counts handled API requests
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "office_orders_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration observes request latency
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "office_orders_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// IdempotentReplaysTotal counts duplicate requests answered from the idempotency store
	IdempotentReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "office_orders_idempotent_replays_total",
			Help: "Total number of duplicate mutating requests, by outcome",
		},
		[]string{"outcome"},
	)

	// Workflow

	// TaskTransitionsTotal counts lifecycle transitions
	TaskTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "office_orders_task_transitions_total",
			Help: "Total number of task lifecycle transitions",
		},
		[]string{"trigger", "from", "to"},
	)

	// TaskTransitionRejectionsTotal counts refused transitions by reason
	TaskTransitionRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "office_orders_task_transition_rejections_total",
			Help: "Total number of refused task transitions",
		},
		[]string{"trigger", "reason"},
	)

	// StatusFallbackTotal counts status lookups that fell back to the default id
	StatusFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "office_orders_status_resolution_fallback_total",
			Help: "Total number of status descriptions resolved to the fallback id",
		},
		[]string{"description"},
	)

	// EventHandlersTotal counts event handler runs by outcome
	EventHandlersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "office_orders_event_handlers_total",
			Help: "Total number of event handler executions",
		},
		[]string{"event_type", "handler", "outcome"},
	)

	// Backend client

	// BackendCallDuration observes REST client call latency
	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "office_orders_backend_call_duration_seconds",
			Help:    "Backend call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "outcome"},
	)
)
