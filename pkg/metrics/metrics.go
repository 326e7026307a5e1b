// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConversationsTrashedTotal counts soft-deleted conversations.
	ConversationsTrashedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_trashed_total",
			Help: "Total conversations moved to trash",
		},
	)

	// ConversationsRestoredTotal counts conversations restored from trash.
	ConversationsRestoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_restored_total",
			Help: "Total conversations restored from trash",
		},
	)

	// ConversationsPurgedTotal counts permanently deleted conversations.
	ConversationsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_purged_total",
			Help: "Total conversations permanently deleted",
		},
	)

	// ChatTurnsTotal counts persisted chat turns by agent provider.
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns persisted",
		},
		[]string{"provider"},
	)

	// RelayStreamDuration tracks upstream provider streaming duration.
	RelayStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_stream_duration_seconds",
			Help:    "Upstream LLM streaming response duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// RelayTokensTotal counts tokens relayed by direction.
	RelayTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_tokens_total",
			Help: "Total LLM tokens relayed",
		},
		[]string{"provider", "direction"},
	)

	// SSEConnectionsActive tracks active SSE relay connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// AuthFailuresTotal counts rejected authentication attempts.
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total rejected authentication attempts",
		},
		[]string{"reason"},
	)
)

// RecordRequest records metrics for a completed HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordRelayStream records a completed upstream streaming exchange.
func RecordRelayStream(provider, status string, duration float64, tokensIn, tokensOut int) {
	RelayStreamDuration.WithLabelValues(provider, status).Observe(duration)
	RelayTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	RelayTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
