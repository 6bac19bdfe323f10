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

	// WSConnectionsActive tracks active websocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)

	// WSEventsTotal tracks websocket events by envelope type and
	// direction (inbound from clients, outbound fan-out).
	WSEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_total",
			Help: "Total websocket events processed",
		},
		[]string{"type", "direction"},
	)

	// WSEvictionsTotal tracks dead connections evicted during fan-out.
	WSEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_evictions_total",
			Help: "Total dead websocket connections evicted",
		},
	)

	// ConversationsTotal tracks conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_conversations_total",
			Help: "Total conversations created",
		},
	)

	// MessagesTotal tracks messages persisted, by message type.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages persisted",
		},
		[]string{"type"},
	)

	// NotificationsTotal tracks offline notifications, by channel and outcome.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_notifications_total",
			Help: "Total offline notifications attempted",
		},
		[]string{"channel", "status"},
	)

	// ListingsTotal tracks listings created.
	ListingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listings_total",
			Help: "Total listings created",
		},
	)

	// BoostsTotal tracks paid boost purchases.
	BoostsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monetization_boosts_total",
			Help: "Total boost purchases",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordNotification records an offline notification attempt.
func RecordNotification(channel, status string) {
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// IncrementWSConnections increments the active websocket connection count.
func IncrementWSConnections() {
	WSConnectionsActive.Inc()
}

// DecrementWSConnections decrements the active websocket connection count.
func DecrementWSConnections() {
	WSConnectionsActive.Dec()
}
