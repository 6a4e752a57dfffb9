// Package metrics provides Prometheus metrics for the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. The registry is private so tests
// can create isolated instances without default-registry collisions.
type Metrics struct {
	MessagesTotal      *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	DeliveryDuration   prometheus.Histogram
	SessionsActive     prometheus.Gauge
	ErrorsTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_messages_total",
				Help: "Inbound messages by extracted intent and resulting state.",
			},
			[]string{"intent", "state"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_notifications_total",
				Help: "Notification tasks by channel and final status.",
			},
			[]string{"channel", "status"},
		),
		DeliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bot_notification_delivery_seconds",
				Help:    "Time from first delivery attempt to success, retries included.",
				Buckets: prometheus.DefBuckets,
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bot_sessions_active",
				Help: "Conversation sessions currently held in memory.",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.MessagesTotal)
	reg.MustRegister(m.NotificationsTotal)
	reg.MustRegister(m.DeliveryDuration)
	reg.MustRegister(m.SessionsActive)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordMessage increments the inbound message counter.
func (m *Metrics) RecordMessage(intent, state string) {
	m.MessagesTotal.WithLabelValues(intent, state).Inc()
}

// RecordNotification increments the notification counter.
func (m *Metrics) RecordNotification(channel, status string) {
	m.NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// ObserveDelivery records end-to-end delivery duration.
func (m *Metrics) ObserveDelivery(seconds float64) {
	m.DeliveryDuration.Observe(seconds)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}

// SetSessionsActive sets the in-memory session gauge.
func (m *Metrics) SetSessionsActive(count float64) {
	m.SessionsActive.Set(count)
}
