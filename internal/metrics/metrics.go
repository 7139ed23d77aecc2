// Package metrics содержит Prometheus-метрики бота.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dolezza"

// Metrics хранит собственный реестр и коллекторы бота.
// Все методы допускают вызов на nil-получателе.
type Metrics struct {
	registry *prometheus.Registry

	events           *prometheus.CounterVec
	handleDuration   *prometheus.HistogramVec
	ordersCreated    prometheus.Counter
	transitions      *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
}

// New создаёт метрики в отдельном реестре.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "events_total",
			Help:      "Inbound chat events by kind.",
		}, []string{"kind"}),
		handleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one inbound event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders confirmed by customers.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Successful order status transitions by resulting status.",
		}, []string{"status"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "delivery_failures_total",
			Help:      "Outbound notifications that could not be delivered.",
		}, []string{"recipient"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.events,
		m.handleDuration,
		m.ordersCreated,
		m.transitions,
		m.deliveryFailures,
	)
	return m
}

// Handler возвращает HTTP-обработчик для выдачи метрик.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// EventHandled учитывает обработанное входящее событие.
func (m *Metrics) EventHandled(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
	m.handleDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// OrderCreated учитывает созданный заказ.
func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// OrderTransitioned учитывает смену статуса заказа.
func (m *Metrics) OrderTransitioned(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// DeliveryFailed учитывает недоставленное уведомление.
func (m *Metrics) DeliveryFailed(recipient string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(recipient).Inc()
}
