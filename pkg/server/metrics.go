package server

import (
	"net/http"

	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/lobby"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "lobby"

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	lobbies     prometheus.Gauge
	bindings    prometheus.Gauge
	connections prometheus.Gauge
	events      *prometheus.CounterVec
	broadcasts  *prometheus.CounterVec
	dropped     prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		lobbies: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "lobbies",
			Help:      "Number of live lobbies.",
		}),
		bindings: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "bound_connections",
			Help:      "Number of connections bound to a lobby member.",
		}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "open_connections",
			Help:      "Number of open websocket connections.",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Inbound client events by type.",
		}, []string{"type"}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcasts_total",
			Help:      "Room broadcasts by event type.",
		}, []string{"type"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_messages_total",
			Help:      "Outbound messages dropped because a send queue was full.",
		}),
	}
}

func (m *Metrics) observeEvent(eventType string) {
	if !lobby.KnownEvent(eventType) {
		eventType = "unknown"
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) observeState(stats Stats) {
	m.lobbies.Set(float64(stats.Lobbies))
	m.bindings.Set(float64(stats.BoundConnections))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
