// Package metrics exposes prometheus counters for a live-update client.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the client's counters and the registry they are served from.
type Metrics struct {
	registry         *prometheus.Registry
	messages         *prometheus.CounterVec
	heartbeats       prometheus.Counter
	decodeErrors     prometheus.Counter
	actionErrors     prometheus.Counter
	connectionErrors prometheus.Counter
	connected        prometheus.Gauge
	toggles          prometheus.Counter
}

// New returns nil when disabled.
func New(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livereload",
			Name:      "actions_total",
			Help:      "Push messages dispatched, by action.",
		}, []string{"action"}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livereload",
			Name:      "heartbeats_total",
			Help:      "Push messages that carried no data.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livereload",
			Name:      "decode_errors_total",
			Help:      "Push messages dropped because they could not be decoded.",
		}),
		actionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livereload",
			Name:      "action_errors_total",
			Help:      "Actions that failed while mutating the page.",
		}),
		connectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livereload",
			Name:      "connection_errors_total",
			Help:      "Push connection failures, including clean server closes.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livereload",
			Name:      "connected",
			Help:      "1 while the push connection is open.",
		}),
		toggles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livereload",
			Name:      "overlay_toggles_total",
			Help:      "Overlay sections collapsed or expanded.",
		}),
	}

	reg.MustRegister(m.messages, m.heartbeats, m.decodeErrors, m.actionErrors, m.connectionErrors, m.connected, m.toggles)
	return m
}

// Handler serves the registry, or 404 when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncAction(action string) {
	if m != nil {
		m.messages.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncHeartbeat() {
	if m != nil {
		m.heartbeats.Inc()
	}
}

func (m *Metrics) IncDecodeError() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) IncActionError() {
	if m != nil {
		m.actionErrors.Inc()
	}
}

func (m *Metrics) IncConnectionError() {
	if m != nil {
		m.connectionErrors.Inc()
	}
}

func (m *Metrics) SetConnected(open bool) {
	if m == nil {
		return
	}
	if open {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

func (m *Metrics) IncToggle() {
	if m != nil {
		m.toggles.Inc()
	}
}
