// Package metrics exposes session counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing, so tests and callers without a registry can pass nil.
type Metrics struct {
	registry *prometheus.Registry

	fetches  *prometheus.CounterVec
	playback *prometheus.CounterVec
	toggles  *prometheus.CounterVec
	items    prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "page_fetches_total",
			Help:      "Page fetches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		playback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "playback_commands_total",
			Help:      "Player commands issued, by action.",
		}, []string{"action"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "subscription_toggles_total",
			Help:      "Subscribe and unsubscribe attempts by result.",
		}, []string{"direction", "result"}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reel",
			Name:      "feed_items",
			Help:      "Items currently held by the feed.",
		}),
	}
	m.registry.MustRegister(m.fetches, m.playback, m.toggles, m.items)
	return m
}

// Fetch counts a completed or dropped page fetch.
func (m *Metrics) Fetch(kind, outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(kind, outcome).Inc()
}

// Playback counts a player command.
func (m *Metrics) Playback(action string) {
	if m == nil {
		return
	}
	m.playback.WithLabelValues(action).Inc()
}

// Toggle counts a subscription toggle. subscribe is the optimistic target.
func (m *Metrics) Toggle(subscribe bool, result string) {
	if m == nil {
		return
	}
	direction := "unsubscribe"
	if subscribe {
		direction = "subscribe"
	}
	m.toggles.WithLabelValues(direction, result).Inc()
}

// Items sets the current feed length.
func (m *Metrics) Items(n int) {
	if m == nil {
		return
	}
	m.items.Set(float64(n))
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
