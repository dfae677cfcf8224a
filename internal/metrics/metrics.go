// Package metrics exposes prometheus counters for attribution and snapshots.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "invitetrack"

// Attribution outcomes.
const (
	OutcomeAttributed = "attributed"
	OutcomeUnknown    = "unknown"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	attributions *prometheus.CounterVec
	snapshots    *prometheus.CounterVec
	retries      prometheus.Counter
	duration     prometheus.Histogram
	cooldownHits prometheus.Counter
}

// New creates the collectors and registers them with a fresh registry,
// together with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		attributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attributions_total",
			Help:      "Joins processed, by attribution outcome or unknown reason.",
		}, []string{"outcome"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Baseline snapshots, by result.",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attribution_retries_total",
			Help:      "Attribution attempts that needed the delayed second call.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attribution_duration_seconds",
			Help:      "Wall time from join to attribution decision, retry included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 10},
		}),
		cooldownHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cooldown_rejections_total",
			Help:      "Manual snapshot requests rejected by the cooldown.",
		}),
	}

	reg.MustRegister(
		m.attributions,
		m.snapshots,
		m.retries,
		m.duration,
		m.cooldownHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAttribution counts one processed join. outcome is OutcomeAttributed
// or an unknown reason.
func (m *Metrics) ObserveAttribution(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attributions.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// ObserveSnapshot counts one snapshot by result.
func (m *Metrics) ObserveSnapshot(result string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(result).Inc()
}

// ObserveRetry counts one delayed second attribution call.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// ObserveCooldownRejection counts one throttled snapshot request.
func (m *Metrics) ObserveCooldownRejection() {
	if m == nil {
		return
	}
	m.cooldownHits.Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
