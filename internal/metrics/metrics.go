// Package metrics exposes Prometheus counters for caption resolution,
// translation and playback. A nil *Metrics is valid and records nothing, so
// components take it as an optional dependency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "captionsync"

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	resolutions     *prometheus.CounterVec
	probes          *prometheus.CounterVec
	missing         *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	translations    *prometheus.CounterVec
	playerErrors    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	overlayClients  prometheus.Gauge
}

// New creates a Metrics with Go runtime and process collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caption_resolutions_total",
			Help:      "Caption tracks resolved, by discovery method and language.",
		}, []string{"method", "language"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_probes_total",
			Help:      "Storage candidate probes, by backend and outcome.",
		}, []string{"backend", "outcome"}),
		missing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caption_missing_total",
			Help:      "Requested languages that no method could resolve.",
		}, []string{"language"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "caption_resolve_seconds",
			Help:      "Wall time of a full resolve call.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups, by namespace and result.",
		}, []string{"namespace", "result"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_lines_total",
			Help:      "Cue text lines sent for translation, by outcome.",
		}, []string{"target", "outcome"}),
		playerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "player_errors_total",
			Help:      "Playback errors, by engine and recovery tier.",
		}, []string{"engine", "tier"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests, by route pattern and status code.",
		}, []string{"route", "code"}),
		overlayClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overlay_clients",
			Help:      "Connected overlay websocket clients.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.resolutions,
		m.probes,
		m.missing,
		m.resolveDuration,
		m.cacheLookups,
		m.translations,
		m.playerErrors,
		m.httpRequests,
		m.overlayClients,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Resolved(method, language string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(method, language).Inc()
}

func (m *Metrics) Probe(backend, outcome string) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(backend, outcome).Inc()
}

func (m *Metrics) Missing(language string) {
	if m == nil {
		return
	}
	m.missing.WithLabelValues(language).Inc()
}

func (m *Metrics) ResolveTook(d time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(namespace, result).Inc()
}

func (m *Metrics) TranslatedLine(target, outcome string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(target, outcome).Inc()
}

func (m *Metrics) PlayerError(engine, tier string) {
	if m == nil {
		return
	}
	m.playerErrors.WithLabelValues(engine, tier).Inc()
}

func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusLabel(code)).Inc()
}

// OverlayConnected adjusts the live overlay client gauge by delta.
func (m *Metrics) OverlayConnected(delta int) {
	if m == nil {
		return
	}
	m.overlayClients.Add(float64(delta))
}

func statusLabel(code int) string {
	if code <= 0 {
		code = http.StatusOK
	}
	return strconv.Itoa(code)
}
