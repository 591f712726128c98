// Package metrics exposes Prometheus collectors for the bootstrap kernel.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thinkgo"

// Metrics holds the kernel's collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	bootstraps      *prometheus.CounterVec
	bootstrapTime   *prometheus.HistogramVec
	eventsTriggered *prometheus.CounterVec
	configFiles     prometheus.Counter
	initCacheHits   prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. When reg is nil a
// fresh registry is used.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		bootstraps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kernel",
				Name:      "bootstraps_total",
				Help:      "Total number of application bootstraps by result.",
			},
			[]string{"app", "result"},
		),
		bootstrapTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "kernel",
				Name:      "bootstrap_duration_seconds",
				Help:      "Duration of application bootstraps.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"app"},
		),
		eventsTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "event",
				Name:      "triggered_total",
				Help:      "Total number of triggered events.",
			},
			[]string{"event"},
		),
		configFiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "config",
				Name:      "files_loaded_total",
				Help:      "Total number of configuration files loaded.",
			},
		),
		initCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kernel",
				Name:      "init_cache_hits_total",
				Help:      "Total number of bootstraps served from the init cache.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by resolved app and status.",
			},
			[]string{"app", "status"},
		),
	}

	reg.MustRegister(
		m.bootstraps,
		m.bootstrapTime,
		m.eventsTriggered,
		m.configFiles,
		m.initCacheHits,
		m.httpRequests,
	)
	return m
}

// ObserveBootstrap records one Initialize call.
func (m *Metrics) ObserveBootstrap(app string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.bootstraps.WithLabelValues(app, result).Inc()
	m.bootstrapTime.WithLabelValues(app).Observe(d.Seconds())
}

// EventTriggered counts one triggered event.
func (m *Metrics) EventTriggered(event string) {
	if m == nil {
		return
	}
	m.eventsTriggered.WithLabelValues(event).Inc()
}

// ConfigFileLoaded counts one loaded configuration file.
func (m *Metrics) ConfigFileLoaded() {
	if m == nil {
		return
	}
	m.configFiles.Inc()
}

// InitCacheHit counts one bootstrap restored from the init cache.
func (m *Metrics) InitCacheHit() {
	if m == nil {
		return
	}
	m.initCacheHits.Inc()
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(app, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(app, status).Inc()
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
