// Package metrics wraps the Prometheus collectors exported by sketchpm.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Install outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Collector holds the sketchpm metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	Installs        *prometheus.CounterVec
	InstallDuration prometheus.Histogram
	ManifestReads   *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

// NewCollector creates a Collector with its own Prometheus registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		Installs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchpm",
			Name:      "installs_total",
			Help:      "Install requests by outcome (success, failure, error)",
		}, []string{"outcome"}),
		InstallDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sketchpm",
			Name:      "install_duration_seconds",
			Help:      "Wall time of package-manager install runs",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		ManifestReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchpm",
			Name:      "manifest_reads_total",
			Help:      "Manifest reads by result (ok, absent, error)",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sketchpm",
			Name:      "http_requests_total",
			Help:      "RPC requests by route and status code",
		}, []string{"route", "status"}),
	}

	reg.MustRegister(c.Installs, c.InstallDuration, c.ManifestReads, c.HTTPRequests)
	return c
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler that serves the metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordInstall counts an install and, when it ran, its duration.
// A nil Collector is a no-op so callers need not check.
func (c *Collector) RecordInstall(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Installs.WithLabelValues(outcome).Inc()
	if outcome != OutcomeError {
		c.InstallDuration.Observe(d.Seconds())
	}
}

// RecordManifestRead counts a manifest read.
func (c *Collector) RecordManifestRead(result string) {
	if c == nil {
		return
	}
	c.ManifestReads.WithLabelValues(result).Inc()
}

// RecordHTTPRequest counts an RPC request.
func (c *Collector) RecordHTTPRequest(route, status string) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, status).Inc()
}
