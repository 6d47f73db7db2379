// Package metrics exposes registry counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors updated by the service and the live feed.
type Metrics struct {
	registry *prometheus.Registry

	Submissions *prometheus.CounterVec
	Logins      *prometheus.CounterVec
	Snapshots   prometheus.Counter
	FeedErrors  prometheus.Counter
	Records     prometheus.Gauge
	LiveClients prometheus.Gauge
	DigestsSent *prometheus.CounterVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fee_registry",
			Name:      "submissions_total",
			Help:      "Student submissions by outcome (ok or error kind).",
		}, []string{"outcome"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fee_registry",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		Snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fee_registry",
			Name:      "snapshots_total",
			Help:      "Full record sets delivered by the live subscription.",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fee_registry",
			Name:      "feed_errors_total",
			Help:      "Live subscription failures.",
		}),
		Records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fee_registry",
			Name:      "records",
			Help:      "Records in the most recent snapshot.",
		}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fee_registry",
			Name:      "live_clients",
			Help:      "Connected websocket clients.",
		}),
		DigestsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fee_registry",
			Name:      "digests_total",
			Help:      "Fee digest emails by outcome.",
		}, []string{"outcome"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Submissions, m.Logins, m.Snapshots, m.FeedErrors, m.Records, m.LiveClients, m.DigestsSent)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
