// Package metrics holds the Prometheus collectors of the park connectors and serves them over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "parques"

// Results of a fetch or of a build, used as the result label.
const (
	ResultOK     = "ok"
	ResultCached = "cached"
	ResultError  = "error"
)

// Metrics are the collectors shared by every park.
type Metrics struct {
	anomalies     *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	builds        *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
}

// New registers the collectors in reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		anomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anomalies_total",
				Help:      "Tracks the number of vendor data anomalies, by kind.",
			}, []string{"park", "kind"},
		),
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Tracks the number of vendor fetches, by endpoint and result.",
			}, []string{"park", "endpoint", "result"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Tracks the latencies of vendor requests which reached the network.",
				// Vendor calls are remote, up to 20.48s.
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			}, []string{"park", "endpoint"},
		),
		builds: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Tracks the number of platform outputs built, by operation and result.",
			}, []string{"park", "operation", "result"},
		),
		lastSuccess: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful build, by operation.",
			}, []string{"park", "operation"},
		),
	}
}

// Park are the collectors of a single park.
type Park struct {
	// Anomalies is labeled by kind.
	Anomalies *prometheus.CounterVec
	// Fetches is labeled by endpoint and result.
	Fetches *prometheus.CounterVec
	// FetchDuration is labeled by endpoint.
	FetchDuration prometheus.ObserverVec
	// Builds is labeled by operation and result.
	Builds *prometheus.CounterVec
	// LastSuccess is labeled by operation.
	LastSuccess *prometheus.GaugeVec
}

// Park returns the collectors curried with the park label.
func (m *Metrics) Park(id string) Park {
	l := prometheus.Labels{"park": id}
	return Park{
		Anomalies:     m.anomalies.MustCurryWith(l),
		Fetches:       m.fetches.MustCurryWith(l),
		FetchDuration: m.fetchDuration.MustCurryWith(l),
		Builds:        m.builds.MustCurryWith(l),
		LastSuccess:   m.lastSuccess.MustCurryWith(l),
	}
}
