package client

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "ibc_client"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of accepted client updates.
	ClientUpdates metrics.Counter
	// Number of rejected client updates, by error kind.
	UpdateFailures metrics.Counter
	// Time spent verifying and storing a client update.
	UpdateDuration metrics.Histogram
	// Latest verified height of a client.
	LatestHeight metrics.Gauge
	// Number of clients frozen on misbehaviour.
	FrozenClients metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		ClientUpdates: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "client_updates",
			Help:      "Number of accepted client updates.",
		}, append(labels, "client_type")).With(labelsAndValues...),
		UpdateFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "update_failures",
			Help:      "Number of rejected client updates.",
		}, append(labels, "client_type", "kind")).With(labelsAndValues...),
		UpdateDuration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "update_duration_seconds",
			Help:      "Time spent verifying and storing a client update.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, append(labels, "client_type")).With(labelsAndValues...),
		LatestHeight: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "latest_height",
			Help:      "Latest verified revision height of a client.",
		}, append(labels, "client_id")).With(labelsAndValues...),
		FrozenClients: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "frozen_clients",
			Help:      "Number of clients frozen on misbehaviour.",
		}, append(labels, "client_type")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		ClientUpdates:  discard.NewCounter(),
		UpdateFailures: discard.NewCounter(),
		UpdateDuration: discard.NewHistogram(),
		LatestHeight:   discard.NewGauge(),
		FrozenClients:  discard.NewCounter(),
	}
}
