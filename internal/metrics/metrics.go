// Package metrics exposes Prometheus counters for the account rules engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sweep item outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder is consumed by the application services.
type Recorder interface {
	RecordSweepItem(sweep, outcome string)
	RecordSweepDuration(sweep string, d time.Duration)
	RecordAdmission(outcome string)
	RecordProviderDeleteFailure()
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	sweepItems      *prometheus.CounterVec
	sweepDuration   *prometheus.HistogramVec
	admissions      *prometheus.CounterVec
	providerDeletes prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sweepItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "account_lifecycle_sweep_items_total",
			Help: "Accounts processed by lifecycle sweeps, by sweep and outcome.",
		}, []string{"sweep", "outcome"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "account_lifecycle_sweep_duration_seconds",
			Help:    "Wall time of a single lifecycle sweep.",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweep"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "account_system_admin_admissions_total",
			Help: "System admin admission attempts, by outcome.",
		}, []string{"outcome"}),
		providerDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_identity_provider_delete_failures_total",
			Help: "Identity provider deletions that failed while local cleanup proceeded.",
		}),
	}

	reg.MustRegister(c.sweepItems, c.sweepDuration, c.admissions, c.providerDeletes)
	return c
}

func (c *Collector) RecordSweepItem(sweep, outcome string) {
	c.sweepItems.WithLabelValues(sweep, outcome).Inc()
}

func (c *Collector) RecordSweepDuration(sweep string, d time.Duration) {
	c.sweepDuration.WithLabelValues(sweep).Observe(d.Seconds())
}

func (c *Collector) RecordAdmission(outcome string) {
	c.admissions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordProviderDeleteFailure() {
	c.providerDeletes.Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used when metrics are not wired, e.g. in tests.
type Nop struct{}

func (Nop) RecordSweepItem(string, string) {}
func (Nop) RecordSweepDuration(string, time.Duration) {}
func (Nop) RecordAdmission(string) {}
func (Nop) RecordProviderDeleteFailure() {}
