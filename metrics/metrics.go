// Package metrics provides Prometheus metrics for medilens.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup kinds
const (
	KindImage     = "image"
	KindName      = "name"
	KindTranslate = "translate"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RemindersFired    prometheus.Counter
	RemindersActive   prometheus.Gauge
	NotifyFailures    prometheus.Counter
	Lookups           *prometheus.CounterVec
	LookupDuration    *prometheus.HistogramVec
	StorageFailures   *prometheus.CounterVec
	StaleLookupsTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with reg
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RemindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medilens_reminders_fired_total",
			Help: "Total reminders fired",
		}),
		RemindersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medilens_reminders_active",
			Help: "Reminders currently stored",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medilens_notify_failures_total",
			Help: "Reminder notifications that failed delivery",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medilens_lookups_total",
			Help: "Lookups against the AI backend by kind and outcome",
		}, []string{"kind", "outcome"}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medilens_lookup_duration_seconds",
			Help:    "Lookup duration",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"kind"}),
		StorageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medilens_storage_failures_total",
			Help: "Reminder storage failures by operation",
		}, []string{"op"}),
		StaleLookupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medilens_stale_lookups_total",
			Help: "Lookup results discarded because the view moved on",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RemindersFired,
		m.RemindersActive,
		m.NotifyFailures,
		m.Lookups,
		m.LookupDuration,
		m.StorageFailures,
		m.StaleLookupsTotal,
	)

	return m
}

// ReminderFired increments the fired counter
func (m *Metrics) ReminderFired() {
	if m == nil {
		return
	}

	m.RemindersFired.Inc()
}

// NotifyFailed increments the notification failure counter
func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}

	m.NotifyFailures.Inc()
}

// SetActiveReminders sets the stored reminder gauge
func (m *Metrics) SetActiveReminders(n int) {
	if m == nil {
		return
	}

	m.RemindersActive.Set(float64(n))
}

// ObserveLookup records a finished lookup
func (m *Metrics) ObserveLookup(kind string, seconds float64, err error) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	m.Lookups.WithLabelValues(kind, outcome).Inc()
	m.LookupDuration.WithLabelValues(kind).Observe(seconds)
}

// StorageFailed increments the storage failure counter for op
func (m *Metrics) StorageFailed(op string) {
	if m == nil {
		return
	}

	m.StorageFailures.WithLabelValues(op).Inc()
}

// StaleLookup increments the discarded lookup counter
func (m *Metrics) StaleLookup() {
	if m == nil {
		return
	}

	m.StaleLookupsTotal.Inc()
}

// Handler returns the Prometheus HTTP handler for the registry
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
