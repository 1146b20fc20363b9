package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records outcomes of one-shot maintenance jobs such as the
// ledger audit.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	drift    *prometheus.CounterVec
	repaired *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed job executions.",
	}, []string{"job"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_drift_detected_total",
		Help: "Stored totals that disagree with their payment rows.",
	}, []string{"ledger"})
	repaired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_drift_repaired_total",
		Help: "Stored totals rewritten from their payment rows.",
	}, []string{"ledger"})
	reg.MustRegister(duration, success, failure, drift, repaired)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		drift:    drift,
		repaired: repaired,
	}
}

// ObserveDuration records the duration for the named job.
func (c *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (c *JobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (c *JobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncDrift counts a drifted row in the named ledger ("orders" or "previous_balances").
func (c *JobMetrics) IncDrift(ledger string) {
	if c == nil || c.drift == nil {
		return
	}
	c.drift.WithLabelValues(normalizeLabel(ledger)).Inc()
}

// IncRepaired counts a repaired row in the named ledger.
func (c *JobMetrics) IncRepaired(ledger string) {
	if c == nil || c.repaired == nil {
		return
	}
	c.repaired.WithLabelValues(normalizeLabel(ledger)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
