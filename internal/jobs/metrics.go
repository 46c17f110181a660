package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	slots    *prometheus.CounterVec
	degraded *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// ObserveSlot counts one artifact slot outcome within a sync run.
func (m *Metrics) ObserveSlot(slot string, err error) {
	if m == nil || slot == "" {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.slots.WithLabelValues(slot, status).Inc()
}

// AddDegraded counts cash-flow runs that completed without one of their inputs.
func (m *Metrics) AddDegraded(reasons ...string) {
	if m == nil {
		return
	}
	for _, reason := range reasons {
		if reason == "" {
			continue
		}
		m.degraded.WithLabelValues(reason).Inc()
	}
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cashcast_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cashcast_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cashcast_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	slots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cashcast_sync_slots_total",
		Help: "Artifact slot outcomes of sync runs.",
	}, []string{"slot", "status"})
	degraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cashcast_forecast_degraded_total",
		Help: "Cash-flow runs completed without one of their inputs, by reason.",
	}, []string{"reason"})
	registerer.MustRegister(runs, failures, duration, slots, degraded)
	return &Metrics{runs: runs, failures: failures, duration: duration, slots: slots, degraded: degraded}
}
