package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "brewcart"

// Cron run outcomes.
const (
	CronSucceeded = "success"
	CronFailed    = "failure"
	CronSkipped   = "skipped"
)

// CronJobMetrics tracks scheduled job runs. A skipped run means another
// instance held the job lease.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time of executed cron jobs.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// JobRun records one scheduled run. duration is ignored for skipped runs.
func (c *CronJobMetrics) JobRun(job, outcome string, duration time.Duration) {
	if c == nil || c.runs == nil {
		return
	}
	if job == "" {
		job = "unknown"
	}
	c.runs.WithLabelValues(job, outcome).Inc()
	if outcome == CronSkipped {
		return
	}
	c.duration.WithLabelValues(job).Observe(duration.Seconds())
	if outcome == CronSucceeded {
		c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
}
