package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts processed jobs by type and outcome.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_jobs_total",
			Help: "Total number of processed jobs",
		},
		[]string{"type", "outcome"},
	)

	// JobDuration tracks job execution duration in seconds.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_job_duration_seconds",
			Help:    "Duration of job executions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7m
		},
		[]string{"type"},
	)

	// JobsActive tracks the number of jobs currently executing.
	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beacon_jobs_active",
			Help: "Number of jobs currently executing",
		},
	)

	// ProgressUpdatesTotal counts progress record writes by resulting state.
	ProgressUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_progress_updates_total",
			Help: "Total number of progress record state writes",
		},
		[]string{"state"},
	)
)
