// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	GradingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grading_runs_total",
			Help: "Total number of convergence runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	GradingPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grading_passes_total",
			Help: "Total number of exemplar selection passes executed",
		},
	)

	GradingPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grading_pass_duration_seconds",
			Help:    "Duration of one selection, extraction and rule generation pass",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	GradingStabilityMetric = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grading_stability_metric",
			Help: "Jaccard similarity of exemplar identities between the last two passes",
		},
	)

	GradingCategoryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grading_category_failures_total",
			Help: "Categories skipped in a pass because extraction or rule generation failed",
		},
		[]string{"category"},
	)

	GradingExemplarsSelected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "grading_exemplars_selected",
			Help: "Number of exemplars selected in the most recent pass",
		},
	)
)

var (
	ArtifactWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifact_writes_total",
			Help: "Artifact documents written per sink and status",
		},
		[]string{"sink", "status"},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grading_notifications_total",
			Help: "Publication notifications per channel and status",
		},
		[]string{"channel", "status"},
	)
)
