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

	BidsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bids_submitted_total",
			Help: "Total number of bids accepted into the store",
		},
	)

	HireAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hire_attempts_total",
			Help: "Hire requests by outcome (hired, conflict, not_found, error)",
		},
		[]string{"outcome"},
	)

	HireCommitRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hire_commit_retries_total",
			Help: "Hire commits retried after a concurrent job update",
		},
	)

	BidsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bids_closed_total",
			Help: "Competing bids closed by a hire",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications by channel and status (sent, failed, deduplicated)",
		},
		[]string{"channel", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "REST request latency by route pattern and status code",
		},
		[]string{"route", "code"},
	)
)
