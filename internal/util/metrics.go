package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_runs_started_total",
		Help: "Total number of pipeline runs started",
	})

	RunsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_runs_completed_total",
		Help: "Total number of pipeline runs completed successfully",
	})

	RunsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_runs_failed_total",
		Help: "Total number of failed pipeline runs",
	}, []string{"stage"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_run_duration_seconds",
		Help:    "Duration of full pipeline runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{"stage"})

	TriggersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_triggers_accepted_total",
		Help: "Total number of trigger files that started a run",
	})

	TriggersDeclinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_triggers_declined_total",
		Help: "Total number of trigger files ignored because a run was in flight",
	})

	RowsStagedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_rows_staged_total",
		Help: "Total number of rows written to staging artifacts",
	}, []string{"table"})

	MergeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_merge_failures_total",
		Help: "Total number of failed warehouse merges",
	}, []string{"table"})

	FilesUploadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_files_uploaded_total",
		Help: "Total number of batch files accepted into the landing bucket",
	}, []string{"category"})

	UploadsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_uploads_rejected_total",
		Help: "Total number of rejected upload requests",
	}, []string{"reason"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
