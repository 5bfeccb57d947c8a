// Package metrics provides Prometheus metrics for media ingestion and the
// timeline read path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload batch results.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

var (
	// UploadBatchesTotal counts upload requests by outcome.
	UploadBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_upload_batches_total",
		Help: "Total number of upload batches, by result (success/rejected/failed).",
	}, []string{"result"})

	// FilesStoredTotal counts files whose bytes and record were both committed.
	FilesStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_files_stored_total",
		Help: "Total number of stored files, by media type.",
	}, []string{"type"})

	// BytesStoredTotal counts stored payload bytes.
	BytesStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journey_bytes_stored_total",
		Help: "Total number of payload bytes written to the blob sink.",
	})

	// CompensationsTotal counts rollback actions after a failed batch.
	CompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_upload_compensations_total",
		Help: "Total number of rollback actions after failed batches, by kind (blob/record) and result (ok/error).",
	}, []string{"kind", "result"})

	// TimelineBuildSeconds observes timeline aggregation latency.
	TimelineBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "journey_timeline_build_seconds",
		Help:    "Time spent aggregating the year-grouped timeline.",
		Buckets: prometheus.DefBuckets,
	})
)
