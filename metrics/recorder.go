// Package metrics provides a Prometheus implementation of
// s3types.MetricsRecorder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

const namespace = "s3channel"

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Operation label values.
const (
	OpUploadPart = "upload_part"
	OpComplete   = "complete"
	OpAbort      = "abort"
	OpGetRange   = "get_range"
)

// Bytes direction label values.
const (
	DirectionRead  = "read"
	DirectionWrite = "write"
)

// DefaultLatencyBuckets covers object store requests from a few milliseconds
// to a minute.
var DefaultLatencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// Recorder records channel events on Prometheus collectors.
type Recorder struct {
	// LatencyHistogram tracks request latencies by operation and status.
	LatencyHistogram *prometheus.HistogramVec

	// RequestsTotal counts requests by operation and status.
	RequestsTotal *prometheus.CounterVec

	// BytesTotal counts payload bytes by direction.
	BytesTotal *prometheus.CounterVec

	// RetriesTotal counts part upload retries.
	RetriesTotal prometheus.Counter

	// CacheTotal counts buffered reader lookups by result (hit, miss).
	CacheTotal *prometheus.CounterVec
}

// NewRecorder creates a Recorder registered with reg. A nil reg uses the
// default registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		LatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "Object store request latency in seconds, broken down by operation and status.",
				Buckets:   DefaultLatencyBuckets,
			},
			[]string{"operation", "status"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of object store requests, broken down by operation and status.",
			},
			[]string{"operation", "status"},
		),
		BytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_total",
				Help:      "Total payload bytes transferred by direction (read/write).",
			},
			[]string{"direction"},
		),
		RetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "part_retries_total",
				Help:      "Total number of part upload retries.",
			},
		),
		CacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Buffered reader window lookups, broken down by result (hit/miss).",
			},
			[]string{"result"},
		),
	}
}

func status(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusFailure
}

func (r *Recorder) observe(op string, durationSeconds float64, success bool) {
	s := status(success)
	r.LatencyHistogram.WithLabelValues(op, s).Observe(durationSeconds)
	r.RequestsTotal.WithLabelValues(op, s).Inc()
}

// RecordPartUpload records one part upload attempt.
func (r *Recorder) RecordPartUpload(durationSeconds float64, success bool, bytes int64) {
	r.observe(OpUploadPart, durationSeconds, success)
	if success && bytes > 0 {
		r.BytesTotal.WithLabelValues(DirectionWrite).Add(float64(bytes))
	}
}

// RecordPartRetry records a part upload retry.
func (r *Recorder) RecordPartRetry() {
	r.RetriesTotal.Inc()
}

// RecordCompletion records a completion request.
func (r *Recorder) RecordCompletion(durationSeconds float64, success bool) {
	r.observe(OpComplete, durationSeconds, success)
}

// RecordAbort records an abort request.
func (r *Recorder) RecordAbort(success bool) {
	r.RequestsTotal.WithLabelValues(OpAbort, status(success)).Inc()
}

// RecordRangeFetch records a ranged read request.
func (r *Recorder) RecordRangeFetch(durationSeconds float64, success bool, bytes int64) {
	r.observe(OpGetRange, durationSeconds, success)
	if success && bytes > 0 {
		r.BytesTotal.WithLabelValues(DirectionRead).Add(float64(bytes))
	}
}

// RecordCacheHit records a read served from the window.
func (r *Recorder) RecordCacheHit() {
	r.CacheTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a read that refilled the window.
func (r *Recorder) RecordCacheMiss() {
	r.CacheTotal.WithLabelValues("miss").Inc()
}

var _ s3types.MetricsRecorder = (*Recorder)(nil)
