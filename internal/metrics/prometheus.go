package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription service.
type Metrics struct {
	// Job lifecycle metrics
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsAborted   prometheus.Counter
	JobDuration   prometheus.Histogram
	CacheHits     prometheus.Counter
	ActiveJobs    prometheus.Gauge

	// Pipeline metrics
	SegmentsGenerated   prometheus.Counter
	SegmentEncodedBytes prometheus.Histogram
	AudioDuration       prometheus.Histogram

	// Model API metrics
	ModelRequests        prometheus.Counter
	ModelSuccesses       prometheus.Counter
	ModelFailures        prometheus.Counter
	ModelRetries         prometheus.Counter
	ModelRequestDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		JobsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_jobs_submitted_total",
			Help: "Total number of transcription jobs submitted",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_jobs_completed_total",
			Help: "Total number of transcription jobs completed successfully",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_jobs_failed_total",
			Help: "Total number of transcription jobs that failed",
		}),
		JobsAborted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_jobs_aborted_total",
			Help: "Total number of transcription jobs aborted on fatal model errors",
		}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "a2t_job_duration_seconds",
			Help:    "End-to-end duration of transcription jobs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_history_cache_hits_total",
			Help: "Total number of uploads answered from the history store",
		}),
		ActiveJobs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "a2t_active_jobs",
			Help: "Current number of running transcription jobs",
		}),

		SegmentsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_segments_generated_total",
			Help: "Total number of audio segments produced by the splitter",
		}),
		SegmentEncodedBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "a2t_segment_encoded_bytes",
			Help:    "Transport-encoded size of audio segments in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10), // 64KB to ~32MB
		}),
		AudioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "a2t_audio_duration_seconds",
			Help:    "Duration of uploaded audio files",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10s to ~1.4 hours
		}),

		ModelRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_model_requests_total",
			Help: "Total number of model API requests sent",
		}),
		ModelSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_model_successes_total",
			Help: "Total number of successful model API requests",
		}),
		ModelFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_model_failures_total",
			Help: "Total number of model API requests that failed after retries",
		}),
		ModelRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "a2t_model_retries_total",
			Help: "Total number of model API request retries",
		}),
		ModelRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "a2t_model_request_duration_seconds",
			Help:    "Duration of model API requests including retries",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8.5 minutes
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "a2t_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "a2t_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "a2t_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordJobSubmitted increments the submitted counter and the active gauge.
func (m *Metrics) RecordJobSubmitted() {
	m.JobsSubmitted.Inc()
	m.ActiveJobs.Inc()
}

// RecordJobCompleted records a successful job.
func (m *Metrics) RecordJobCompleted(durationSeconds float64) {
	m.JobsCompleted.Inc()
	m.JobDuration.Observe(durationSeconds)
	m.ActiveJobs.Dec()
}

// RecordJobFailed records a failed job.
func (m *Metrics) RecordJobFailed(durationSeconds float64) {
	m.JobsFailed.Inc()
	m.JobDuration.Observe(durationSeconds)
	m.ActiveJobs.Dec()
}

// RecordJobAborted records a job aborted on a fatal model error.
func (m *Metrics) RecordJobAborted(durationSeconds float64) {
	m.JobsAborted.Inc()
	m.JobDuration.Observe(durationSeconds)
	m.ActiveJobs.Dec()
}

// RecordCacheHit records an upload answered from history.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordSegments records the splitter output for one job.
func (m *Metrics) RecordSegments(count int, encodedSizes []int, audioSeconds float64) {
	m.SegmentsGenerated.Add(float64(count))
	for _, size := range encodedSizes {
		m.SegmentEncodedBytes.Observe(float64(size))
	}
	m.AudioDuration.Observe(audioSeconds)
}

// RecordModelRequest increments the model request counter.
func (m *Metrics) RecordModelRequest() {
	m.ModelRequests.Inc()
}

// RecordModelSuccess records a successful model request.
func (m *Metrics) RecordModelSuccess(seconds float64) {
	m.ModelSuccesses.Inc()
	m.ModelRequestDuration.Observe(seconds)
}

// RecordModelFailure records a model request that failed after retries.
func (m *Metrics) RecordModelFailure(seconds float64) {
	m.ModelFailures.Inc()
	m.ModelRequestDuration.Observe(seconds)
}

// RecordModelRetry increments the retry counter.
func (m *Metrics) RecordModelRetry() {
	m.ModelRetries.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
