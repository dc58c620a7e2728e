// Package metrics defines the Prometheus metrics for the transcription
// service: job lifecycle, pipeline segment statistics, model API request
// outcomes, and HTTP API usage.
package metrics
