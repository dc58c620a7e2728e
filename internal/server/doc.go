// Package server exposes the HTTP API: uploading audio for
// transcription, polling job progress, translate and summarize calls,
// the history store, and the monitoring endpoints.
package server
