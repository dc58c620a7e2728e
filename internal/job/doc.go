// Package job runs the transcription pipeline for uploaded files and
// tracks each run's state and progress. It manages job lifecycle the way
// a session manager would: jobs are created per upload, observed over the
// API while running, and evicted after a retention window once terminal.
package job
