// Package transcription implements the remote generative-model client and
// the per-segment orchestration layer. The client speaks the model's JSON
// generateContent protocol with inline base64 audio, classifies failures,
// and retries with exponential backoff; the orchestrator fans segments out
// to a bounded worker pool and joins fragments back in sequence order.
package transcription
