// Package history persists finished transcription results in a local
// JSON-backed record store with keyed overwrite, newest-first listing,
// capped retention, and approximate match on file identity.
package history
