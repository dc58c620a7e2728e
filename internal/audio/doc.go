// Package audio implements the file-to-segments half of the transcription
// pipeline: decoding compressed containers to PCM, resampling and mixdown to
// canonical mono 16kHz, fixed-window splitting under a payload budget, and
// encoding segments as base64 WAV for the model transport.
package audio
