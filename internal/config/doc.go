// Package config provides YAML configuration loading and validation for
// the transcription service: HTTP surface, audio pipeline parameters,
// model API access, history retention, and logging.
package config
