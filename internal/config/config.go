package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Audio   AudioConfig   `yaml:"audio"`
	Model   ModelConfig   `yaml:"model"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains the API server configuration.
type HTTPConfig struct {
	Port        int    `yaml:"port"`
	Address     string `yaml:"address"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// AudioConfig contains pipeline parameters.
type AudioConfig struct {
	// TargetSampleRate is the canonical rate all input is resampled to.
	TargetSampleRate int `yaml:"target_sample_rate"`
	// SegmentSeconds is the splitter window. Longer windows give the model
	// more context per call; shorter windows isolate failures better.
	SegmentSeconds int `yaml:"segment_seconds"`
	// MaxSegmentBytes caps a segment's transport-encoded payload size.
	MaxSegmentBytes int `yaml:"max_segment_bytes"`
}

// ModelConfig contains model API access configuration.
type ModelConfig struct {
	Endpoint string `yaml:"endpoint"`
	// APIKey may be left empty in the file and supplied via the
	// MODEL_API_KEY environment variable instead.
	APIKey        string `yaml:"api_key"`
	Name          string `yaml:"name"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	// Workers bounds concurrent segment transcription per job; 1 processes
	// segments strictly in order.
	Workers int `yaml:"workers"`
}

// HistoryConfig contains record store configuration.
type HistoryConfig struct {
	Path             string `yaml:"path"`
	MaxRecords       int    `yaml:"max_records"`
	ToleranceSeconds int    `yaml:"match_tolerance_seconds"`
	// RetentionMinutes is how long finished jobs stay queryable before the
	// job manager evicts them.
	RetentionMinutes int `yaml:"job_retention_minutes"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. An empty api_key is
// filled from the MODEL_API_KEY environment variable before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if config.Model.APIKey == "" {
		config.Model.APIKey = os.Getenv("MODEL_API_KEY")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs validation of the complete configuration.
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates HTTP configuration.
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}
	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if h.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", h.MaxUploadMB)
	}
	return nil
}

// Validate validates audio pipeline configuration.
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate != 16000 {
		return fmt.Errorf("target_sample_rate must be 16000 Hz, got %d", a.TargetSampleRate)
	}
	if a.SegmentSeconds < 1 {
		return fmt.Errorf("segment_seconds must be at least 1, got %d", a.SegmentSeconds)
	}
	// Budget must at least fit the WAV header plus one second of audio
	// after base64 expansion.
	minBudget := ((44 + 2*a.TargetSampleRate + 2) / 3) * 4
	if a.MaxSegmentBytes < minBudget {
		return fmt.Errorf("max_segment_bytes must be at least %d, got %d", minBudget, a.MaxSegmentBytes)
	}
	return nil
}

// Validate validates model API configuration.
func (m *ModelConfig) Validate() error {
	if m.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if m.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty (set it in the file or via MODEL_API_KEY)")
	}
	if m.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if m.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", m.Timeout)
	}
	if m.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", m.MaxRetries)
	}
	if m.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", m.MaxConcurrent)
	}
	if m.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", m.Workers)
	}
	if m.Workers > m.MaxConcurrent {
		return fmt.Errorf("workers (%d) cannot exceed max_concurrent (%d)", m.Workers, m.MaxConcurrent)
	}
	return nil
}

// Validate validates history configuration.
func (h *HistoryConfig) Validate() error {
	if h.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if h.MaxRecords < 1 {
		return fmt.Errorf("max_records must be at least 1, got %d", h.MaxRecords)
	}
	if h.ToleranceSeconds < 0 {
		return fmt.Errorf("match_tolerance_seconds cannot be negative, got %d", h.ToleranceSeconds)
	}
	if h.RetentionMinutes < 1 {
		return fmt.Errorf("job_retention_minutes must be at least 1, got %d", h.RetentionMinutes)
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output accepts stdout, stderr, or a file path; nothing to reject.
	return nil
}

// GetTimeoutDuration returns the model call timeout as a time.Duration.
func (m *ModelConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(m.Timeout) * time.Second
}

// GetMatchTolerance returns the file-match tolerance as a time.Duration.
func (h *HistoryConfig) GetMatchTolerance() time.Duration {
	return time.Duration(h.ToleranceSeconds) * time.Second
}

// GetJobRetention returns the finished-job retention as a time.Duration.
func (h *HistoryConfig) GetJobRetention() time.Duration {
	return time.Duration(h.RetentionMinutes) * time.Minute
}
