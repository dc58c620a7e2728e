package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deedcao/Audio-to-text/internal/audio"
	"github.com/deedcao/Audio-to-text/internal/config"
	"github.com/deedcao/Audio-to-text/internal/history"
	"github.com/deedcao/Audio-to-text/internal/job"
	"github.com/deedcao/Audio-to-text/internal/metrics"
	"github.com/deedcao/Audio-to-text/internal/server"
	"github.com/deedcao/Audio-to-text/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "audio-to-text"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// A .env file is optional; environment variables win either way.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("address", cfg.HTTP.Address),
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.Int("segment_seconds", cfg.Audio.SegmentSeconds),
		slog.String("model_endpoint", cfg.Model.Endpoint),
		slog.String("model", cfg.Model.Name),
		slog.Int("workers", cfg.Model.Workers),
		slog.String("history_path", cfg.History.Path),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize history store
	store, err := history.NewStore(history.Config{
		Path:           cfg.History.Path,
		MaxRecords:     cfg.History.MaxRecords,
		MatchTolerance: cfg.History.GetMatchTolerance(),
	}, logger)
	if err != nil {
		logger.Error("Failed to open history store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("History store opened",
		slog.String("path", cfg.History.Path),
		slog.Int("records", store.Count()),
	)

	// Initialize model API client
	client, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Model.Endpoint,
		APIKey:        cfg.Model.APIKey,
		Model:         cfg.Model.Name,
		Timeout:       cfg.Model.GetTimeoutDuration(),
		MaxRetries:    cfg.Model.MaxRetries,
		MaxConcurrent: cfg.Model.MaxConcurrent,
	}, appMetrics)
	if err != nil {
		logger.Error("Failed to create model client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Model client initialized",
		slog.String("endpoint", cfg.Model.Endpoint),
		slog.String("model", cfg.Model.Name),
	)

	// Initialize job manager
	jobManager, err := job.NewManager(job.Config{
		TargetSampleRate: cfg.Audio.TargetSampleRate,
		Split: audio.SplitConfig{
			SegmentSeconds:  cfg.Audio.SegmentSeconds,
			MaxSegmentBytes: cfg.Audio.MaxSegmentBytes,
		},
		Workers:   cfg.Model.Workers,
		Retention: cfg.History.GetJobRetention(),
	}, logger, appMetrics, client, store)
	if err != nil {
		logger.Error("Failed to create job manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg, logger, jobManager, client, store, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop job manager (cancel running jobs and stop background routines)
	jobManager.Stop()

	// Get final statistics
	stats := client.GetStats()
	logger.Info("Final model client statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Uint64("total_retries", stats.TotalRetries),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
