package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deedcao/Audio-to-text/internal/config"
	"github.com/deedcao/Audio-to-text/internal/history"
	"github.com/deedcao/Audio-to-text/internal/job"
	"github.com/deedcao/Audio-to-text/internal/metrics"
	"github.com/deedcao/Audio-to-text/internal/transcription"
)

// HTTPServer provides the HTTP API for transcription jobs, history and
// monitoring.
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	jobs    *job.Manager
	client  *transcription.Client
	store   *history.Store
	metrics *metrics.Metrics

	maxUploadBytes int64
	startTime      time.Time
}

// NewHTTPServer creates the HTTP API server.
func NewHTTPServer(appConfig *config.Config, logger *slog.Logger,
	jobs *job.Manager, client *transcription.Client, store *history.Store, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:         logger,
		config:         appConfig,
		jobs:           jobs,
		client:         client,
		store:          store,
		metrics:        m,
		maxUploadBytes: int64(appConfig.HTTP.MaxUploadMB) << 20,
		startTime:      time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", appConfig.HTTP.Address, appConfig.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Minute, // uploads can be large
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Transcription jobs
	mux.HandleFunc("/api/transcriptions", h.withMetrics("/api/transcriptions", h.handleTranscriptions))
	mux.HandleFunc("/api/transcriptions/", h.withMetrics("/api/transcriptions/{id}", h.handleTranscriptionDetail))

	// Text post-processing
	mux.HandleFunc("/api/translate", h.withMetrics("/api/translate", h.handleTranslate))
	mux.HandleFunc("/api/summarize", h.withMetrics("/api/summarize", h.handleSummarize))

	// History store
	mux.HandleFunc("/api/history", h.withMetrics("/api/history", h.handleHistory))
	mux.HandleFunc("/api/history/", h.withMetrics("/api/history/{id}", h.handleHistoryDetail))

	// Monitoring
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := strconv.Itoa(ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// handleTranscriptions accepts a multipart upload and starts a
// transcription job (POST), or lists known jobs (GET).
func (h *HTTPServer) handleTranscriptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"total": len(h.jobs.List()),
			"jobs":  h.jobs.List(),
		})
	case http.MethodPost:
		h.handleUpload(w, r)
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	// last_modified is milliseconds since the epoch, as browsers report it.
	var lastModified time.Time
	if raw := r.FormValue("last_modified"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid last_modified value")
			return
		}
		lastModified = time.UnixMilli(ms)
	}

	info, err := h.jobs.Submit(job.Source{
		Name:           header.Filename,
		Size:           header.Size,
		LastModified:   lastModified,
		TargetLanguage: r.FormValue("target_language"),
		Data:           data,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Upload accepted",
		slog.String("job_id", info.ID),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size))

	h.writeJSON(w, http.StatusAccepted, info)
}

// handleTranscriptionDetail returns the state of one job.
func (h *HTTPServer) handleTranscriptionDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/transcriptions/")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "job ID required")
		return
	}

	info, ok := h.jobs.Get(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

type textRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	RecordID       string `json:"record_id,omitempty"`
}

func (h *HTTPServer) decodeTextRequest(w http.ResponseWriter, r *http.Request) (textRequest, bool) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return textRequest{}, false
	}

	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return textRequest{}, false
	}
	if req.Text == "" {
		h.writeError(w, http.StatusBadRequest, "text is required")
		return textRequest{}, false
	}
	if req.TargetLanguage == "" {
		h.writeError(w, http.StatusBadRequest, "target_language is required")
		return textRequest{}, false
	}
	return req, true
}

// handleTranslate translates a transcript into the target language.
func (h *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTextRequest(w, r)
	if !ok {
		return
	}

	translation, err := h.client.Translate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		h.writeModelError(w, err)
		return
	}

	if req.RecordID != "" && h.store != nil {
		h.attachToRecord(req.RecordID, func(rec *history.Record) {
			rec.Translation = translation
			rec.TargetLanguage = req.TargetLanguage
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"translation": translation})
}

// handleSummarize produces a summary of a transcript.
func (h *HTTPServer) handleSummarize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTextRequest(w, r)
	if !ok {
		return
	}

	summary, err := h.client.Summarize(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		h.writeModelError(w, err)
		return
	}

	if req.RecordID != "" && h.store != nil {
		h.attachToRecord(req.RecordID, func(rec *history.Record) {
			rec.Summary = summary
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// attachToRecord updates a history record in place, logging rather than
// failing the request when the record is gone.
func (h *HTTPServer) attachToRecord(id string, update func(*history.Record)) {
	rec, err := h.store.Get(id)
	if err != nil {
		h.logger.Warn("History record not found for update", slog.String("record_id", id))
		return
	}
	update(&rec)
	if _, err := h.store.Save(rec); err != nil {
		h.logger.Warn("Failed to update history record",
			slog.String("record_id", id),
			slog.String("error", err.Error()))
	}
}

func (h *HTTPServer) writeModelError(w http.ResponseWriter, err error) {
	var apiErr *transcription.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Class {
		case transcription.ClassRateLimited:
			h.writeError(w, http.StatusTooManyRequests, "model rate limit reached, try again later")
		case transcription.ClassQuotaExhausted:
			h.writeError(w, http.StatusServiceUnavailable, "model quota exhausted")
		case transcription.ClassInvalidInput:
			h.writeError(w, http.StatusBadRequest, "model rejected the request")
		default:
			h.writeError(w, http.StatusBadGateway, "model request failed")
		}
		return
	}
	h.writeError(w, http.StatusBadGateway, "model request failed")
}

// handleHistory lists stored transcription records.
func (h *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	records := h.store.List()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":   len(records),
		"records": records,
	})
}

// handleHistoryDetail fetches or deletes one history record.
func (h *HTTPServer) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "record ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := h.store.Get(id)
		if err != nil {
			h.writeError(w, http.StatusNotFound, "record not found")
			return
		}
		h.writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := h.store.Delete(id); err != nil {
			h.writeError(w, http.StatusNotFound, "record not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	clientStats := h.client.GetStats()

	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]any{
			"name":    "audio-to-text",
			"version": "1.0.0",
		},
		"components": map[string]any{
			"jobs": map[string]any{
				"status":       "running",
				"active_count": h.jobs.ActiveCount(),
			},
			"model": map[string]any{
				"status":         "running",
				"total_requests": clientStats.TotalRequests,
				"success_rate":   clientStats.SuccessRate,
			},
			"history": map[string]any{
				"status":       "running",
				"record_count": h.store.Count(),
			},
		},
	}

	h.writeJSON(w, http.StatusOK, health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]any{
		"http": map[string]any{
			"port":          h.config.HTTP.Port,
			"address":       h.config.HTTP.Address,
			"max_upload_mb": h.config.HTTP.MaxUploadMB,
		},
		"audio": map[string]any{
			"target_sample_rate": h.config.Audio.TargetSampleRate,
			"segment_seconds":    h.config.Audio.SegmentSeconds,
			"max_segment_bytes":  h.config.Audio.MaxSegmentBytes,
		},
		"model": map[string]any{
			"endpoint":       h.config.Model.Endpoint,
			"name":           h.config.Model.Name,
			"timeout":        h.config.Model.Timeout,
			"max_retries":    h.config.Model.MaxRetries,
			"max_concurrent": h.config.Model.MaxConcurrent,
			"workers":        h.config.Model.Workers,
			// Note: API key is intentionally omitted for security
		},
		"history": map[string]any{
			"path":                    h.config.History.Path,
			"max_records":             h.config.History.MaxRecords,
			"match_tolerance_seconds": h.config.History.ToleranceSeconds,
		},
		"logging": map[string]any{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	h.writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	clientStats := h.client.GetStats()

	stats := map[string]any{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"jobs": map[string]any{
			"tracked":      len(h.jobs.List()),
			"active_count": h.jobs.ActiveCount(),
		},
		"model":   clientStats,
		"history": map[string]any{"record_count": h.store.Count()},
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]any{
		"service": "Audio-to-text API",
		"version": "1.0.0",
		"endpoints": map[string]any{
			"GET /":                        "API documentation",
			"POST /api/transcriptions":     "Upload an audio file and start a transcription job",
			"GET /api/transcriptions":      "List transcription jobs",
			"GET /api/transcriptions/{id}": "Get job state, progress and transcript",
			"POST /api/translate":          "Translate a transcript",
			"POST /api/summarize":          "Summarize a transcript",
			"GET /api/history":             "List stored transcription records",
			"GET /api/history/{id}":        "Get one stored record",
			"DELETE /api/history/{id}":     "Delete a stored record",
			"GET /health":                  "Service health check",
			"GET /config":                  "Get service configuration",
			"GET /stats":                   "Get service statistics",
			"GET /metrics":                 "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	h.writeJSON(w, http.StatusOK, apiDoc)
}
