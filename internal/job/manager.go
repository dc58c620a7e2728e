package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deedcao/Audio-to-text/internal/audio"
	"github.com/deedcao/Audio-to-text/internal/history"
	"github.com/deedcao/Audio-to-text/internal/metrics"
	"github.com/deedcao/Audio-to-text/internal/transcription"
)

// Progress checkpoints for the pipeline phases that run before the
// orchestrator takes over. The orchestrator reports 0-90 on its own and
// completion jumps to 100.
const (
	progressDecoded   = 5.0
	progressResampled = 10.0
)

const cleanupInterval = time.Minute

// Source describes one uploaded file.
type Source struct {
	Name           string
	Size           int64
	LastModified   time.Time
	TargetLanguage string
	Data           []byte
}

// Config carries the pipeline settings a Manager needs.
type Config struct {
	TargetSampleRate int
	Split            audio.SplitConfig
	Workers          int
	Retention        time.Duration
}

// Manager owns the set of transcription jobs. Each upload becomes a job
// that runs the decode, resample, split, encode, and transcribe pipeline
// in its own goroutine. Terminal jobs are evicted after the retention
// window by a background cleanup loop.
type Manager struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	client  transcription.SegmentTranscriber
	store   *history.Store

	jobs map[string]*Job
	mu   sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a job manager and starts its cleanup loop. The
// metrics and store arguments may be nil.
func NewManager(cfg Config, logger *slog.Logger, m *metrics.Metrics,
	client transcription.SegmentTranscriber, store *history.Store) (*Manager, error) {

	if client == nil {
		return nil, fmt.Errorf("segment transcriber is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TargetSampleRate == 0 {
		cfg.TargetSampleRate = audio.CanonicalSampleRate
	}
	if cfg.Split.SegmentSeconds == 0 {
		cfg.Split = audio.DefaultSplitConfig()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	mgr := &Manager{
		config:  cfg,
		logger:  logger,
		metrics: m,
		client:  client,
		store:   store,
		jobs:    make(map[string]*Job),
		ctx:     ctx,
		cancel:  cancel,
	}

	mgr.wg.Add(1)
	go mgr.cleanupLoop()

	logger.Info("Job manager started",
		slog.Int("workers", cfg.Workers),
		slog.Int("segment_seconds", cfg.Split.SegmentSeconds),
		slog.Duration("retention", cfg.Retention))

	return mgr, nil
}

// Submit registers a new job for the uploaded file and starts its
// pipeline. When the history store already holds a matching record the
// job completes immediately from the cached transcript.
func (m *Manager) Submit(source Source) (Info, error) {
	if len(source.Data) == 0 {
		return Info{}, fmt.Errorf("empty upload")
	}
	if source.Name == "" {
		source.Name = "upload"
	}

	job := &Job{
		ID:             uuid.NewString(),
		FileName:       source.Name,
		FileSize:       source.Size,
		LastModified:   source.LastModified,
		TargetLanguage: source.TargetLanguage,
		CreatedAt:      time.Now(),
		state:          StatePending,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordJobSubmitted()
	}

	if m.store != nil {
		if rec, ok := m.store.FindForFile(source.Name, source.Size, source.LastModified); ok {
			job.mu.Lock()
			job.fromCache = true
			job.mu.Unlock()
			job.complete(rec.Transcript, rec.ID)
			if m.metrics != nil {
				m.metrics.RecordCacheHit()
				m.metrics.RecordJobCompleted(0)
			}
			m.logger.Info("Job answered from history",
				slog.String("job_id", job.ID),
				slog.String("file", source.Name),
				slog.String("record_id", rec.ID))
			return job.Snapshot(), nil
		}
	}

	m.wg.Add(1)
	go m.run(job, source)

	return job.Snapshot(), nil
}

// Get returns a snapshot of the job with the given ID.
func (m *Manager) Get(id string) (Info, bool) {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Info{}, false
	}
	return job.Snapshot(), true
}

// List returns snapshots of all tracked jobs.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.jobs))
	for _, job := range m.jobs {
		infos = append(infos, job.Snapshot())
	}
	return infos
}

// ActiveCount returns the number of jobs that have not reached a
// terminal state.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, job := range m.jobs {
		if _, done := job.terminalSince(); !done {
			count++
		}
	}
	return count
}

// Stop cancels running jobs and waits for them to finish.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	m.logger.Info("Job manager stopped")
}

func (m *Manager) run(job *Job, source Source) {
	defer m.wg.Done()

	start := time.Now()
	job.setState(StateRunning)

	m.logger.Info("Job started",
		slog.String("job_id", job.ID),
		slog.String("file", source.Name),
		slog.Int("bytes", len(source.Data)))

	transcript, segmentCount, err := m.pipeline(job, source)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		state := StateFailed
		if transcription.IsFatal(err) {
			state = StateAborted
		}
		job.fail(state, userMessage(err))
		if m.metrics != nil {
			if state == StateAborted {
				m.metrics.RecordJobAborted(elapsed)
			} else {
				m.metrics.RecordJobFailed(elapsed)
			}
		}
		m.logger.Error("Job failed",
			slog.String("job_id", job.ID),
			slog.String("state", state.String()),
			slog.String("error", err.Error()))
		return
	}

	recordID := ""
	if m.store != nil {
		rec, saveErr := m.store.Save(history.Record{
			FileName:     source.Name,
			FileSize:     source.Size,
			LastModified: source.LastModified,
			Transcript:   transcript,
		})
		if saveErr != nil {
			m.logger.Warn("Failed to persist transcript",
				slog.String("job_id", job.ID),
				slog.String("error", saveErr.Error()))
		} else {
			recordID = rec.ID
		}
	}

	job.complete(transcript, recordID)
	if m.metrics != nil {
		m.metrics.RecordJobCompleted(elapsed)
	}
	m.logger.Info("Job completed",
		slog.String("job_id", job.ID),
		slog.Int("segments", segmentCount),
		slog.Float64("duration_seconds", elapsed))
}

func (m *Manager) pipeline(job *Job, source Source) (string, int, error) {
	pcm, err := audio.Decode(source.Data, source.Name)
	if err != nil {
		return "", 0, err
	}
	job.advanceProgress(progressDecoded)

	canonical, err := audio.ResampleToCanonical(pcm, m.config.TargetSampleRate)
	if err != nil {
		return "", 0, err
	}
	job.advanceProgress(progressResampled)

	segments, err := audio.Split(canonical, m.config.Split)
	if err != nil {
		return "", 0, err
	}

	encoded, err := audio.EncodeSegments(canonical, segments)
	if err != nil {
		return "", 0, err
	}
	job.setSegmentCount(len(encoded))

	if m.metrics != nil {
		sizes := make([]int, len(encoded))
		for i, seg := range encoded {
			sizes[i] = seg.ByteSize()
		}
		m.metrics.RecordSegments(len(encoded), sizes, canonical.Duration().Seconds())
	}

	orch := transcription.NewOrchestrator(m.client, m.config.Workers, m.logger)
	transcript, err := orch.Run(m.ctx, encoded, func(p float64) {
		job.advanceProgress(p)
	})
	if err != nil {
		return "", len(encoded), err
	}

	return transcript, len(encoded), nil
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Manager) evictExpired() {
	cutoff := time.Now().Add(-m.config.Retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, job := range m.jobs {
		if finished, done := job.terminalSince(); done && finished.Before(cutoff) {
			delete(m.jobs, id)
			m.logger.Debug("Evicted expired job", slog.String("job_id", id))
		}
	}
}

// userMessage maps a pipeline error to the single message shown to API
// consumers.
func userMessage(err error) string {
	var apiErr *transcription.APIError
	switch {
	case errors.Is(err, audio.ErrDecode):
		return "unsupported or corrupt audio file"
	case errors.Is(err, audio.ErrResample):
		return "audio could not be converted for transcription"
	case errors.Is(err, audio.ErrEncode):
		return "audio could not be prepared for upload"
	case errors.Is(err, transcription.ErrEmptyTranscript):
		return "no segment could be transcribed"
	case errors.As(err, &apiErr) && apiErr.Class == transcription.ClassQuotaExhausted:
		return "model quota exhausted, try again later"
	case errors.Is(err, context.Canceled):
		return "transcription cancelled"
	default:
		return "transcription failed"
	}
}
