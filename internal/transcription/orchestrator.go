package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/deedcao/Audio-to-text/internal/audio"
)

// SegmentTranscriber is the one remote operation the orchestrator drives.
// *Client implements it; tests substitute fakes.
type SegmentTranscriber interface {
	TranscribeSegment(ctx context.Context, seg *audio.EncodedSegment) (string, error)
}

// SegmentState tracks one segment through the run.
type SegmentState int

const (
	SegmentPending SegmentState = iota
	SegmentInFlight
	SegmentSucceeded
	SegmentFailed
)

// State tracks a whole orchestration run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// progressCap is the highest progress value the orchestrator reports.
// The remainder is headroom for whole-transcript post-processing, so the
// caller's progress bar does not sit at 100 while cleanup still runs.
const progressCap = 90.0

// Orchestrator drives the remote transcription operation over an ordered
// sequence of encoded segments with a bounded worker pool. Workers write
// results into a pre-sized slice keyed by sequence index, so assembly
// order never depends on completion order. One Orchestrator serves one run.
type Orchestrator struct {
	client  SegmentTranscriber
	workers int
	logger  *slog.Logger

	state    State
	resolved int
	failed   int
	mu       sync.Mutex

	// aborted is checked between segment dispatches; a fatal error sets it
	// so no new work is issued. In-flight calls finish and are discarded.
	aborted atomic.Bool
}

// NewOrchestrator creates an orchestrator with the given worker bound.
// workers=1 degenerates to strict sequential processing, which gives the
// smoothest linear progress; higher counts cut end-to-end latency at the
// price of more rate-limit pressure on the remote API.
func NewOrchestrator(client SegmentTranscriber, workers int, logger *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:  client,
		workers: workers,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run transcribes all segments and joins the fragments into one transcript
// in strict sequence-index order. A non-fatal segment failure is replaced
// with a placeholder so the user sees exactly which portion is missing; a
// fatal failure aborts the run and is returned as the error. onProgress
// (optional) observes monotonically non-decreasing values in (0, 90].
func (o *Orchestrator) Run(ctx context.Context, segments []*audio.EncodedSegment, onProgress func(float64)) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("no segments to transcribe")
	}

	o.setState(StateRunning)

	total := len(segments)
	// Each worker writes only to its own assigned indices; no write ever
	// races with another write, which is what keeps this lock-free.
	results := make([]string, total)
	states := make([]SegmentState, total)
	succeeded := make([]bool, total)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatalOnce sync.Once
	var fatalErr error

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := 0; i < total; i++ {
			if o.aborted.Load() {
				return
			}
			select {
			case jobs <- i:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if o.aborted.Load() {
					return
				}

				states[idx] = SegmentInFlight
				text, err := o.client.TranscribeSegment(runCtx, segments[idx])

				switch {
				case err == nil:
					results[idx] = text
					states[idx] = SegmentSucceeded
					succeeded[idx] = true

				case IsFatal(err):
					states[idx] = SegmentFailed
					fatalOnce.Do(func() {
						fatalErr = err
						o.aborted.Store(true)
						cancel()
						o.logger.Error("Fatal model error, aborting run",
							slog.Int("segment", idx),
							slog.String("error", err.Error()),
						)
					})
					return

				default:
					if runCtx.Err() != nil {
						// Cancelled mid-flight; the result is discarded.
						states[idx] = SegmentFailed
						return
					}
					states[idx] = SegmentFailed
					results[idx] = fmt.Sprintf("[segment %d recognition failed]", idx+1)
					o.noteFailure()
					o.logger.Warn("Segment failed, substituting placeholder",
						slog.Int("segment", idx),
						slog.String("error", err.Error()),
					)
				}

				o.reportProgress(onProgress, total)
			}
		}()
	}

	wg.Wait()

	if fatalErr != nil {
		o.setState(StateAborted)
		return "", fatalErr
	}
	if err := ctx.Err(); err != nil {
		o.setState(StateAborted)
		return "", err
	}

	anySucceeded := false
	parts := make([]string, 0, total)
	for _, ok := range succeeded {
		if ok {
			anySucceeded = true
			break
		}
	}
	if !anySucceeded {
		o.setState(StateCompleted)
		return "", ErrEmptyTranscript
	}

	for _, fragment := range results {
		if fragment != "" {
			parts = append(parts, fragment)
		}
	}

	o.setState(StateCompleted)
	return strings.Join(parts, "\n\n"), nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

func (o *Orchestrator) noteFailure() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
}

// reportProgress emits resolved/total scaled to the cap. The counter and
// callback share one lock so observed values never go backwards even when
// workers finish simultaneously.
func (o *Orchestrator) reportProgress(onProgress func(float64), total int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.resolved++
	if onProgress != nil {
		onProgress(float64(o.resolved) / float64(total) * progressCap)
	}
}
