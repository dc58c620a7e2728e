package job

import (
	"sync"
	"time"
)

// State is the lifecycle state of one transcription job.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAborted
}

// Job is one pipeline run for one uploaded file.
type Job struct {
	ID             string
	FileName       string
	FileSize       int64
	LastModified   time.Time
	TargetLanguage string
	CreatedAt      time.Time

	state        State
	progress     float64
	transcript   string
	recordID     string
	segmentCount int
	fromCache    bool
	errMsg       string
	finishedAt   time.Time

	mu sync.RWMutex
}

// Info is an immutable snapshot of a job for API consumers.
type Info struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	State        string    `json:"state"`
	Progress     float64   `json:"progress"`
	Transcript   string    `json:"transcript,omitempty"`
	RecordID     string    `json:"record_id,omitempty"`
	SegmentCount int       `json:"segment_count,omitempty"`
	FromCache    bool      `json:"from_cache,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Snapshot returns the job's current observable state.
func (j *Job) Snapshot() Info {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return Info{
		ID:           j.ID,
		FileName:     j.FileName,
		State:        j.state.String(),
		Progress:     j.progress,
		Transcript:   j.transcript,
		RecordID:     j.recordID,
		SegmentCount: j.segmentCount,
		FromCache:    j.fromCache,
		Error:        j.errMsg,
		CreatedAt:    j.CreatedAt,
	}
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
	if s.Terminal() {
		j.finishedAt = time.Now()
	}
}

// advanceProgress raises the progress value, never lowers it. Phase
// transitions and orchestrator callbacks both funnel through here, which
// is what keeps the reported stream monotonic.
func (j *Job) advanceProgress(p float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if p > j.progress {
		j.progress = p
	}
}

func (j *Job) setSegmentCount(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.segmentCount = n
}

func (j *Job) complete(transcript, recordID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = StateCompleted
	j.transcript = transcript
	j.recordID = recordID
	j.progress = 100
	j.finishedAt = time.Now()
}

func (j *Job) fail(s State, userMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
	j.errMsg = userMsg
	j.finishedAt = time.Now()
}

func (j *Job) terminalSince() (time.Time, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if !j.state.Terminal() {
		return time.Time{}, false
	}
	return j.finishedAt, true
}
