package job

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/deedcao/Audio-to-text/internal/audio"
	"github.com/deedcao/Audio-to-text/internal/history"
	"github.com/deedcao/Audio-to-text/internal/transcription"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (f *fakeTranscriber) TranscribeSegment(ctx context.Context, seg *audio.EncodedSegment) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if f.fail != nil {
		return "", f.fail
	}
	return fmt.Sprintf("segment %d text", n), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// testWAV builds a short canonical-rate WAV upload.
func testWAV(t *testing.T, seconds int) []byte {
	t.Helper()
	samples := make([]int16, seconds*audio.CanonicalSampleRate)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	data, err := audio.EncodeWAV(samples, audio.CanonicalSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	return data
}

func newTestManager(t *testing.T, client transcription.SegmentTranscriber, store *history.Store) *Manager {
	t.Helper()
	mgr, err := NewManager(Config{Workers: 2, Retention: time.Hour}, testLogger(), nil, client, store)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr
}

func waitForTerminal(t *testing.T, mgr *Manager, id string) Info {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info, ok := mgr.Get(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		switch info.State {
		case "completed", "failed", "aborted":
			return info
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Info{}
}

func TestSubmitRunsPipeline(t *testing.T) {
	mgr := newTestManager(t, &fakeTranscriber{}, nil)

	info, err := mgr.Submit(Source{Name: "meeting.wav", Size: 100, Data: testWAV(t, 1)})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	final := waitForTerminal(t, mgr, info.ID)
	if final.State != "completed" {
		t.Fatalf("state = %s, want completed (error: %s)", final.State, final.Error)
	}
	if final.Transcript == "" {
		t.Error("expected non-empty transcript")
	}
	if final.Progress != 100 {
		t.Errorf("progress = %v, want 100", final.Progress)
	}
	if final.SegmentCount != 1 {
		t.Errorf("segment count = %d, want 1", final.SegmentCount)
	}
}

func TestSubmitEmptyUpload(t *testing.T) {
	mgr := newTestManager(t, &fakeTranscriber{}, nil)

	if _, err := mgr.Submit(Source{Name: "empty.wav"}); err == nil {
		t.Error("expected error for empty upload")
	}
}

func TestSubmitCorruptAudioFails(t *testing.T) {
	mgr := newTestManager(t, &fakeTranscriber{}, nil)

	info, err := mgr.Submit(Source{Name: "noise.wav", Data: []byte("not audio at all")})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	final := waitForTerminal(t, mgr, info.ID)
	if final.State != "failed" {
		t.Fatalf("state = %s, want failed", final.State)
	}
	if final.Error != "unsupported or corrupt audio file" {
		t.Errorf("error = %q", final.Error)
	}
}

func TestQuotaErrorAbortsJob(t *testing.T) {
	client := &fakeTranscriber{fail: &transcription.APIError{
		Class:      transcription.ClassQuotaExhausted,
		StatusCode: 403,
		Message:    "quota exceeded",
	}}
	mgr := newTestManager(t, client, nil)

	info, err := mgr.Submit(Source{Name: "long.wav", Data: testWAV(t, 1)})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	final := waitForTerminal(t, mgr, info.ID)
	if final.State != "aborted" {
		t.Fatalf("state = %s, want aborted", final.State)
	}
	if final.Error != "model quota exhausted, try again later" {
		t.Errorf("error = %q", final.Error)
	}
}

func TestHistoryCacheHit(t *testing.T) {
	store, err := history.NewStore(history.Config{
		Path: filepath.Join(t.TempDir(), "history.json"),
	}, testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	modified := time.Now().Truncate(time.Second)
	rec, err := store.Save(history.Record{
		FileName:     "cached.wav",
		FileSize:     4242,
		LastModified: modified,
		Transcript:   "previously transcribed",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mgr := newTestManager(t, &fakeTranscriber{}, store)

	info, err := mgr.Submit(Source{
		Name:         "cached.wav",
		Size:         4242,
		LastModified: modified,
		Data:         []byte("ignored, answered from cache"),
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if info.State != "completed" {
		t.Fatalf("state = %s, want completed", info.State)
	}
	if !info.FromCache {
		t.Error("expected FromCache to be set")
	}
	if info.Transcript != "previously transcribed" {
		t.Errorf("transcript = %q", info.Transcript)
	}
	if info.RecordID != rec.ID {
		t.Errorf("record id = %q, want %q", info.RecordID, rec.ID)
	}
}

func TestCompletedJobPersistedToHistory(t *testing.T) {
	store, err := history.NewStore(history.Config{
		Path: filepath.Join(t.TempDir(), "history.json"),
	}, testLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	mgr := newTestManager(t, &fakeTranscriber{}, store)

	info, err := mgr.Submit(Source{Name: "fresh.wav", Size: 10, Data: testWAV(t, 1)})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	final := waitForTerminal(t, mgr, info.ID)
	if final.State != "completed" {
		t.Fatalf("state = %s, want completed (error: %s)", final.State, final.Error)
	}
	if final.RecordID == "" {
		t.Fatal("expected a history record id")
	}
	if store.Count() != 1 {
		t.Errorf("history count = %d, want 1", store.Count())
	}
}

func TestGetUnknownJob(t *testing.T) {
	mgr := newTestManager(t, &fakeTranscriber{}, nil)

	if _, ok := mgr.Get("nope"); ok {
		t.Error("expected Get to report missing job")
	}
}

func TestEvictExpiredJobs(t *testing.T) {
	mgr, err := NewManager(Config{Workers: 1, Retention: time.Nanosecond},
		testLogger(), nil, &fakeTranscriber{}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Stop()

	info, err := mgr.Submit(Source{Name: "old.wav", Size: 10, Data: testWAV(t, 1)})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitForTerminal(t, mgr, info.ID)

	time.Sleep(time.Millisecond)
	mgr.evictExpired()

	if _, ok := mgr.Get(info.ID); ok {
		t.Error("expected terminal job to be evicted")
	}
	if got := len(mgr.List()); got != 0 {
		t.Errorf("list length = %d, want 0", got)
	}
}
