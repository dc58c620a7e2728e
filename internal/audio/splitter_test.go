package audio

import (
	"testing"
	"time"
)

func canonicalBuffer(seconds float64) *CanonicalPCM {
	n := int(seconds * CanonicalSampleRate)
	return &CanonicalPCM{
		SampleRate: CanonicalSampleRate,
		Samples:    make([]float64, n),
	}
}

// Segments must be contiguous, non-overlapping, and cover exactly [0, N).
func checkPartition(t *testing.T, segments []Segment, total int) {
	t.Helper()

	if len(segments) == 0 {
		t.Fatal("no segments produced")
	}
	if segments[0].Start != 0 {
		t.Errorf("first segment starts at %d, want 0", segments[0].Start)
	}
	if segments[len(segments)-1].End != total {
		t.Errorf("last segment ends at %d, want %d", segments[len(segments)-1].End, total)
	}
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d carries index %d", i, seg.Index)
		}
		if seg.End <= seg.Start {
			t.Errorf("segment %d has empty range [%d,%d)", i, seg.Start, seg.End)
		}
		if i > 0 && seg.Start != segments[i-1].End {
			t.Errorf("gap or overlap between segments %d and %d: %d != %d", i-1, i, segments[i-1].End, seg.Start)
		}
	}
}

func TestSplitSevenMinutes(t *testing.T) {
	// 7 minutes at 180s windows: 180s + 180s + 60s
	pcm := canonicalBuffer(420)
	cfg := DefaultSplitConfig()

	segments, err := Split(pcm, cfg)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	checkPartition(t, segments, len(pcm.Samples))

	wantDurations := []time.Duration{180 * time.Second, 180 * time.Second, 60 * time.Second}
	for i, want := range wantDurations {
		if got := segments[i].Duration(CanonicalSampleRate); got != want {
			t.Errorf("segment %d duration = %v, want %v", i, got, want)
		}
	}
}

func TestSplitExactMultiple(t *testing.T) {
	pcm := canonicalBuffer(360)
	segments, err := Split(pcm, DefaultSplitConfig())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 equal segments, got %d", len(segments))
	}
	if segments[0].SampleCount() != segments[1].SampleCount() {
		t.Errorf("segments not equal: %d vs %d samples", segments[0].SampleCount(), segments[1].SampleCount())
	}
	checkPartition(t, segments, len(pcm.Samples))
}

func TestSplitShortInput(t *testing.T) {
	pcm := canonicalBuffer(5)
	segments, err := Split(pcm, DefaultSplitConfig())
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected single segment, got %d", len(segments))
	}
	checkPartition(t, segments, len(pcm.Samples))
}

// With a deliberately tiny byte budget the duration window no longer
// matters; every encoded segment must still fit the budget.
func TestSplitSizeBudget(t *testing.T) {
	pcm := canonicalBuffer(30)
	cfg := SplitConfig{SegmentSeconds: 180, MaxSegmentBytes: 64 << 10}

	segments, err := Split(pcm, cfg)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(segments) < 2 {
		t.Fatalf("budget should have forced multiple segments, got %d", len(segments))
	}
	checkPartition(t, segments, len(pcm.Samples))

	for _, seg := range segments {
		enc, err := EncodeSegment(pcm, seg)
		if err != nil {
			t.Fatalf("EncodeSegment(%d) failed: %v", seg.Index, err)
		}
		if enc.ByteSize() > cfg.MaxSegmentBytes {
			t.Errorf("segment %d encodes to %d bytes, budget is %d", seg.Index, enc.ByteSize(), cfg.MaxSegmentBytes)
		}
	}
}

func TestSplitInvalidInput(t *testing.T) {
	if _, err := Split(&CanonicalPCM{SampleRate: CanonicalSampleRate}, DefaultSplitConfig()); err == nil {
		t.Error("expected error for empty buffer")
	}
	if _, err := Split(canonicalBuffer(1), SplitConfig{SegmentSeconds: 0, MaxSegmentBytes: 1 << 20}); err == nil {
		t.Error("expected error for zero segment duration")
	}
	if _, err := Split(canonicalBuffer(1), SplitConfig{SegmentSeconds: 180, MaxSegmentBytes: 50}); err == nil {
		t.Error("expected error for budget smaller than one sample")
	}
}
