package audio

import (
	"fmt"
	"time"
)

// SplitConfig bounds the segments the splitter produces. SegmentSeconds is
// a tunable trade-off: longer windows give the model more surrounding
// context per call (better continuity across speaker turns) at the cost of
// bigger payloads and coarser failure isolation. MaxSegmentBytes caps the
// transport-encoded size of any single segment regardless of duration.
type SplitConfig struct {
	SegmentSeconds  int
	MaxSegmentBytes int
}

// DefaultSplitConfig matches a 180-second window at 16kHz: ~5.76MB of raw
// PCM, ~7.7MB after base64 expansion, safely under a 20MB transport ceiling.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		SegmentSeconds:  180,
		MaxSegmentBytes: 20 << 20,
	}
}

// Segment is a contiguous, non-overlapping slice of canonical samples.
// Index is 0-based and defines final assembly order. The sample range is
// [Start, End).
type Segment struct {
	Index int
	Start int
	End   int
}

// SampleCount returns the number of samples covered by the segment.
func (s Segment) SampleCount() int {
	return s.End - s.Start
}

// Duration returns the segment's playback time at the given rate.
func (s Segment) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.SampleCount()) / float64(sampleRate) * float64(time.Second))
}

// Split partitions the canonical sample stream into an ordered sequence of
// fixed-size windows. The window is SegmentSeconds of audio, additionally
// capped so a full window's encoded WAV fits MaxSegmentBytes after base64
// expansion; the size budget therefore holds by construction. The final
// window may be shorter, with no padding. Adjacent segments share exactly
// one boundary sample index: segment[i].End == segment[i+1].Start.
func Split(pcm *CanonicalPCM, cfg SplitConfig) ([]Segment, error) {
	if pcm == nil || len(pcm.Samples) == 0 {
		return nil, fmt.Errorf("%w: nothing to split", ErrResample)
	}
	if cfg.SegmentSeconds <= 0 {
		return nil, fmt.Errorf("invalid split config: segment duration %ds", cfg.SegmentSeconds)
	}

	window := cfg.SegmentSeconds * pcm.SampleRate
	if cfg.MaxSegmentBytes > 0 {
		budget := maxSamplesForBudget(cfg.MaxSegmentBytes)
		if budget < 1 {
			return nil, fmt.Errorf("invalid split config: %d byte budget cannot fit any samples", cfg.MaxSegmentBytes)
		}
		if budget < window {
			window = budget
		}
	}

	total := len(pcm.Samples)
	segments := make([]Segment, 0, (total+window-1)/window)
	for start := 0; start < total; start += window {
		end := start + window
		if end > total {
			end = total
		}
		segments = append(segments, Segment{
			Index: len(segments),
			Start: start,
			End:   end,
		})
	}

	return segments, nil
}

// maxSamplesForBudget inverts the encoded-size formula: n samples become
// 44+2n raw bytes, and base64 renders every 3 raw bytes as 4 characters.
func maxSamplesForBudget(maxBytes int) int {
	rawBudget := (maxBytes / 4) * 3
	return (rawBudget - wavHeaderSize) / bytesPerSample
}
