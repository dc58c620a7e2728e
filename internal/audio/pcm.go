package audio

import "time"

const (
	// CanonicalSampleRate is the sample rate every decoded input is
	// resampled to before splitting. 16kHz mono shrinks typical 48kHz
	// stereo input by ~6x, which is what keeps 180-second segments under
	// the transport payload ceiling.
	CanonicalSampleRate = 16000

	bytesPerSample = 2  // 16-bit PCM
	wavHeaderSize  = 44 // canonical RIFF/WAVE header
)

// PCMBuffer holds decoded linear PCM at its native sample rate and channel
// count. Samples are interleaved float64 values in [-1, 1]. Buffers are
// never mutated after creation; resampling produces a new buffer.
type PCMBuffer struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// Frames returns the number of sample frames (samples per channel).
func (b *PCMBuffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback duration of the buffer.
func (b *PCMBuffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// CanonicalPCM is mono PCM at a fixed sample rate, the only representation
// the splitter consumes.
type CanonicalPCM struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the playback duration of the canonical buffer.
func (c *CanonicalPCM) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// clampSample bounds a sample to the valid [-1, 1] range.
func clampSample(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
