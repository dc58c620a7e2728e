package audio

import (
	"errors"
	"math"
	"testing"
)

func TestResamplePassthrough(t *testing.T) {
	src := &PCMBuffer{
		SampleRate: CanonicalSampleRate,
		Channels:   1,
		Samples:    []float64{0.1, -0.2, 0.3, -0.4},
	}

	out, err := ResampleToCanonical(src, CanonicalSampleRate)
	if err != nil {
		t.Fatalf("ResampleToCanonical failed: %v", err)
	}
	if out.SampleRate != CanonicalSampleRate {
		t.Errorf("expected rate %d, got %d", CanonicalSampleRate, out.SampleRate)
	}
	if len(out.Samples) != len(src.Samples) {
		t.Fatalf("expected %d samples, got %d", len(src.Samples), len(out.Samples))
	}
	for i := range src.Samples {
		if out.Samples[i] != src.Samples[i] {
			t.Errorf("sample %d changed: %v != %v", i, out.Samples[i], src.Samples[i])
		}
	}
}

func TestMixdownStereo(t *testing.T) {
	// Opposite-phase channels cancel to silence; equal channels pass through.
	src := &PCMBuffer{
		SampleRate: CanonicalSampleRate,
		Channels:   2,
		Samples:    []float64{1, -1, 0.5, 0.5, -0.3, -0.3},
	}

	out, err := ResampleToCanonical(src, CanonicalSampleRate)
	if err != nil {
		t.Fatalf("ResampleToCanonical failed: %v", err)
	}

	want := []float64{0, 0.5, -0.3}
	if len(out.Samples) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(out.Samples))
	}
	for i := range want {
		if math.Abs(out.Samples[i]-want[i]) > 1e-9 {
			t.Errorf("frame %d = %v, want %v", i, out.Samples[i], want[i])
		}
	}
}

func TestDownsampleLength(t *testing.T) {
	// 1 second of 48kHz stereo must become 16000 mono samples.
	n := 48000 * 2
	src := &PCMBuffer{SampleRate: 48000, Channels: 2, Samples: make([]float64, n)}

	out, err := ResampleToCanonical(src, CanonicalSampleRate)
	if err != nil {
		t.Fatalf("ResampleToCanonical failed: %v", err)
	}
	if len(out.Samples) != CanonicalSampleRate {
		t.Errorf("expected %d samples, got %d", CanonicalSampleRate, len(out.Samples))
	}
}

func TestUpsampleTelephony(t *testing.T) {
	// 8kHz mono telephony input doubles in sample count.
	src := &PCMBuffer{SampleRate: 8000, Channels: 1, Samples: make([]float64, 8000)}

	out, err := ResampleToCanonical(src, CanonicalSampleRate)
	if err != nil {
		t.Fatalf("ResampleToCanonical failed: %v", err)
	}
	if len(out.Samples) != 16000 {
		t.Errorf("expected 16000 samples, got %d", len(out.Samples))
	}
}

func TestResampleConstantSignal(t *testing.T) {
	// A constant signal survives cubic interpolation unchanged.
	src := &PCMBuffer{SampleRate: 44100, Channels: 1, Samples: make([]float64, 44100)}
	for i := range src.Samples {
		src.Samples[i] = 0.25
	}

	out, err := ResampleToCanonical(src, CanonicalSampleRate)
	if err != nil {
		t.Fatalf("ResampleToCanonical failed: %v", err)
	}
	for i, v := range out.Samples {
		if math.Abs(v-0.25) > 1e-9 {
			t.Fatalf("sample %d = %v, want 0.25", i, v)
		}
	}
}

func TestResampleOutputStaysInRange(t *testing.T) {
	// Alternating full-scale samples drive cubic overshoot; output must be
	// clamped to [-1, 1].
	src := &PCMBuffer{SampleRate: 44100, Channels: 1, Samples: make([]float64, 4410)}
	for i := range src.Samples {
		if i%2 == 0 {
			src.Samples[i] = 1
		} else {
			src.Samples[i] = -1
		}
	}

	out, err := ResampleToCanonical(src, CanonicalSampleRate)
	if err != nil {
		t.Fatalf("ResampleToCanonical failed: %v", err)
	}
	for i, v := range out.Samples {
		if v > 1 || v < -1 {
			t.Fatalf("sample %d = %v outside [-1,1]", i, v)
		}
	}
}

func TestResampleInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		src  *PCMBuffer
	}{
		{"nil buffer", nil},
		{"empty buffer", &PCMBuffer{SampleRate: 48000, Channels: 2}},
		{"zero rate", &PCMBuffer{SampleRate: 0, Channels: 1, Samples: []float64{0}}},
		{"zero channels", &PCMBuffer{SampleRate: 48000, Channels: 0, Samples: []float64{0}}},
		{"ragged frames", &PCMBuffer{SampleRate: 48000, Channels: 2, Samples: []float64{0, 0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ResampleToCanonical(tt.src, CanonicalSampleRate); !errors.Is(err, ErrResample) {
				t.Errorf("expected ErrResample, got %v", err)
			}
		})
	}
}
