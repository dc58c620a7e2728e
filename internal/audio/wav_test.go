package audio

import (
	"errors"
	"math"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	// 440Hz sine for 0.1s at 16kHz
	sampleRate := 16000
	numSamples := sampleRate / 10
	samples := make([]int16, numSamples)
	for i := 0; i < numSamples; i++ {
		ts := float64(i) / float64(sampleRate)
		samples[i] = int16(16383 * math.Sin(2*math.Pi*440*ts))
	}

	data, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(data) != wavHeaderSize+numSamples*2 {
		t.Errorf("expected %d bytes, got %d", wavHeaderSize+numSamples*2, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if string(data[36:40]) != "data" {
		t.Error("missing data chunk marker")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	original := []int16{100, -200, 300, -400, 500, -32768, 32767, 0}

	data, err := EncodeWAV(original, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", rate)
	}
	if len(decoded) != len(original) {
		t.Fatalf("expected %d samples, got %d", len(original), len(decoded))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("sample %d: expected %d, got %d", i, original[i], decoded[i])
		}
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); !errors.Is(err, ErrEncode) {
		t.Errorf("expected ErrEncode for empty samples, got %v", err)
	}
}

func TestEncodeWAVInvalidRate(t *testing.T) {
	if _, err := EncodeWAV([]int16{1, 2, 3}, 0); !errors.Is(err, ErrEncode) {
		t.Errorf("expected ErrEncode for zero sample rate, got %v", err)
	}
}

func TestDecodeWAVTruncated(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("RIFF....WAVE")); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for truncated input, got %v", err)
	}
}

func TestPCM16FromFloat(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int16
	}{
		{"zero", 0, 0},
		{"positive full scale", 1.0, 32767},
		{"negative full scale", -1.0, -32768},
		{"clamped above", 2.5, 32767},
		{"clamped below", -2.5, -32768},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PCM16FromFloat([]float64{tt.in})[0]
			if got != tt.want {
				t.Errorf("PCM16FromFloat(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

// The container framing must be lossless: quantized samples written into a
// WAV and decoded back must match bit for bit.
func TestQuantizedRoundTrip(t *testing.T) {
	floats := make([]float64, 1000)
	for i := range floats {
		floats[i] = math.Sin(float64(i) * 0.1)
	}
	quantized := PCM16FromFloat(floats)

	data, err := EncodeWAV(quantized, CanonicalSampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	decoded, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	for i := range quantized {
		if decoded[i] != quantized[i] {
			t.Fatalf("sample %d changed through container framing: %d != %d", i, decoded[i], quantized[i])
		}
	}
}
