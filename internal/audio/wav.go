package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeader is the canonical 44-byte RIFF/WAVE header for uncompressed PCM.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for linear PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // sample bytes
}

// EncodeWAV packages mono 16-bit samples into a self-contained WAV file
// that any standard decoder can open. This is the wire contract the remote
// transcription operation depends on.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty sample slice", ErrEncode)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrEncode, sampleRate)
	}

	const (
		numChannels   = uint16(1)
		bitsPerSample = uint16(16)
	)
	dataSize := uint32(len(samples) * bytesPerSample)

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(wavHeaderSize-8) + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*bytesPerSample))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("%w: writing header: %v", ErrEncode, err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("%w: writing samples: %v", ErrEncode, err)
	}

	return buf.Bytes(), nil
}

// DecodeWAV reads back a WAV file produced by EncodeWAV. Used by the
// round-trip tests and the local fake model server.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("%w: need at least %d bytes, got %d", ErrDecode, wavHeaderSize, len(data))
	}

	buf := bytes.NewReader(data)
	var header wavHeader
	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("%w: reading header: %v", ErrDecode, err)
	}

	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: missing RIFF/WAVE marker", ErrDecode)
	}
	if string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data" {
		return nil, 0, fmt.Errorf("%w: non-canonical chunk layout", ErrDecode)
	}
	if header.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("%w: audio format %d is not linear PCM", ErrDecode, header.AudioFormat)
	}
	if header.BitsPerSample != 16 || header.NumChannels != 1 {
		return nil, 0, fmt.Errorf("%w: expected mono 16-bit, got %d-bit %d-channel", ErrDecode, header.BitsPerSample, header.NumChannels)
	}

	count := int(header.Subchunk2Size) / bytesPerSample
	if count <= 0 {
		return nil, 0, fmt.Errorf("%w: no audio data", ErrDecode)
	}

	samples := make([]int16, count)
	if err := binary.Read(buf, binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("%w: reading samples: %v", ErrDecode, err)
	}

	return samples, int(header.SampleRate), nil
}

// PCM16FromFloat quantizes normalized samples to signed 16-bit. Each value
// is clamped to [-1, 1]; negative values scale by 32768 and non-negative by
// 32767 so both endpoints map onto the full int16 range without overflow.
func PCM16FromFloat(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		v = clampSample(v)
		if v < 0 {
			out[i] = int16(v * 32768)
		} else {
			out[i] = int16(v * 32767)
		}
	}
	return out
}
