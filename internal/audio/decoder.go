package audio

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Format identifies a supported audio container.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatOgg     Format = "ogg"
	FormatAIFF    Format = "aiff"
	FormatUnknown Format = ""
)

// DetectFormat identifies the container by sniffing magic bytes. The file
// name is a fallback hint only; browsers routinely mis-tag uploads (.m4a
// arrives as generic binary), so content wins over declared type.
func DetectFormat(data []byte, nameHint string) Format {
	if len(data) >= 12 {
		if bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
			return FormatWAV
		}
		if bytes.Equal(data[0:4], []byte("FORM")) &&
			(bytes.Equal(data[8:12], []byte("AIFF")) || bytes.Equal(data[8:12], []byte("AIFC"))) {
			return FormatAIFF
		}
	}
	if len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")) {
		return FormatOgg
	}
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return FormatMP3
	}
	// Bare MPEG frame sync without an ID3 tag
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3
	}

	switch strings.ToLower(filepath.Ext(nameHint)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".ogg", ".oga":
		return FormatOgg
	case ".aiff", ".aif":
		return FormatAIFF
	}

	return FormatUnknown
}

// Decode turns an arbitrary compressed/container audio byte stream into a
// PCMBuffer at its native sample rate and channel count. It makes no
// assumption about the source format beyond the supported containers.
func Decode(data []byte, nameHint string) (*PCMBuffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	format := DetectFormat(data, nameHint)
	switch format {
	case FormatWAV:
		return decodeWAV(data)
	case FormatMP3:
		return decodeMP3(data)
	case FormatOgg:
		return decodeOgg(data)
	case FormatAIFF:
		return decodeAIFF(data)
	default:
		return nil, fmt.Errorf("%w: unrecognized container for %q", ErrDecode, nameHint)
	}
}

func decodeWAV(data []byte) (*PCMBuffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: WAV file contains no audio data", ErrDecode)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}

	return pcmFromInts(buf.Data, buf.Format.SampleRate, buf.Format.NumChannels, bitDepth)
}

func decodeAIFF(data []byte) (*PCMBuffer, error) {
	dec := aiff.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: AIFF file contains no audio data", ErrDecode)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}

	return pcmFromInts(buf.Data, buf.Format.SampleRate, buf.Format.NumChannels, bitDepth)
}

func decodeMP3(data []byte) (*PCMBuffer, error) {
	dec, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// go-mp3 always emits stereo 16-bit little-endian PCM.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: MP3 file contains no audio data", ErrDecode)
	}

	count := len(raw) / 2
	samples := make([]float64, count)
	for i := 0; i < count; i++ {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float64(v) / 32768.0
	}

	return &PCMBuffer{
		SampleRate: dec.SampleRate(),
		Channels:   2,
		Samples:    samples,
	}, nil
}

func decodeOgg(data []byte) (*PCMBuffer, error) {
	raw, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: Ogg file contains no audio data", ErrDecode)
	}

	samples := make([]float64, len(raw))
	for i, v := range raw {
		samples[i] = clampSample(float64(v))
	}

	return &PCMBuffer{
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		Samples:    samples,
	}, nil
}

// pcmFromInts converts integer samples of the given bit depth to the
// normalized float representation.
func pcmFromInts(data []int, sampleRate, channels, bitDepth int) (*PCMBuffer, error) {
	if sampleRate <= 0 || channels < 1 {
		return nil, fmt.Errorf("%w: invalid format (rate=%d channels=%d)", ErrDecode, sampleRate, channels)
	}

	scale := float64(int64(1) << (bitDepth - 1))
	samples := make([]float64, len(data))
	for i, v := range data {
		samples[i] = clampSample(float64(v) / scale)
	}

	return &PCMBuffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}, nil
}
