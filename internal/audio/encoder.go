package audio

import (
	"encoding/base64"
	"fmt"
	"time"
)

// EncodedSegment is a segment rendered as a self-contained WAV file and
// transport-encoded for the model API, which only accepts text-safe
// payloads. Derived deterministically: identical samples always produce
// byte-identical output.
type EncodedSegment struct {
	Index    int
	WAV      []byte
	Base64   string
	Duration time.Duration
}

// ByteSize returns the transport-encoded payload size, the number the
// splitter's budget constrains.
func (e *EncodedSegment) ByteSize() int {
	return len(e.Base64)
}

// EncodeSegment renders one segment of the canonical stream into its
// transport form.
func EncodeSegment(pcm *CanonicalPCM, seg Segment) (*EncodedSegment, error) {
	if pcm == nil {
		return nil, fmt.Errorf("%w: nil canonical buffer", ErrEncode)
	}
	if seg.Start < 0 || seg.End > len(pcm.Samples) || seg.End <= seg.Start {
		return nil, fmt.Errorf("%w: segment %d range [%d,%d) outside %d samples", ErrEncode, seg.Index, seg.Start, seg.End, len(pcm.Samples))
	}

	quantized := PCM16FromFloat(pcm.Samples[seg.Start:seg.End])
	wavBytes, err := EncodeWAV(quantized, pcm.SampleRate)
	if err != nil {
		return nil, err
	}

	return &EncodedSegment{
		Index:    seg.Index,
		WAV:      wavBytes,
		Base64:   base64.StdEncoding.EncodeToString(wavBytes),
		Duration: seg.Duration(pcm.SampleRate),
	}, nil
}

// EncodeSegments encodes every segment of the stream in order.
func EncodeSegments(pcm *CanonicalPCM, segments []Segment) ([]*EncodedSegment, error) {
	encoded := make([]*EncodedSegment, 0, len(segments))
	for _, seg := range segments {
		e, err := EncodeSegment(pcm, seg)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, e)
	}
	return encoded, nil
}
