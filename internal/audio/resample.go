package audio

import "fmt"

// ResampleToCanonical converts a decoded buffer of any rate and channel
// count into mono PCM at targetRate. Multi-channel input is mixed down by
// averaging channel values per frame; rate conversion uses Catmull-Rom
// cubic interpolation. The result is deterministic for identical input and
// always stays within [-1, 1].
func ResampleToCanonical(src *PCMBuffer, targetRate int) (*CanonicalPCM, error) {
	if src == nil || len(src.Samples) == 0 {
		return nil, fmt.Errorf("%w: empty PCM buffer", ErrResample)
	}
	if src.SampleRate <= 0 || src.Channels < 1 {
		return nil, fmt.Errorf("%w: invalid buffer (rate=%d channels=%d)", ErrResample, src.SampleRate, src.Channels)
	}
	if targetRate <= 0 {
		return nil, fmt.Errorf("%w: invalid target rate %d", ErrResample, targetRate)
	}
	if len(src.Samples)%src.Channels != 0 {
		return nil, fmt.Errorf("%w: sample count %d not a multiple of %d channels", ErrResample, len(src.Samples), src.Channels)
	}

	mono := mixdown(src)

	if src.SampleRate == targetRate {
		return &CanonicalPCM{SampleRate: targetRate, Samples: mono}, nil
	}

	out := resampleCubic(mono, src.SampleRate, targetRate)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: input too short for rate conversion", ErrResample)
	}

	return &CanonicalPCM{SampleRate: targetRate, Samples: out}, nil
}

// mixdown averages all channels of a frame into one sample. Averaging
// cannot push a frame of in-range samples out of range, but the input is
// clamped anyway since decoders may hand back slight overshoot.
func mixdown(src *PCMBuffer) []float64 {
	if src.Channels == 1 {
		out := make([]float64, len(src.Samples))
		for i, v := range src.Samples {
			out[i] = clampSample(v)
		}
		return out
	}

	frames := src.Frames()
	inv := 1.0 / float64(src.Channels)
	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		sum := 0.0
		base := f * src.Channels
		for c := 0; c < src.Channels; c++ {
			sum += src.Samples[base+c]
		}
		out[f] = clampSample(sum * inv)
	}
	return out
}

// resampleCubic converts mono samples from srcRate to dstRate using cubic
// interpolation over four neighboring frames, duplicating edge frames at
// the boundaries. Cubic splines can overshoot near sharp transitions, so
// every output sample is clamped.
func resampleCubic(in []float64, srcRate, dstRate int) []float64 {
	outLen := int(int64(len(in)) * int64(dstRate) / int64(srcRate))
	if outLen == 0 && len(in) > 0 {
		outLen = 1
	}

	ratio := float64(srcRate) / float64(dstRate)
	last := len(in) - 1
	out := make([]float64, outLen)

	for i := 0; i < outLen; i++ {
		pos := float64(i) * ratio
		i1 := int(pos)
		if i1 > last {
			i1 = last
		}
		frac := pos - float64(i1)

		i0 := i1 - 1
		if i0 < 0 {
			i0 = 0
		}
		i2 := i1 + 1
		if i2 > last {
			i2 = last
		}
		i3 := i1 + 2
		if i3 > last {
			i3 = last
		}

		out[i] = clampSample(cubicInterpolate(in[i0], in[i1], in[i2], in[i3], frac))
	}

	return out
}

// cubicInterpolate evaluates a Catmull-Rom spline at fractional position x
// between y1 and y2 (0 <= x <= 1).
func cubicInterpolate(y0, y1, y2, y3, x float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}
