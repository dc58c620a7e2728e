package audio

import "errors"

var (
	// ErrDecode reports an unsupported or corrupt input container.
	// Fatal for the whole job; retrying a corrupt file gains nothing.
	ErrDecode = errors.New("audio decode failed")

	// ErrResample reports an empty or otherwise invalid PCM buffer.
	ErrResample = errors.New("audio resample failed")

	// ErrEncode reports a programmer-error segment input, such as an
	// empty sample slice.
	ErrEncode = errors.New("segment encode failed")
)
