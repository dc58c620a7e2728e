package transcription

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass partitions remote-call failures by how the orchestrator must
// react to them.
type ErrorClass int

const (
	// ClassNetwork covers transport failures and 5xx responses; transient,
	// retried with plain exponential backoff.
	ClassNetwork ErrorClass = iota
	// ClassRateLimited covers 429 responses; retried with a longer minimum
	// backoff floor since these need real wait time.
	ClassRateLimited
	// ClassQuotaExhausted covers hard quota/authorization exhaustion.
	// Fatal once the retry budget runs out: continuing would burn the same
	// quota on every remaining segment.
	ClassQuotaExhausted
	// ClassInvalidInput covers 4xx rejections of the request itself; never
	// retried.
	ClassInvalidInput
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassRateLimited:
		return "rate_limited"
	case ClassQuotaExhausted:
		return "quota_exhausted"
	case ClassInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// APIError is a classified remote-call failure.
type APIError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model API error (%s, HTTP %d): %s", e.Class, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model API error (%s): %s", e.Class, e.Message)
}

// Fatal reports whether the error must abort a whole orchestration run.
func (e *APIError) Fatal() bool {
	return e.Class == ClassQuotaExhausted
}

// Retryable reports whether another attempt can possibly succeed.
func (e *APIError) Retryable() bool {
	return e.Class != ClassInvalidInput
}

// needsBackoffFloor reports whether the error requires the longer minimum
// wait before the next attempt.
func (e *APIError) needsBackoffFloor() bool {
	return e.Class == ClassRateLimited || e.Class == ClassQuotaExhausted
}

// IsFatal reports whether err carries a fatal classification.
func IsFatal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Fatal()
}

// classifyStatus maps an HTTP failure status onto the error taxonomy.
func classifyStatus(status int, body string) *APIError {
	msg := strings.TrimSpace(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}

	var class ErrorClass
	switch {
	case status == 429:
		class = ClassRateLimited
	case status == 403 || strings.Contains(strings.ToLower(msg), "quota"):
		class = ClassQuotaExhausted
	case status >= 500:
		class = ClassNetwork
	default:
		class = ClassInvalidInput
	}

	return &APIError{Class: class, StatusCode: status, Message: msg}
}

// ErrEmptyTranscript is returned when every segment failed non-fatally and
// no fragment carries recognized text. Callers must not mistake this for a
// legitimately empty recording.
var ErrEmptyTranscript = errors.New("no segment produced any recognized text")
