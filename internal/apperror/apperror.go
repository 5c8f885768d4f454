// Package apperror defines the closed set of failure kinds surfaced by the
// transcription and summary engine.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can choose between retrying,
// reporting unusable input, or reporting an unusable backend result.
type Kind int

const (
	// KindUnknown is the fallback for errors that carry no classification.
	KindUnknown Kind = iota
	// KindBackendUnavailable covers transport failures talking to a backend.
	KindBackendUnavailable
	// KindMalformedResponse covers backend payloads with missing or mistyped fields.
	KindMalformedResponse
	// KindInvalidInput covers caller input rejected before any backend call.
	KindInvalidInput
	// KindAlignmentUnresolved marks a quote that could not be grounded.
	// It is a per-quote signal and is never returned from a public operation.
	KindAlignmentUnresolved
)

// String returns the stable name of the kind
func (k Kind) String() string {
	switch k {
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindMalformedResponse:
		return "malformed_response"
	case KindInvalidInput:
		return "invalid_input"
	case KindAlignmentUnresolved:
		return "alignment_unresolved"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op names the operation that failed and
// Backend the external collaborator involved, if any.
type Error struct {
	Kind    Kind
	Op      string
	Backend string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Backend != "" {
		msg += " (" + e.Backend + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, apperror.ErrInvalidInput) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Backend == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrBackendUnavailable  = &Error{Kind: KindBackendUnavailable}
	ErrMalformedResponse   = &Error{Kind: KindMalformedResponse}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrAlignmentUnresolved = &Error{Kind: KindAlignmentUnresolved}
)

// BackendUnavailable wraps err as a transport-level backend failure
func BackendUnavailable(op, backend string, err error) *Error {
	return &Error{Kind: KindBackendUnavailable, Op: op, Backend: backend, Err: err}
}

// MalformedResponse wraps err as an unusable backend payload
func MalformedResponse(op, backend string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, Op: op, Backend: backend, Err: err}
}

// InvalidInput reports caller input that cannot be processed
func InvalidInput(op string, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether a later retry of the same call may succeed.
func Retryable(err error) bool {
	return KindOf(err) == KindBackendUnavailable
}

// KindForStatus maps a non-2xx HTTP status from a backend to a kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest,
		http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType,
		http.StatusUnprocessableEntity:
		return KindInvalidInput
	default:
		return KindBackendUnavailable
	}
}

// ShouldRetryStatus reports whether a status is worth another attempt.
func ShouldRetryStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// UserMessage renders err for an end user, distinguishing retry-later from
// unusable input from unusable backend output.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindBackendUnavailable:
		return "the service is temporarily unavailable, please retry later"
	case KindInvalidInput:
		return "the input cannot be used: " + causeOf(err)
	case KindMalformedResponse:
		return "the backend returned an unusable result"
	case KindAlignmentUnresolved:
		return "the quote could not be located in the transcript"
	default:
		return "unexpected error: " + err.Error()
	}
}

func causeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
