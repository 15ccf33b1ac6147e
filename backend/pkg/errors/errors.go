package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind categorizes where in the turn pipeline an error originated
type Kind string

const (
	// KindBackendUnavailable covers assistant-backend transport failures
	// (thread create, message append, run submit)
	KindBackendUnavailable Kind = "backend_unavailable"
	// KindNoResponse means a run finished without a retrievable reply
	KindNoResponse Kind = "no_response"
	// KindSynthesisFailed covers speech-synthesis backend failures
	KindSynthesisFailed Kind = "synthesis_failed"
	// KindPlaybackFailed covers voice-transport failures during delivery
	KindPlaybackFailed Kind = "playback_failed"
	// KindUIUpdateFailed covers failed edits/deletes of UI messages.
	// Always non-fatal: callers log and move on.
	KindUIUpdateFailed Kind = "ui_update_failed"
	// KindNotFound covers replay with no prior recording and stale
	// message references
	KindNotFound Kind = "not_found"
	// KindRunTimeout means the client-side deadline on a run elapsed
	KindRunTimeout Kind = "run_timeout"
)

// Error is the common error type for pipeline failures
type Error struct {
	Kind      Kind
	Message   string
	Timestamp time.Time
	Err       error // wrapped cause
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new pipeline error
func New(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// BackendUnavailable wraps an assistant-backend transport failure
func BackendUnavailable(message string, err error) *Error {
	return New(KindBackendUnavailable, message, err)
}

// NoResponse reports a run that produced no usable reply
func NoResponse(message string) *Error {
	return New(KindNoResponse, message, nil)
}

// SynthesisFailed wraps a speech-synthesis failure
func SynthesisFailed(message string, err error) *Error {
	return New(KindSynthesisFailed, message, err)
}

// PlaybackFailed wraps a voice-transport or delivery failure
func PlaybackFailed(message string, err error) *Error {
	return New(KindPlaybackFailed, message, err)
}

// UIUpdateFailed wraps a failed UI message edit or delete
func UIUpdateFailed(message string, err error) *Error {
	return New(KindUIUpdateFailed, message, err)
}

// NotFound reports a missing recording or stale message reference
func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

// RunTimeout reports an elapsed client-side run deadline
func RunTimeout(message string) *Error {
	return New(KindRunTimeout, message, nil)
}

// KindOf extracts the Kind from an error chain; empty when the chain
// contains no *Error
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
