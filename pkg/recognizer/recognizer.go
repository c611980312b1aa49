// Package recognizer defines the transcript-source abstraction consumed by
// the alignment and captioning sessions.
//
// A Source wraps a real-time speech recognizer (a streaming ASR service, a
// local engine, or a test double) and exposes it as a single ordered stream
// of events: revisable partial transcripts, authoritative final transcripts,
// and classified failures. Sessions consume exactly one Source and process
// its events one at a time, in arrival order — the Source is the only
// producer of transcript state.
//
// Audio amplitude is a separate, higher-frequency stream. Sources that have
// access to the raw audio emit one RMS scalar per audio buffer on the Levels
// channel; this stream has no ordering relationship with transcript events
// and is consumed only for speech-presence detection.
package recognizer

import "context"

// EventKind discriminates the variants of an [Event].
type EventKind int

const (
	// KindPartial is an in-progress, revisable transcription hypothesis.
	// Later partials may rewrite any part of the text.
	KindPartial EventKind = iota

	// KindFinal is a recognizer-declared stable transcription for an
	// utterance. It is never revised afterwards.
	KindFinal

	// KindFailure reports a recognizer availability or stream error. The
	// Class field describes the failure; Text is empty.
	KindFailure
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case KindPartial:
		return "partial"
	case KindFinal:
		return "final"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Event is a single item in a Source's ordered transcript stream.
type Event struct {
	// Kind selects the variant.
	Kind EventKind

	// Text is the transcript text for partial and final events.
	Text string

	// Class describes the failure for KindFailure events.
	Class FailureClass

	// Err carries the underlying error for KindFailure events, if any.
	Err error
}

// FailureClass classifies recognizer failures so that sessions can decide
// whether and how to recover. The taxonomy distinguishes fatal conditions
// (surfaced to the caller, never retried) from transient ones (handled by
// the recovery scheduler, invisible to the caller unless retries are
// exhausted).
type FailureClass int

const (
	// FailureUnknown is a failure the source could not classify. Treated as
	// recoverable.
	FailureUnknown FailureClass = iota

	// FailurePermissionDenied means recognizer or microphone access was
	// refused. Fatal for the session; no retry.
	FailurePermissionDenied

	// FailureUnavailable means the chosen language or locale is not
	// supported by the recognizer. Fatal; no retry.
	FailureUnavailable

	// FailureAudioFormat means the audio format became invalid mid-session
	// (zero sample rate or channel count during a device transition).
	// Recoverable after a fixed short delay.
	FailureAudioFormat

	// FailureDeviceChange means the audio device configuration changed and
	// the recognition session must be rebuilt. Recoverable after a fixed
	// longer delay.
	FailureDeviceChange

	// FailureStream means the recognizer's task reported an error during
	// active listening. Recoverable with growing backoff.
	FailureStream
)

// String returns the human-readable name of the failure class.
func (c FailureClass) String() string {
	switch c {
	case FailurePermissionDenied:
		return "permission-denied"
	case FailureUnavailable:
		return "unavailable"
	case FailureAudioFormat:
		return "audio-format"
	case FailureDeviceChange:
		return "device-change"
	case FailureStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Recoverable reports whether failures of this class may be retried via the
// recovery scheduler. Permission and availability failures are terminal.
func (c FailureClass) Recoverable() bool {
	switch c {
	case FailurePermissionDenied, FailureUnavailable:
		return false
	}
	return true
}

// Source is the abstraction over any transcript producer. It is an interface
// so that test code can feed scripted event sequences without a live
// recognizer connection.
//
// Callers must call Close when the source is no longer needed. After Close
// the Events and Levels channels are closed. Calling Close more than once is
// safe and returns nil.
type Source interface {
	// Events returns the ordered stream of transcript events. The channel
	// is closed when the source ends.
	Events() <-chan Event

	// Levels returns the audio amplitude stream: one RMS scalar per audio
	// buffer. Sources without audio access return a nil channel, which
	// consumers must tolerate.
	Levels() <-chan float64

	// Close terminates the source and releases its resources.
	Close() error
}

// SourceFactory opens a fresh recognition session. Sessions call it once at
// start and again whenever the recovery policy schedules a restart, so it
// must be safe to call repeatedly.
type SourceFactory func(ctx context.Context) (Source, error)

