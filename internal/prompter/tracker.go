// Package prompter implements teleprompter tracking: fuzzy alignment of a
// live recognizer stream against a fixed reference script, merged into one
// monotonically advancing progress cursor.
//
// [Script] holds the immutable reference for one reading session. [Tracker]
// owns the alignment state and merges the character-level and word-level
// aligners by taking the better of the two. [Session] drives a Tracker from
// a recognizer source with restart/backoff recovery.
package prompter

import (
	"github.com/MrWong99/scriptpace/internal/align"
	"github.com/MrWong99/scriptpace/internal/textnorm"
)

// Script is the immutable reference text for one reading session. Offsets
// everywhere in this package are rune offsets into the display form
// (whitespace-collapsed original); they are stable for the lifetime of the
// session and a new session replaces the Script wholesale.
type Script struct {
	original string
	display  string
	runes    []rune
}

// NewScript builds a [Script] from raw reference text, applying the
// whitespace-collapse normalization once.
func NewScript(text string) *Script {
	display := textnorm.CollapseWhitespace(text)
	return &Script{
		original: text,
		display:  display,
		runes:    []rune(display),
	}
}

// Original returns the reference text as supplied by the caller.
func (s *Script) Original() string { return s.original }

// Display returns the whitespace-collapsed reference text that all offsets
// refer to.
func (s *Script) Display() string { return s.display }

// Len returns the display-form length in runes, the upper bound for any
// progress offset.
func (s *Script) Len() int { return len(s.runes) }

// Window returns the display text from offset onward. Out-of-range offsets
// are clamped.
func (s *Script) Window(offset int) string {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.runes) {
		offset = len(s.runes)
	}
	return string(s.runes[offset:])
}

// Tracker merges the two aligners' outputs into one monotonic progress
// cursor and owns the jump/reset semantics.
//
// The confirmed offset never decreases within a session except through an
// explicit [Tracker.JumpTo]. The match-start offset, from which both
// aligners read their reference window, advances to the confirmed offset on
// final results only: partials are cumulative rewrites of the current
// utterance and must keep realigning from the same window start.
//
// Tracker is not safe for concurrent use. It is owned by a single session
// event loop; [Session] provides the synchronized view.
type Tracker struct {
	chars *align.CharAligner
	words *align.WordAligner

	script     *Script
	matchStart int
	confirmed  int
}

// TrackerOption is a functional option for configuring a [Tracker].
type TrackerOption func(*Tracker)

// WithCharAligner replaces the default character-level aligner.
func WithCharAligner(a *align.CharAligner) TrackerOption {
	return func(t *Tracker) {
		if a != nil {
			t.chars = a
		}
	}
}

// WithWordAligner replaces the default word-level aligner.
func WithWordAligner(a *align.WordAligner) TrackerOption {
	return func(t *Tracker) {
		if a != nil {
			t.words = a
		}
	}
}

// NewTracker returns a [Tracker] for script with all progress at zero.
func NewTracker(script *Script, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		chars:  align.NewCharAligner(),
		words:  align.NewWordAligner(),
		script: script,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Script returns the reference script this tracker aligns against.
func (t *Tracker) Script() *Script { return t.script }

// ConfirmedOffset returns the highest offset reached so far.
func (t *Tracker) ConfirmedOffset() int { return t.confirmed }

// MatchStart returns the offset from which matching currently begins.
func (t *Tracker) MatchStart() int { return t.matchStart }

// OnRecognized aligns spoken against the reference window starting at the
// match-start offset, running both aligners independently and taking the
// better result. The confirmed offset only ever moves forward, clamped to
// the script length. When isFinal is true the match-start offset advances
// to the confirmed offset, committing the utterance window.
//
// Returns the updated confirmed offset.
func (t *Tracker) OnRecognized(spoken string, isFinal bool) int {
	window := t.script.Window(t.matchStart)

	charCount := t.chars.Align(window, textnorm.Normalize(spoken))
	wordCount := t.words.Align(textnorm.Tokenize(window), textnorm.Words(spoken))

	best := charCount
	if wordCount > best {
		best = wordCount
	}

	offset := t.matchStart + best
	if offset > t.script.Len() {
		offset = t.script.Len()
	}
	if offset > t.confirmed {
		t.confirmed = offset
	}
	if isFinal {
		t.matchStart = t.confirmed
	}
	return t.confirmed
}

// JumpTo moves both the match-start and confirmed offsets to offset,
// clamped to the script bounds. This is the only sanctioned regression
// path; it represents an explicit user action.
func (t *Tracker) JumpTo(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset > t.script.Len() {
		offset = t.script.Len()
	}
	t.matchStart = offset
	t.confirmed = offset
}
