// Package caption implements live captioning: segmentation of an unbounded
// recognizer stream into stable, translation-ready committed segments.
//
// [Segmenter] is the pure state machine — it decides what is stable, detects
// backtracking rewrites, and applies the finalize triggers, but owns no
// timers and performs no I/O. [Store] retains the most recent committed
// segments for display. [Session] drives a Segmenter from a recognizer
// source, owns the silence and restart timers, and dispatches committed
// segments to the translation, sink, and archive collaborators.
package caption

import (
	"strings"
	"time"

	"github.com/MrWong99/scriptpace/internal/textnorm"
)

// Reason records which finalize trigger committed a segment.
type Reason string

const (
	// ReasonFinal: the recognizer reported a final result.
	ReasonFinal Reason = "final"

	// ReasonWordCount: the pending buffer reached the configured target.
	ReasonWordCount Reason = "word-count"

	// ReasonPunctuation: the last buffered token ends in terminal punctuation.
	ReasonPunctuation Reason = "punctuation"

	// ReasonPhrasePause: at least two words buffered and the phrase-pause
	// interval elapsed since the last commit.
	ReasonPhrasePause Reason = "phrase-pause"

	// ReasonHardTimeout: at least one word buffered and the hard-timeout
	// interval elapsed since the last commit.
	ReasonHardTimeout Reason = "hard-timeout"

	// ReasonSilence: the silence timer fired with the transcript unchanged.
	ReasonSilence Reason = "silence"

	// ReasonFlush: an explicit stop force-committed the remaining buffer.
	ReasonFlush Reason = "flush"
)

// Segment is one committed span of recognized text. Immutable once created;
// the translation is tracked separately by [Store] because it arrives
// asynchronously.
type Segment struct {
	// Sequence is assigned at commit time and defines the total order of
	// segments, independent of when downstream async work completes.
	Sequence int

	// SourceText is the committed recognized text.
	SourceText string

	// TranslatedText is filled in by [Store.SetTranslation] once the
	// translation collaborator responds. Empty on a fresh commit.
	TranslatedText string

	// Reason records the finalize trigger.
	Reason Reason

	// CreatedAt is the commit time.
	CreatedAt time.Time
}

// Default segmenter parameters.
const (
	defaultTargetWords = 9
	defaultPhrasePause = 1500 * time.Millisecond
	defaultHardTimeout = 3 * time.Second
)

// terminalPunctuation ends a buffered phrase immediately.
const terminalPunctuation = ".!?;:"

// SegmenterConfig holds the finalize-trigger tuning for a [Segmenter].
// Zero values select the package defaults.
type SegmenterConfig struct {
	// TargetWords commits the buffer once it holds this many words.
	// Default: 9.
	TargetWords int

	// PhrasePause commits a buffer of at least two words once this much
	// time has passed since the last commit. Default: 1.5s.
	PhrasePause time.Duration

	// HardTimeout commits any non-empty buffer once this much time has
	// passed since the last commit. Default: 3s.
	HardTimeout time.Duration
}

func (c SegmenterConfig) withDefaults() SegmenterConfig {
	if c.TargetWords <= 0 {
		c.TargetWords = defaultTargetWords
	}
	if c.PhrasePause <= 0 {
		c.PhrasePause = defaultPhrasePause
	}
	if c.HardTimeout <= 0 {
		c.HardTimeout = defaultHardTimeout
	}
	return c
}

// Segmenter buffers stable words from successive partial results, discards
// the buffer on backtracking rewrites, and decides when to freeze it into a
// committed [Segment].
//
// Segmenter is not safe for concurrent use. It is owned by a single session
// event loop, which serializes recognizer events and timer firings.
type Segmenter struct {
	cfg SegmenterConfig

	// pending is the ordered buffer of stable, not-yet-committed token
	// texts accumulated since the last commit.
	pending []string

	// stable holds the stripped comparison form of every stable-confirmed
	// token of the current utterance, committed or not. It is the prefix
	// that backtracking detection checks new partials against.
	stable []string

	lastTranscript string
	lastCommitted  string
	lastCommitAt   time.Time
	nextSeq        int

	// backtracks counts discarded buffers, exposed for logging.
	backtracks int
}

// NewSegmenter returns a [Segmenter] with zero fields of cfg replaced by the
// package defaults. Sequence numbering starts at 1.
func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	return &Segmenter{
		cfg:     cfg.withDefaults(),
		nextSeq: 1,
	}
}

// unstableTail returns how many trailing tokens of a partial result are too
// likely to be rewritten to commit yet.
func unstableTail(tokenCount int, isFinal bool) int {
	switch {
	case isFinal || tokenCount < 3:
		return 0
	case tokenCount <= 5:
		return 1
	default:
		return 2
	}
}

// Process ingests one transcript event and returns the segment it committed,
// if any. text is the full current transcript of the utterance; isFinal
// marks a recognizer-declared final result; now supplies the event time.
func (s *Segmenter) Process(text string, isFinal bool, now time.Time) *Segment {
	tokens := textnorm.Tokenize(textnorm.CollapseWhitespace(text))
	stableN := len(tokens) - unstableTail(len(tokens), isFinal)

	s.absorb(tokens, stableN, now)
	s.lastTranscript = text

	var seg *Segment
	if reason, ok := s.trigger(isFinal, now); ok {
		seg = s.commit(reason, now)
	}
	if isFinal {
		// Utterance complete: the next partial starts a fresh transcript.
		s.stable = nil
		s.lastTranscript = ""
	}
	return seg
}

// CommitOnSilence handles a silence-timer firing. scheduledText is the
// transcript captured when the timer was armed; if the transcript has
// changed since, the firing is stale and ignored. Otherwise the whole
// transcript — including the previously unstable tail, which silence has
// now vouched for — is committed as one segment.
func (s *Segmenter) CommitOnSilence(scheduledText string, now time.Time) *Segment {
	if s.lastTranscript == "" || s.lastTranscript != scheduledText {
		return nil
	}
	tokens := textnorm.Tokenize(textnorm.CollapseWhitespace(s.lastTranscript))
	s.absorb(tokens, len(tokens), now)
	if len(s.pending) == 0 {
		return nil
	}
	return s.commit(ReasonSilence, now)
}

// Flush force-commits any non-empty buffer. Called on explicit stop before
// session cleanup.
func (s *Segmenter) Flush(now time.Time) *Segment {
	if len(s.pending) == 0 {
		return nil
	}
	return s.commit(ReasonFlush, now)
}

// PendingCount returns the number of buffered, uncommitted words.
func (s *Segmenter) PendingCount() int { return len(s.pending) }

// Backtracks returns how many times a buffer was discarded due to a
// recognizer rewrite.
func (s *Segmenter) Backtracks() int { return s.backtracks }

// absorb reconciles the new tokenization with the confirmed stable prefix
// and pushes newly stable tokens into the pending buffer. A mismatch in the
// already-confirmed prefix means the recognizer rewrote history: the pending
// buffer is discarded and the stable counter reset rather than compounding a
// stale buffer.
func (s *Segmenter) absorb(tokens []textnorm.Token, stableN int, now time.Time) {
	if s.lastCommitAt.IsZero() {
		s.lastCommitAt = now
	}

	if s.diverged(tokens) {
		s.pending = nil
		s.stable = nil
		s.backtracks++
	}

	for i := len(s.stable); i < stableN; i++ {
		s.stable = append(s.stable, textnorm.Strip(tokens[i].Text))
		s.pending = append(s.pending, tokens[i].Text)
	}
}

// diverged reports whether the new tokenization contradicts the confirmed
// stable prefix. A transcript shorter than the confirmed prefix counts as a
// contradiction.
func (s *Segmenter) diverged(tokens []textnorm.Token) bool {
	if len(tokens) < len(s.stable) {
		return len(s.stable) > 0
	}
	for i, w := range s.stable {
		if textnorm.Strip(tokens[i].Text) != w {
			return true
		}
	}
	return false
}

// trigger evaluates the finalize triggers against the current buffer.
func (s *Segmenter) trigger(isFinal bool, now time.Time) (Reason, bool) {
	n := len(s.pending)
	if n == 0 {
		return "", false
	}
	elapsed := now.Sub(s.lastCommitAt)

	switch {
	case isFinal:
		return ReasonFinal, true
	case n >= s.cfg.TargetWords:
		return ReasonWordCount, true
	case endsTerminal(s.pending[n-1]):
		return ReasonPunctuation, true
	case n >= 2 && elapsed >= s.cfg.PhrasePause:
		return ReasonPhrasePause, true
	case elapsed >= s.cfg.HardTimeout:
		return ReasonHardTimeout, true
	}
	return "", false
}

// commit freezes the pending buffer into a Segment, assigning the next
// sequence number. An identical consecutive source text is suppressed: the
// buffer is cleared but no segment is produced.
func (s *Segmenter) commit(reason Reason, now time.Time) *Segment {
	source := strings.Join(s.pending, " ")
	s.pending = nil
	s.lastCommitAt = now

	if source == "" || source == s.lastCommitted {
		return nil
	}
	s.lastCommitted = source

	seg := &Segment{
		Sequence:   s.nextSeq,
		SourceText: source,
		Reason:     reason,
		CreatedAt:  now,
	}
	s.nextSeq++
	return seg
}

// endsTerminal reports whether tok ends in terminal punctuation.
func endsTerminal(tok string) bool {
	if tok == "" {
		return false
	}
	return strings.ContainsRune(terminalPunctuation, rune(tok[len(tok)-1]))
}
