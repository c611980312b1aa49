package caption

import (
	"testing"
	"time"
)

var segBase = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

func TestSegmenter_FinalCommitsEverything(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	seg := s.Process("he went home", true, segBase)
	if seg == nil {
		t.Fatal("expected a committed segment")
	}
	if seg.SourceText != "he went home" {
		t.Errorf("SourceText = %q", seg.SourceText)
	}
	if seg.Reason != ReasonFinal {
		t.Errorf("Reason = %q, want %q", seg.Reason, ReasonFinal)
	}
	if seg.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", seg.Sequence)
	}
}

func TestSegmenter_UnstableTailHeldBack(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	// Six tokens on a partial: the last two are unstable, so only four are
	// buffered and no trigger fires yet.
	if seg := s.Process("one two three four five six", false, segBase); seg != nil {
		t.Fatalf("unexpected commit: %+v", seg)
	}
	if got := s.PendingCount(); got != 4 {
		t.Errorf("PendingCount = %d, want 4", got)
	}
}

func TestSegmenter_ShortPartialFullyUnbuffered(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	// Fewer than three tokens: nothing is held back.
	s.Process("he went", false, segBase)
	if got := s.PendingCount(); got != 2 {
		t.Errorf("PendingCount = %d, want 2", got)
	}
}

func TestSegmenter_BacktrackDiscardsBuffer(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	s.Process("he went to the", false, segBase)
	if s.PendingCount() == 0 {
		t.Fatal("expected buffered words before the rewrite")
	}

	// The recognizer rewrites the utterance: the confirmed prefix no longer
	// holds, so the stale buffer is discarded and rebuilt from the new text.
	s.Process("he went home", false, segBase.Add(200*time.Millisecond))
	if got := s.Backtracks(); got != 1 {
		t.Errorf("Backtracks = %d, want 1", got)
	}

	seg := s.Process("he went home", true, segBase.Add(400*time.Millisecond))
	if seg == nil {
		t.Fatal("expected the final to commit")
	}
	if seg.SourceText != "he went home" {
		t.Errorf("SourceText = %q, want the rewritten text only", seg.SourceText)
	}
}

func TestSegmenter_GrowingPartialIsNotBacktracking(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	s.Process("he went", false, segBase)
	s.Process("he went to the store", false, segBase.Add(200*time.Millisecond))
	if got := s.Backtracks(); got != 0 {
		t.Errorf("Backtracks = %d, want 0", got)
	}
}

func TestSegmenter_WordCountTrigger(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{TargetWords: 4})

	// Seven tokens, two unstable: five stable words reach the target of 4.
	seg := s.Process("one two three four five six seven", false, segBase)
	if seg == nil {
		t.Fatal("expected word-count commit")
	}
	if seg.Reason != ReasonWordCount {
		t.Errorf("Reason = %q, want %q", seg.Reason, ReasonWordCount)
	}
	if seg.SourceText != "one two three four five" {
		t.Errorf("SourceText = %q", seg.SourceText)
	}
}

func TestSegmenter_PunctuationTrigger(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	// Six tokens, two unstable: the stable buffer ends on the punctuated
	// token and commits immediately.
	seg := s.Process("one two three four. five six", false, segBase)
	if seg == nil {
		t.Fatal("expected punctuation commit")
	}
	if seg.Reason != ReasonPunctuation {
		t.Errorf("Reason = %q, want %q", seg.Reason, ReasonPunctuation)
	}
	if seg.SourceText != "one two three four." {
		t.Errorf("SourceText = %q", seg.SourceText)
	}
}

func TestSegmenter_PhrasePauseTrigger(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	s.Process("hello there", false, segBase)
	seg := s.Process("hello there", false, segBase.Add(1600*time.Millisecond))
	if seg == nil {
		t.Fatal("expected phrase-pause commit")
	}
	if seg.Reason != ReasonPhrasePause {
		t.Errorf("Reason = %q, want %q", seg.Reason, ReasonPhrasePause)
	}
}

func TestSegmenter_HardTimeoutTrigger(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	s.Process("hello", false, segBase)
	// One word is below the phrase-pause minimum of two, so only the hard
	// timeout can fire.
	if seg := s.Process("hello", false, segBase.Add(2*time.Second)); seg != nil {
		t.Fatalf("unexpected commit before hard timeout: %+v", seg)
	}
	seg := s.Process("hello", false, segBase.Add(3100*time.Millisecond))
	if seg == nil {
		t.Fatal("expected hard-timeout commit")
	}
	if seg.Reason != ReasonHardTimeout {
		t.Errorf("Reason = %q, want %q", seg.Reason, ReasonHardTimeout)
	}
}

func TestSegmenter_SilenceCommitsUnstableTail(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	text := "one two three four five six"
	s.Process(text, false, segBase)

	// Silence vouches for the tail: the whole transcript commits, not just
	// the stable prefix.
	seg := s.CommitOnSilence(text, segBase.Add(1100*time.Millisecond))
	if seg == nil {
		t.Fatal("expected silence commit")
	}
	if seg.Reason != ReasonSilence {
		t.Errorf("Reason = %q, want %q", seg.Reason, ReasonSilence)
	}
	if seg.SourceText != text {
		t.Errorf("SourceText = %q, want %q", seg.SourceText, text)
	}
}

func TestSegmenter_StaleSilenceIgnored(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	s.Process("one two three four", false, segBase)
	s.Process("one two three four five", false, segBase.Add(300*time.Millisecond))

	// The timer was armed on the older transcript; it must not fire.
	if seg := s.CommitOnSilence("one two three four", segBase.Add(1400*time.Millisecond)); seg != nil {
		t.Fatalf("stale silence firing committed: %+v", seg)
	}
}

func TestSegmenter_SilenceThenFinalNotDuplicated(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	text := "he went home"
	s.Process(text, false, segBase)
	if seg := s.CommitOnSilence(text, segBase.Add(1100*time.Millisecond)); seg == nil {
		t.Fatal("expected silence commit")
	}

	// The recognizer then declares the same utterance final. The identical
	// consecutive source text is suppressed.
	if seg := s.Process(text, true, segBase.Add(1200*time.Millisecond)); seg != nil {
		t.Fatalf("duplicate final committed: %+v", seg)
	}
}

func TestSegmenter_FlushCommitsRemainder(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	s.Process("wrapping up", false, segBase)
	seg := s.Flush(segBase.Add(100 * time.Millisecond))
	if seg == nil {
		t.Fatal("expected flush commit")
	}
	if seg.Reason != ReasonFlush {
		t.Errorf("Reason = %q, want %q", seg.Reason, ReasonFlush)
	}
	if s.Flush(segBase.Add(200*time.Millisecond)) != nil {
		t.Error("second flush with an empty buffer must return nil")
	}
}

func TestSegmenter_SequencesAreMonotonic(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	first := s.Process("first utterance here", true, segBase)
	second := s.Process("second utterance here", true, segBase.Add(time.Second))
	if first == nil || second == nil {
		t.Fatal("expected both finals to commit")
	}
	if second.Sequence != first.Sequence+1 {
		t.Errorf("sequences = %d, %d", first.Sequence, second.Sequence)
	}
}

func TestSegmenter_EmptyTranscriptNoCommit(t *testing.T) {
	t.Parallel()

	s := NewSegmenter(SegmenterConfig{})

	if seg := s.Process("", true, segBase); seg != nil {
		t.Fatalf("empty final committed: %+v", seg)
	}
	if seg := s.CommitOnSilence("", segBase); seg != nil {
		t.Fatalf("empty silence committed: %+v", seg)
	}
}
