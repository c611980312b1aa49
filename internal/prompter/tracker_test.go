package prompter

import (
	"testing"

	"github.com/MrWong99/scriptpace/internal/align"
)

func TestScript_DisplayForm(t *testing.T) {
	t.Parallel()

	s := NewScript("  the   quick\n\nbrown\tfox  ")
	if got := s.Display(); got != "the quick brown fox" {
		t.Errorf("Display = %q", got)
	}
	if got := s.Original(); got != "  the   quick\n\nbrown\tfox  " {
		t.Errorf("Original = %q", got)
	}
	if got := s.Len(); got != 19 {
		t.Errorf("Len = %d, want 19", got)
	}
}

func TestScript_Window(t *testing.T) {
	t.Parallel()

	s := NewScript("the quick brown fox")
	if got := s.Window(4); got != "quick brown fox" {
		t.Errorf("Window(4) = %q", got)
	}
	if got := s.Window(-3); got != "the quick brown fox" {
		t.Errorf("Window(-3) = %q", got)
	}
	if got := s.Window(100); got != "" {
		t.Errorf("Window(100) = %q", got)
	}
}

func TestTracker_ExactReadingReachesEnd(t *testing.T) {
	t.Parallel()

	s := NewScript("the quick brown fox")
	tr := NewTracker(s)

	got := tr.OnRecognized("the quick brown fox", true)
	if got != s.Len() {
		t.Errorf("confirmed = %d, want %d", got, s.Len())
	}
}

func TestTracker_CumulativePartials(t *testing.T) {
	t.Parallel()

	s := NewScript("the quick brown fox jumps")
	tr := NewTracker(s)

	first := tr.OnRecognized("the quick", false)
	if first == 0 {
		t.Fatal("expected progress from first partial")
	}
	second := tr.OnRecognized("the quick brown", false)
	if second <= first {
		t.Errorf("expected growing partial to advance: %d then %d", first, second)
	}
	if tr.MatchStart() != 0 {
		t.Errorf("match start moved on a partial: %d", tr.MatchStart())
	}
}

func TestTracker_ConfirmedNeverRegresses(t *testing.T) {
	t.Parallel()

	s := NewScript("the quick brown fox jumps over the lazy dog")
	tr := NewTracker(s)

	high := tr.OnRecognized("the quick brown fox", false)
	low := tr.OnRecognized("the", false)
	if low < high {
		t.Errorf("confirmed regressed from %d to %d on a shorter partial", high, low)
	}
	if got := tr.ConfirmedOffset(); got != high {
		t.Errorf("ConfirmedOffset = %d, want %d", got, high)
	}
}

func TestTracker_MatchStartAdvancesOnFinalOnly(t *testing.T) {
	t.Parallel()

	s := NewScript("the quick brown fox jumps over the lazy dog")
	tr := NewTracker(s)

	tr.OnRecognized("the quick", false)
	if tr.MatchStart() != 0 {
		t.Fatalf("match start moved on partial: %d", tr.MatchStart())
	}
	confirmed := tr.OnRecognized("the quick brown", true)
	if tr.MatchStart() != confirmed {
		t.Errorf("match start = %d after final, want %d", tr.MatchStart(), confirmed)
	}

	// The next utterance aligns from the committed window.
	next := tr.OnRecognized("fox jumps", false)
	if next <= confirmed {
		t.Errorf("expected next utterance to advance past %d, got %d", confirmed, next)
	}
}

func TestTracker_AnnotationsSkipped(t *testing.T) {
	t.Parallel()

	s := NewScript("hello [dramatic pause] world")
	tr := NewTracker(s)

	got := tr.OnRecognized("hello world", true)
	if got != s.Len() {
		t.Errorf("confirmed = %d, want %d", got, s.Len())
	}
}

func TestTracker_UnrelatedSpeechBoundedAdvance(t *testing.T) {
	t.Parallel()

	// Substitutions record progress, so unrelated speech can creep forward,
	// but never further than its own character count.
	s := NewScript("the quick brown fox")
	tr := NewTracker(s)

	got := tr.OnRecognized("xyz", false)
	if got > 3 {
		t.Errorf("confirmed = %d after a 3-rune unrelated utterance", got)
	}
}

func TestTracker_JumpTo(t *testing.T) {
	t.Parallel()

	s := NewScript("the quick brown fox jumps")
	tr := NewTracker(s)

	tr.OnRecognized("the quick brown fox jumps", true)
	tr.JumpTo(4)
	if tr.ConfirmedOffset() != 4 {
		t.Errorf("ConfirmedOffset after jump = %d, want 4", tr.ConfirmedOffset())
	}
	if tr.MatchStart() != 4 {
		t.Errorf("MatchStart after jump = %d, want 4", tr.MatchStart())
	}

	tr.JumpTo(-10)
	if tr.ConfirmedOffset() != 0 {
		t.Errorf("negative jump not clamped: %d", tr.ConfirmedOffset())
	}
	tr.JumpTo(1000)
	if tr.ConfirmedOffset() != s.Len() {
		t.Errorf("oversized jump not clamped: %d", tr.ConfirmedOffset())
	}
}

func TestTracker_ResumeAfterJumpBack(t *testing.T) {
	t.Parallel()

	s := NewScript("the quick brown fox jumps over the lazy dog")
	tr := NewTracker(s)

	tr.OnRecognized("the quick brown fox", true)
	tr.JumpTo(0)

	got := tr.OnRecognized("the quick", false)
	if got == 0 {
		t.Error("expected re-reading from the top to advance again")
	}
	if got > 10 {
		t.Errorf("confirmed = %d, expected progress only over the re-read words", got)
	}
}

func TestTracker_CustomAligners(t *testing.T) {
	t.Parallel()

	s := NewScript("turn right here")
	tr := NewTracker(s,
		WithCharAligner(align.NewCharAligner(align.WithCharLookahead(5))),
		WithWordAligner(align.NewWordAligner(
			align.WithMatcher(align.NewMatcher(align.WithPhoneticFallback())),
		)),
	)

	got := tr.OnRecognized("turn write here", true)
	if got != s.Len() {
		t.Errorf("confirmed = %d, want %d", got, s.Len())
	}
}
