package align

import (
	"testing"

	"github.com/MrWong99/scriptpace/internal/textnorm"
)

func alignWords(t *testing.T, a *WordAligner, ref, spoken string) int {
	t.Helper()
	return a.Align(textnorm.Tokenize(ref), textnorm.Words(spoken))
}

func TestWordAligner_ExactMatch(t *testing.T) {
	t.Parallel()

	a := NewWordAligner()
	got := alignWords(t, a, "Hello, world", "hello world")
	// "Hello," (6 runes) + space + "world" (5 runes) + space.
	if got != 13 {
		t.Errorf("Align = %d, want 13", got)
	}
}

func TestWordAligner_FuzzyTokens(t *testing.T) {
	t.Parallel()

	a := NewWordAligner()
	got := alignWords(t, a, "the notification arrived", "the notifocation arrived")
	if got != 25 {
		t.Errorf("Align = %d, want 25", got)
	}
}

func TestWordAligner_AnnotationsConsumedFree(t *testing.T) {
	t.Parallel()

	a := NewWordAligner()
	got := alignWords(t, a, "hello [pause] world", "hello world")
	// "hello"+1 + "[pause]"+1 + "world"+1.
	if got != 20 {
		t.Errorf("Align = %d, want 20", got)
	}
}

func TestWordAligner_TrailingAnnotationConsumed(t *testing.T) {
	t.Parallel()

	a := NewWordAligner()
	got := alignWords(t, a, "hello world [applause]", "hello world")
	// The trailing cue is consumed even though no spoken words remain.
	if got != 23 {
		t.Errorf("Align = %d, want 23", got)
	}
}

func TestWordAligner_HallucinatedWordsSkipped(t *testing.T) {
	t.Parallel()

	a := NewWordAligner()
	got := alignWords(t, a, "hello world", "hello um uh world")
	if got != 12 {
		t.Errorf("Align = %d, want 12", got)
	}
}

func TestWordAligner_SkippedReferenceCounts(t *testing.T) {
	t.Parallel()

	a := NewWordAligner()
	// The reader jumped over "big"; the skipped token still counts as
	// progress once the aligner re-locks on "world".
	got := alignWords(t, a, "hello big world", "hello world")
	if got != 16 {
		t.Errorf("Align = %d, want 16", got)
	}
}

func TestWordAligner_UnmatchedSpokenDropped(t *testing.T) {
	t.Parallel()

	a := NewWordAligner()
	got := alignWords(t, a, "completely different script", "zebra quantum")
	if got != 0 {
		t.Errorf("Align = %d, want 0", got)
	}
}

func TestWordAligner_EmptySpoken(t *testing.T) {
	t.Parallel()

	a := NewWordAligner()
	if got := alignWords(t, a, "hello world", ""); got != 0 {
		t.Errorf("Align = %d, want 0", got)
	}
}

func TestWordAligner_LookaheadBound(t *testing.T) {
	t.Parallel()

	// Four hallucinated words exceed the default lookahead of three, so the
	// aligner drops them one at a time and still re-locks.
	a := NewWordAligner()
	got := alignWords(t, a, "alpha omega", "alpha red green blue yellow omega")
	if got != 12 {
		t.Errorf("Align = %d, want 12", got)
	}
}

func TestWordAligner_CustomMatcher(t *testing.T) {
	t.Parallel()

	a := NewWordAligner(WithMatcher(NewMatcher(WithPhoneticFallback())))
	got := alignWords(t, a, "turn right here", "turn write here")
	if got != 16 {
		t.Errorf("Align = %d, want 16", got)
	}
}
