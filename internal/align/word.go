package align

import "github.com/MrWong99/scriptpace/internal/textnorm"

// WordAligner is a token-level resynchronizing aligner. It walks reference
// tokens against recognized words, using fuzzy equality per token, skipping
// annotation tokens automatically and scanning a few tokens ahead in either
// stream to recover from hallucinated or dropped words.
//
// Its result is a character count over the reference window (each consumed
// reference token contributes its rune length plus one for the following
// space), directly comparable to [CharAligner.Align].
//
// WordAligner is read-only after construction and safe for concurrent use.
type WordAligner struct {
	lookahead int
	matcher   *Matcher
}

// WordAlignerOption is a functional option for configuring a [WordAligner].
type WordAlignerOption func(*WordAligner)

// WithWordLookahead sets how many tokens ahead the aligner scans when
// resynchronizing after a mismatch. Default: 3.
func WithWordLookahead(n int) WordAlignerOption {
	return func(a *WordAligner) {
		if n > 0 {
			a.lookahead = n
		}
	}
}

// WithMatcher sets the fuzzy word matcher used for token equality.
// Default: NewMatcher() with no options.
func WithMatcher(m *Matcher) WordAlignerOption {
	return func(a *WordAligner) {
		if m != nil {
			a.matcher = m
		}
	}
}

// NewWordAligner returns a new [WordAligner] with the supplied options.
func NewWordAligner(opts ...WordAlignerOption) *WordAligner {
	a := &WordAligner{
		lookahead: defaultLookahead,
		matcher:   NewMatcher(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Align returns the accumulated character count of reference tokens reached
// by matching spoken words against ref. ref is the tokenization of the
// reference window in display form; spoken is the list of recognized words
// already stripped for comparison (see textnorm.Words).
//
// Annotation tokens and tokens that strip to empty are consumed without
// requiring a spoken match, including any trailing run after the spoken
// words are exhausted. On a mismatch the aligner tries, in order: skipping
// up to lookahead spoken words (recognizer hallucinated extras), skipping up
// to lookahead reference tokens (reader skipped ahead or recognizer dropped
// words — the skipped reference tokens still count), and finally dropping
// the unmatched spoken word.
func (a *WordAligner) Align(ref []textnorm.Token, spoken []string) int {
	count := 0
	si, ri := 0, 0 // si indexes ref, ri indexes spoken

	for si < len(ref) {
		rt := ref[si]
		rw := textnorm.Strip(rt.Text)
		if rt.Annotation || rw == "" {
			count += rt.Len() + 1
			si++
			continue
		}
		if ri >= len(spoken) {
			break
		}

		sw := spoken[ri]
		if sw == "" {
			ri++
			continue
		}

		if a.matcher.IsFuzzyMatch(rw, sw) {
			count += rt.Len() + 1
			si++
			ri++
			continue
		}

		// Hallucinated extra words: re-lock the spoken index on a word that
		// fuzzy-matches the current reference token. The match itself is
		// consumed on the next loop iteration.
		if j := a.scanSpoken(rw, spoken, ri+1); j >= 0 {
			ri = j
			continue
		}

		// Dropped or skipped-over reference tokens: scan ahead in the
		// reference for the current spoken word, counting everything
		// passed over as progress.
		if j := a.scanRef(sw, ref, si+1); j >= 0 {
			for k := si; k < j; k++ {
				count += ref[k].Len() + 1
			}
			si = j
			continue
		}

		// No alignment for this spoken word; drop it and keep going.
		ri++
	}
	return count
}

// scanSpoken returns the index of the first spoken word in
// spoken[from:from+lookahead] that fuzzy-matches refWord, or -1.
func (a *WordAligner) scanSpoken(refWord string, spoken []string, from int) int {
	end := from + a.lookahead
	if end > len(spoken) {
		end = len(spoken)
	}
	for i := from; i < end; i++ {
		if a.matcher.IsFuzzyMatch(refWord, spoken[i]) {
			return i
		}
	}
	return -1
}

// scanRef returns the index of the first reference token in
// ref[from:from+lookahead] that fuzzy-matches spokenWord, or -1. Annotation
// tokens within the scan window are stepped over without consuming
// lookahead budget.
func (a *WordAligner) scanRef(spokenWord string, ref []textnorm.Token, from int) int {
	budget := a.lookahead
	for i := from; i < len(ref) && budget > 0; i++ {
		rw := textnorm.Strip(ref[i].Text)
		if ref[i].Annotation || rw == "" {
			continue
		}
		if a.matcher.IsFuzzyMatch(rw, spokenWord) {
			return i
		}
		budget--
	}
	return -1
}
