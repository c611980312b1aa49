package align

import "unicode"

// defaultLookahead is how far either aligner scans ahead when trying to
// resynchronize after a mismatch.
const defaultLookahead = 3

// CharAligner is a two-pointer resynchronizing character-level aligner. It
// walks a reference window and a normalized spoken string in lockstep,
// skipping non-alphanumeric characters, and on mismatch scans a few
// characters ahead in either stream to re-lock. It trades precision for
// robustness against recognizer noise and never backtracks below its own
// best-seen index within one call.
//
// CharAligner is read-only after construction and safe for concurrent use.
type CharAligner struct {
	lookahead int
}

// CharAlignerOption is a functional option for configuring a [CharAligner].
type CharAlignerOption func(*CharAligner)

// WithCharLookahead sets how many characters ahead the aligner scans when
// resynchronizing after a mismatch. Default: 3.
func WithCharLookahead(n int) CharAlignerOption {
	return func(a *CharAligner) {
		if n > 0 {
			a.lookahead = n
		}
	}
}

// NewCharAligner returns a new [CharAligner] with the supplied options.
func NewCharAligner(opts ...CharAlignerOption) *CharAligner {
	a := &CharAligner{lookahead: defaultLookahead}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Align returns the furthest rune count into ref reached with a contiguous,
// resynchronized character match against spoken. ref is the reference window
// in display form (punctuation intact); spoken should be in normalized form.
//
// Mismatch handling, in order:
//
//  1. Scan ahead in spoken for the current reference character — the
//     recognizer inserted extra characters. Only the spoken pointer moves,
//     and nothing is counted as matched.
//  2. Scan ahead in ref for the current spoken character — the recognizer
//     dropped characters. Only the reference pointer moves.
//  3. Neither: treat as a one-for-one substitution, advance both pointers
//     and record progress.
func (a *CharAligner) Align(ref, spoken string) int {
	rr := []rune(ref)
	sr := []rune(spoken)

	si, ri, last := 0, 0, 0
	for si < len(rr) && ri < len(sr) {
		// Pass over punctuation and whitespace in either stream without
		// consuming the other pointer.
		if !isAlnum(rr[si]) {
			si++
			continue
		}
		if !isAlnum(sr[ri]) {
			ri++
			continue
		}

		if foldEqual(rr[si], sr[ri]) {
			si++
			ri++
			last = si
			continue
		}

		// Recognizer inserted characters: re-lock the spoken pointer.
		if j := scanFor(sr, ri+1, a.lookahead, rr[si]); j >= 0 {
			ri = j
			continue
		}

		// Recognizer dropped characters: re-lock the reference pointer.
		if j := scanFor(rr, si+1, a.lookahead, sr[ri]); j >= 0 {
			si = j
			continue
		}

		// One-for-one substitution.
		si++
		ri++
		last = si
	}
	return last
}

// scanFor returns the index of the first rune in rs[from:from+lookahead]
// equal (case-folded) to want, or -1.
func scanFor(rs []rune, from, lookahead int, want rune) int {
	end := from + lookahead
	if end > len(rs) {
		end = len(rs)
	}
	for i := from; i < end; i++ {
		if foldEqual(rs[i], want) {
			return i
		}
	}
	return -1
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// foldEqual compares two runes case-insensitively. The reference window is
// in display form and keeps its original case.
func foldEqual(a, b rune) bool {
	return unicode.ToLower(a) == unicode.ToLower(b)
}
