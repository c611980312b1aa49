// Package align implements the fuzzy matching core that turns noisy
// recognizer output into reference-script progress: a tolerant word equality
// test, a resynchronizing character-level aligner, and a resynchronizing
// token-level aligner. The two aligners produce directly comparable
// character counts; the progress tracker takes the better of the two.
package align

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Distance returns the Levenshtein edit distance between a and b with unit
// cost per insertion, deletion and substitution. Symmetric in its arguments.
func Distance(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// Matcher decides whether two tokens count as the same spoken word. Inputs
// must already be stripped to lowercase letters and digits (see
// textnorm.Strip). The zero value is not usable; construct with [NewMatcher].
//
// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phonetic bool
}

// MatcherOption is a functional option for configuring a [Matcher].
type MatcherOption func(*Matcher)

// WithPhoneticFallback enables an additional acceptance rule: two tokens
// match when they share a Double Metaphone code. This catches homophone
// substitutions ("knight" vs "night") that survive every distance check,
// at the cost of accepting more false positives. Disabled by default.
func WithPhoneticFallback() MatcherOption {
	return func(m *Matcher) {
		m.phonetic = true
	}
}

// NewMatcher returns a new [Matcher] configured with the supplied options.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{}
	for _, o := range opts {
		o(m)
	}
	return m
}

// IsFuzzyMatch reports whether a and b count as the same word. The rules are
// tried in order; any match wins:
//
//  1. Exact equality.
//  2. One is a prefix of the other (phonetic truncation, "not" vs "notch").
//  3. One contains the other as a substring.
//  4. The shared leading-character run is at least max(2, 60% of the shorter
//     token's length), when the shorter token has at least 2 runes.
//  5. Edit distance within a tolerance scaled by token length: ≤1 when the
//     shorter token has ≤4 runes, ≤2 when ≤8, otherwise ≤ floor(longer/3).
//  6. (Optional, see [WithPhoneticFallback]) shared Double Metaphone code.
//
// Empty tokens never match.
func (m *Matcher) IsFuzzyMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	ra, rb := []rune(a), []rune(b)
	short, long := len(ra), len(rb)
	if short > long {
		short, long = long, short
	}

	// Prefix and substring containment. A prefix is a special case of
	// containment, so one scan covers rules 2 and 3.
	if containsRunes(ra, rb) || containsRunes(rb, ra) {
		return true
	}

	// Shared leading run.
	if short >= 2 {
		run := 0
		for run < len(ra) && run < len(rb) && ra[run] == rb[run] {
			run++
		}
		if float64(run) >= maxF(2, 0.6*float64(short)) {
			return true
		}
	}

	// Edit distance tolerance.
	tolerance := long / 3
	switch {
	case short <= 4:
		tolerance = 1
	case short <= 8:
		tolerance = 2
	}
	if Distance(a, b) <= tolerance {
		return true
	}

	if m.phonetic && phoneticEqual(a, b) {
		return true
	}
	return false
}

// containsRunes reports whether needle occurs as a contiguous run in hay.
// Rune-based rather than strings.Contains so multi-byte tokens behave the
// same as ASCII ones.
func containsRunes(hay, needle []rune) bool {
	if len(needle) > len(hay) {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// phoneticEqual reports whether a and b share a Double Metaphone code.
func phoneticEqual(a, b string) bool {
	pa, sa := matchr.DoubleMetaphone(a)
	pb, sb := matchr.DoubleMetaphone(b)
	if pa == "" && sa == "" {
		return false
	}
	for _, ca := range []string{pa, sa} {
		if ca == "" {
			continue
		}
		if ca == pb || (sb != "" && ca == sb) {
			return true
		}
	}
	return false
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// runeLen is a shorthand used by the aligners.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
