// Package textnorm canonicalizes raw transcript and script text for
// comparison and tokenizes it into alignable word units.
//
// Two canonical forms exist:
//
//   - [Normalize] produces the comparison form: lowercase, letters, digits
//     and single spaces only. Both aligners compare spoken text in this form.
//   - [CollapseWhitespace] produces the display form: whitespace runs are
//     collapsed but case and punctuation survive. Reference offsets are
//     expressed against this form, and annotation detection (bracketed cues)
//     requires it.
//
// Both transforms are idempotent. All offsets throughout the module are rune
// offsets into the display form.
package textnorm

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, removes every character that is not a letter,
// digit or whitespace, and collapses consecutive whitespace to single
// spaces. Leading and trailing whitespace is trimmed. Idempotent.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

// CollapseWhitespace collapses consecutive whitespace in s to single spaces
// and trims the ends, preserving case and punctuation. Idempotent.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Strip lowercases s and removes everything that is not a letter or digit.
// The result is the form fuzzy word matching operates on; an empty result
// marks the token as unspeakable (pure punctuation, emoji, symbols).
func Strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Token is a word or annotation unit produced by [Tokenize].
type Token struct {
	// Text is the raw token text, including any punctuation or brackets.
	Text string

	// Offset is the rune offset of the token's first rune in the source
	// string passed to Tokenize.
	Offset int

	// Annotation marks tokens that are never required to be spoken:
	// bracketed cues like "[pause]" and tokens with no letters or digits.
	Annotation bool
}

// Len returns the token's length in runes.
func (t Token) Len() int {
	return len([]rune(t.Text))
}

// Tokenize splits s into word and annotation tokens with rune offsets.
//
// Words are maximal runs of non-whitespace. A token starting with '[' is
// lexed through the matching ']' even across spaces, so multi-word cues like
// "[long pause]" form a single annotation token. A token is an annotation
// when it is bracketed or when [Strip] of its text is empty.
func Tokenize(s string) []Token {
	runes := []rune(s)
	var tokens []Token

	i := 0
	for i < len(runes) {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		start := i
		if runes[i] == '[' {
			// Bracketed cue: consume through the closing bracket if one
			// exists; otherwise fall back to whitespace splitting.
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == ']' {
					end = j
					break
				}
			}
			if end >= 0 {
				text := string(runes[start : end+1])
				tokens = append(tokens, Token{Text: text, Offset: start, Annotation: true})
				i = end + 1
				continue
			}
		}
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		text := string(runes[start:i])
		tokens = append(tokens, Token{
			Text:       text,
			Offset:     start,
			Annotation: Strip(text) == "",
		})
	}
	return tokens
}

// Words returns the stripped comparison form of every non-annotation token
// in s, in order. Convenience for callers that only need spoken words.
func Words(s string) []string {
	var out []string
	for _, t := range Tokenize(s) {
		if t.Annotation {
			continue
		}
		if w := Strip(t.Text); w != "" {
			out = append(out, w)
		}
	}
	return out
}
