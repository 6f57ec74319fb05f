package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes characters and strips combining marks so that accented
// and unaccented spellings compare equal ("café" matches "cafe").
var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeWord lowercases a single word, folds diacritics and strips
// punctuation. A leading # or @ sigil survives so hashtags and mentions stay
// distinguishable from plain words. Returns "" when nothing searchable is
// left.
func normalizeWord(word string) string {
	folded, _, err := transform.String(foldMarks, strings.ToLower(word))
	if err != nil {
		folded = strings.ToLower(word)
	}

	var b strings.Builder
	for i, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '#' || r == '@':
			if i == 0 {
				b.WriteRune(r)
			}
		case r == '_' || r == '-':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		}
	}
	return strings.TrimRight(b.String(), "-_")
}

// normalizePhrase normalizes every word of a phrase and joins the survivors
// with single spaces.
func normalizePhrase(phrase string) string {
	return strings.Join(normalizeWords(phrase), " ")
}

func normalizeWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		if n := normalizeWord(w); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func splitWords(text string) []string {
	return strings.Fields(text)
}

// normalizeArg prepares a condition argument: usernames and group names are
// matched case-insensitively and may be written with a leading @, quoted, or
// with a stray trailing wildcard. Quotes and wildcards carry no meaning in
// name position and are dropped.
func normalizeArg(arg string) string {
	arg = strings.Trim(strings.TrimSpace(arg), `"`)
	arg = strings.TrimRight(arg, "*")
	return strings.ToLower(strings.TrimPrefix(arg, "@"))
}
