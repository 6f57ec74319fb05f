package query

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinPrefixLength is the smallest wildcard prefix accepted when the
// parser is constructed without an explicit limit.
const DefaultMinPrefixLength = 2

// listConditions maps condition aliases to the canonical condition name the
// predicate builder switches on.
var listConditions = map[string]string{
	"in":           "in",
	"group":        "in",
	"groups":       "in",
	"in-my":        "in-my",
	"inmy":         "in-my",
	"commented-by": "commented-by",
	"liked-by":     "liked-by",
	"from":         "from",
	"author":       "author",
	"by":           "author",
	"to":           "to",
}

// scopeStarts maps scope keywords to the scope they open. A bare keyword
// (in-body:) opens a ScopeStart; a keyword with a value (in-body:cat) wraps
// the value in an InScope token instead.
var scopeStarts = map[string]Scope{
	"inbody":      ScopePosts,
	"in-body":     ScopePosts,
	"incomment":   ScopeComments,
	"incomments":  ScopeComments,
	"in-comment":  ScopeComments,
	"in-comments": ScopeComments,
}

// Parser turns raw query strings into token trees.
type Parser struct {
	// MinPrefixLength is the shortest prefix a trailing-* wildcard term may
	// have. Shorter prefixes are a syntax error.
	MinPrefixLength int
}

// NewParser returns a Parser with the given wildcard minimum, falling back to
// DefaultMinPrefixLength when min is not positive.
func NewParser(min int) *Parser {
	if min <= 0 {
		min = DefaultMinPrefixLength
	}
	return &Parser{MinPrefixLength: min}
}

// Parse tokenizes and reduces a raw query string. The returned sequence
// contains only Condition, SeqTexts, InScope and ScopeStart tokens. Unknown
// name: prefixes degrade to plain text; stray joiners are dropped silently.
// Malformed wildcards and unterminated quotes return a *SyntaxError.
func (p *Parser) Parse(raw string) ([]Token, error) {
	terms, err := scan(raw)
	if err != nil {
		return nil, err
	}

	var flat []Token
	for _, term := range terms {
		tok, err := p.lexTerm(term)
		if err != nil {
			return nil, err
		}
		if tok != nil {
			flat = append(flat, tok)
		}
	}
	return reduce(flat), nil
}

// scan splits the raw string into terms on unquoted whitespace. Quoted
// sections keep their spaces and quotes for the lexer; backslash escapes the
// next character inside quotes.
func scan(raw string) ([]string, error) {
	var (
		terms   []string
		term    strings.Builder
		inQuote bool
		escaped bool
	)
	flush := func() {
		if term.Len() > 0 {
			terms = append(terms, term.String())
			term.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case escaped:
			term.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			term.WriteRune(r)
			escaped = true
		case r == '"':
			inQuote = !inQuote
			term.WriteRune(r)
		case !inQuote && isSpace(r):
			flush()
		default:
			term.WriteRune(r)
		}
	}
	if inQuote {
		return nil, &SyntaxError{Msg: "unterminated quote"}
	}
	flush()
	return terms, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// lexTerm classifies a single scanned term. A nil token means the term
// normalized to nothing and is skipped.
func (p *Parser) lexTerm(term string) (Token, error) {
	switch term {
	case "|":
		return pipe{}, nil
	case "+":
		return plus{}, nil
	}

	exclude := false
	if len(term) > 1 && term[0] == '-' {
		exclude = true
		term = term[1:]
	}

	if name, value, ok := splitPrefix(term); ok {
		lower := strings.ToLower(name)

		if canonical, ok := listConditions[lower]; ok {
			var args []string
			for _, a := range strings.Split(value, ",") {
				if n := normalizeArg(a); n != "" {
					args = append(args, n)
				}
			}
			if len(args) == 0 {
				return nil, nil
			}
			return Condition{Exclude: exclude, Name: canonical, Args: args}, nil
		}

		if scope, ok := scopeStarts[lower]; ok {
			if value == "" {
				return ScopeStart{Scope: scope}, nil
			}
			text, err := p.lexText(exclude, value)
			if err != nil {
				return nil, err
			}
			if text == nil {
				return nil, nil
			}
			return InScope{Scope: scope, Text: AnyText{Children: []Text{*text}}}, nil
		}
		// Unknown prefix: fall through and treat name:value as a literal
		// term, so ordinary text with colons never errors.
	}

	text, err := p.lexText(exclude, term)
	if err != nil || text == nil {
		return nil, err
	}
	return *text, nil
}

// splitPrefix splits a term at its first colon when the part before the colon
// is shaped like a condition or scope name.
func splitPrefix(term string) (name, value string, ok bool) {
	idx := strings.IndexByte(term, ':')
	if idx <= 0 {
		return "", "", false
	}
	name = term[:idx]
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-') {
			return "", "", false
		}
	}
	return name, term[idx+1:], true
}

// lexText turns a scanned value into a Text token: quoted phrase, wildcard
// prefix term, or bare word.
func (p *Parser) lexText(exclude bool, s string) (*Text, error) {
	if strings.HasPrefix(s, `"`) {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`)
		phrase := normalizePhrase(unescape(inner))
		if phrase == "" {
			return nil, nil
		}
		return &Text{Exclude: exclude, Phrase: true, Text: phrase}, nil
	}

	if strings.HasSuffix(s, "*") {
		word := normalizeWord(strings.TrimSuffix(s, "*"))
		stem := strings.TrimLeft(word, "#@")
		if utf8.RuneCountInString(stem) < p.MinPrefixLength {
			return nil, &SyntaxError{Msg: "wildcard prefix is too short: " + s}
		}
		return &Text{Exclude: exclude, Prefix: true, Text: word}, nil
	}

	word := normalizeWord(s)
	if word == "" {
		return nil, nil
	}
	return &Text{Exclude: exclude, Text: word}, nil
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// reduce folds |-joined terms into AnyText groups and +-joined groups into
// SeqTexts sequences, left to right. Joiners without a text operand on both
// sides are dropped.
func reduce(flat []Token) []Token {
	var out []Token
	for i := 0; i < len(flat); {
		switch tok := flat[i].(type) {
		case pipe, plus:
			// stray joiner with no left operand
			i++
		case Text:
			seq := SeqTexts{Children: []AnyText{{Children: []Text{tok}}}}
			i++
			for i < len(flat) {
				if !isJoiner(flat[i]) {
					break
				}
				// walk the joiner run; the joiner adjacent to the next
				// term decides how it attaches, the rest are strays
				j := i
				for j < len(flat) && isJoiner(flat[j]) {
					j++
				}
				next, ok := tokenText(flat, j)
				if !ok {
					i = j
					break
				}
				if _, isPlus := flat[j-1].(plus); isPlus {
					seq.Children = append(seq.Children, AnyText{Children: []Text{next}})
				} else {
					last := len(seq.Children) - 1
					seq.Children[last].Children = append(seq.Children[last].Children, next)
				}
				i = j + 1
			}
			out = append(out, seq)
		default:
			out = append(out, flat[i])
			i++
		}
	}
	return out
}

func isJoiner(tok Token) bool {
	switch tok.(type) {
	case pipe, plus:
		return true
	}
	return false
}

func tokenText(flat []Token, i int) (Text, bool) {
	if i >= len(flat) {
		return Text{}, false
	}
	t, ok := flat[i].(Text)
	return t, ok
}
