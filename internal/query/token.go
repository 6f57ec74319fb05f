// Package query implements the search query language: a scanner and parser
// that turn a raw query string into a tree of typed tokens, and the
// complexity scorer that prices a parsed query before any store work is done.
package query

// Scope says whether a token applies to post bodies, comments, or either.
type Scope uint8

const (
	ScopePosts    Scope = 1 << iota // post bodies
	ScopeComments                   // comment bodies
	ScopeAll      = ScopePosts | ScopeComments
)

// Includes reports whether s covers the other scope's targets.
func (s Scope) Includes(other Scope) bool { return s&other == other }

func (s Scope) String() string {
	switch s {
	case ScopePosts:
		return "posts"
	case ScopeComments:
		return "comments"
	case ScopeAll:
		return "all"
	}
	return "none"
}

// Token is one node of a parsed query. A parsed query is an ordered sequence
// of top-level tokens: Condition, SeqTexts, InScope and ScopeStart.
type Token interface {
	isToken()
}

// ScopeStart switches the scope of all following tokens.
type ScopeStart struct {
	Scope Scope
}

// Condition is a named filter with a comma-separated argument list, e.g.
// from:alice,bob. Name is canonical (aliases are folded at scan time).
type Condition struct {
	Exclude bool
	Name    string
	Args    []string
}

// Text is a single search term: a bare word, a quoted phrase, or a
// prefix-wildcard term.
type Text struct {
	Exclude bool
	Phrase  bool
	Prefix  bool
	Text    string
}

// Words returns the normalized words of the term. A non-phrase term is a
// single word.
func (t Text) Words() []string {
	if !t.Phrase {
		return []string{t.Text}
	}
	return splitWords(t.Text)
}

// AnyText is a logical OR over its terms, produced by the | joiner.
type AnyText struct {
	Children []Text
}

// SeqTexts is an ordered adjacent sequence of OR-groups, produced by the +
// joiner. A standalone term parses to a SeqTexts holding one single-child
// AnyText.
type SeqTexts struct {
	Children []AnyText
}

// InScope restricts a text group to a single scope, e.g. in-body:cat.
type InScope struct {
	Scope Scope
	Text  AnyText
}

func (ScopeStart) isToken() {}
func (Condition) isToken()  {}
func (Text) isToken()       {}
func (AnyText) isToken()    {}
func (SeqTexts) isToken()   {}
func (InScope) isToken()    {}

// pipe and plus are scan-time joiners consumed by the reduce pass; they never
// appear in a parsed query.
type pipe struct{}
type plus struct{}

func (pipe) isToken() {}
func (plus) isToken() {}

// SyntaxError reports a malformed query: an unterminated quote or a wildcard
// prefix below the minimum length. It maps to a user-facing validation
// failure, never a retry.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string { return "query syntax: " + e.Msg }
