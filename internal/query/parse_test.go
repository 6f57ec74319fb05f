package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) []Token {
	t.Helper()
	tokens, err := NewParser(0).Parse(raw)
	require.NoError(t, err)
	return tokens
}

func word(s string) SeqTexts {
	return SeqTexts{Children: []AnyText{{Children: []Text{{Text: s}}}}}
}

func TestParseBareWords(t *testing.T) {
	tokens := parse(t, "a b c")
	assert.Equal(t, []Token{word("a"), word("b"), word("c")}, tokens)
}

func TestParsePipeJoins(t *testing.T) {
	tokens := parse(t, "a | b | c")
	want := []Token{SeqTexts{Children: []AnyText{
		{Children: []Text{{Text: "a"}, {Text: "b"}, {Text: "c"}}},
	}}}
	assert.Equal(t, want, tokens)
}

func TestParsePlusAndPipe(t *testing.T) {
	tokens := parse(t, "a + b | c")
	want := []Token{SeqTexts{Children: []AnyText{
		{Children: []Text{{Text: "a"}}},
		{Children: []Text{{Text: "b"}, {Text: "c"}}},
	}}}
	assert.Equal(t, want, tokens)
}

func TestParseConditionWithExcludedText(t *testing.T) {
	tokens := parse(t, "inmy:a,b -c")
	require.Len(t, tokens, 2)
	assert.Equal(t, Condition{Name: "in-my", Args: []string{"a", "b"}}, tokens[0])
	assert.Equal(t, SeqTexts{Children: []AnyText{{Children: []Text{{Exclude: true, Text: "c"}}}}}, tokens[1])
}

func TestParseConditionAliases(t *testing.T) {
	cases := map[string]string{
		"in":           "in",
		"group":        "in",
		"groups":       "in",
		"inmy":         "in-my",
		"in-my":        "in-my",
		"commented-by": "commented-by",
		"liked-by":     "liked-by",
		"from":         "from",
		"author":       "author",
		"by":           "author",
		"to":           "to",
	}
	for alias, canonical := range cases {
		tokens := parse(t, alias+":alice")
		require.Len(t, tokens, 1, alias)
		cond, ok := tokens[0].(Condition)
		require.True(t, ok, alias)
		assert.Equal(t, canonical, cond.Name, alias)
		assert.Equal(t, []string{"alice"}, cond.Args)
	}
}

func TestParseExcludedCondition(t *testing.T) {
	tokens := parse(t, "-from:alice,@Bob")
	require.Len(t, tokens, 1)
	assert.Equal(t, Condition{Exclude: true, Name: "from", Args: []string{"alice", "bob"}}, tokens[0])
}

func TestParseScopeStart(t *testing.T) {
	tokens := parse(t, "in-body: cat incomments: dog")
	want := []Token{
		ScopeStart{Scope: ScopePosts},
		word("cat"),
		ScopeStart{Scope: ScopeComments},
		word("dog"),
	}
	assert.Equal(t, want, tokens)
}

func TestParseInScope(t *testing.T) {
	tokens := parse(t, `in-body:cat in-comments:"hot dog"`)
	want := []Token{
		InScope{Scope: ScopePosts, Text: AnyText{Children: []Text{{Text: "cat"}}}},
		InScope{Scope: ScopeComments, Text: AnyText{Children: []Text{{Phrase: true, Text: "hot dog"}}}},
	}
	assert.Equal(t, want, tokens)
}

func TestParsePhrase(t *testing.T) {
	tokens := parse(t, `"Hello,  World" -"go away"`)
	want := []Token{
		SeqTexts{Children: []AnyText{{Children: []Text{{Phrase: true, Text: "hello world"}}}}},
		SeqTexts{Children: []AnyText{{Children: []Text{{Exclude: true, Phrase: true, Text: "go away"}}}}},
	}
	assert.Equal(t, want, tokens)
}

func TestParsePhraseEscapes(t *testing.T) {
	tokens := parse(t, `"say \"hi\" now"`)
	require.Len(t, tokens, 1)
	seq := tokens[0].(SeqTexts)
	assert.Equal(t, "say hi now", seq.Children[0].Children[0].Text)
}

func TestParseUnterminatedQuote(t *testing.T) {
	_, err := NewParser(0).Parse(`"never closed`)
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestParseWildcard(t *testing.T) {
	tokens := parse(t, "cat* #tag* @user*")
	want := []Token{
		SeqTexts{Children: []AnyText{{Children: []Text{{Prefix: true, Text: "cat"}}}}},
		SeqTexts{Children: []AnyText{{Children: []Text{{Prefix: true, Text: "#tag"}}}}},
		SeqTexts{Children: []AnyText{{Children: []Text{{Prefix: true, Text: "@user"}}}}},
	}
	assert.Equal(t, want, tokens)
}

func TestParseWildcardMinimumLength(t *testing.T) {
	p := NewParser(3)

	_, err := p.Parse("ab*")
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr, "below the minimum is a syntax error")

	// the sigil does not count toward the prefix length
	_, err = p.Parse("#ab*")
	require.ErrorAs(t, err, &syntaxErr)

	tokens, err := p.Parse("abc*")
	require.NoError(t, err, "exactly at the minimum succeeds")
	require.Len(t, tokens, 1)
}

func TestParseUnknownPrefixDegradesToText(t *testing.T) {
	tokens := parse(t, "see http://example.com note:self")
	// the colon survives neither normalization nor matching, but no error
	// is raised and every term stays a plain text term
	require.Len(t, tokens, 3)
	for _, tok := range tokens {
		_, ok := tok.(SeqTexts)
		assert.True(t, ok)
	}
}

func TestParseStrayJoiners(t *testing.T) {
	assert.Empty(t, parse(t, "| + |"))
	assert.Equal(t, []Token{word("a")}, parse(t, "| a +"))

	// consecutive pipes collapse
	tokens := parse(t, "a | | b")
	want := []Token{SeqTexts{Children: []AnyText{{Children: []Text{{Text: "a"}, {Text: "b"}}}}}}
	assert.Equal(t, want, tokens)

	// a joiner next to a condition has no text operand and is dropped
	tokens = parse(t, "a | from:bob")
	require.Len(t, tokens, 2)
	assert.Equal(t, word("a"), tokens[0])
	assert.Equal(t, Condition{Name: "from", Args: []string{"bob"}}, tokens[1])
}

func TestParseNormalization(t *testing.T) {
	tokens := parse(t, "Café!!! ... #Tag,")
	want := []Token{word("cafe"), word("#tag")}
	assert.Equal(t, want, tokens)
}

func TestParseConditionArgCleanup(t *testing.T) {
	tokens := parse(t, `from:"Alice",bob*,@Carol`)
	want := []Token{Condition{Name: "from", Args: []string{"alice", "bob", "carol"}}}
	assert.Equal(t, want, tokens)
}

func TestParseEmpty(t *testing.T) {
	assert.Empty(t, parse(t, ""))
	assert.Empty(t, parse(t, "   \t  "))
	assert.Empty(t, parse(t, "... !!!"))
}

func TestComplexity(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"", 0},
		{"foo bar from:me", 2.5},
		{`"three word phrase"`, 3},
		{"a | b + c", 3},
		{"in:alpha,beta,gamma", 1.5},
		{"in-body: cat", 1},
		{"in-comments:dog -liked-by:a,b word", 3},
	}
	for _, c := range cases {
		tokens := parse(t, c.raw)
		assert.Equal(t, c.want, Complexity(tokens), "query %q", c.raw)
	}
}
