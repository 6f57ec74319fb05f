package search

import (
	"strings"

	"github.com/feedtide/feedtide/internal/filter"
	"github.com/feedtide/feedtide/internal/query"
)

const (
	postTokens    = "posts.body_tokens"
	commentTokens = "comments.body_tokens"
)

// textNodes renders one parsed text group against both token columns and
// reports whether the group is excluded. Returned nodes are always positive;
// callers place the negation where the scope demands it (a plain NOT for post
// bodies, NOT EXISTS for comments).
func textNodes(seq query.SeqTexts) (postNode, commentNode filter.Node, excluded bool) {
	if len(seq.Children) == 0 || len(seq.Children[0].Children) == 0 {
		return filter.True, filter.True, false
	}
	excluded = seq.Children[0].Children[0].Exclude

	if len(seq.Children) == 1 {
		return orGroup(postTokens, seq.Children[0]), orGroup(commentTokens, seq.Children[0]), excluded
	}

	// adjacency across OR-groups expands to the cartesian product of
	// phrase alternatives: (a|c) + b matches "a b" or "c b"
	alts := sequenceAlternatives(seq)
	post := make([]filter.Node, len(alts))
	comment := make([]filter.Node, len(alts))
	for i, alt := range alts {
		post[i] = filter.TextMatch(postTokens, alt.kind, alt.text, false)
		comment[i] = filter.TextMatch(commentTokens, alt.kind, alt.text, false)
	}
	return filter.Or(post...), filter.Or(comment...), excluded
}

func orGroup(column string, group query.AnyText) filter.Node {
	nodes := make([]filter.Node, len(group.Children))
	for i, t := range group.Children {
		nodes[i] = filter.TextMatch(column, matchKind(t), t.Text, false)
	}
	return filter.Or(nodes...)
}

func matchKind(t query.Text) filter.MatchKind {
	switch {
	case t.Prefix:
		return filter.MatchPrefix
	case t.Phrase:
		return filter.MatchPhrase
	}
	return filter.MatchTerm
}

type phraseAlt struct {
	text string
	kind filter.MatchKind
}

func sequenceAlternatives(seq query.SeqTexts) []phraseAlt {
	alts := []phraseAlt{{}}
	for gi, group := range seq.Children {
		last := gi == len(seq.Children)-1
		var next []phraseAlt
		for _, alt := range alts {
			for _, t := range group.Children {
				words := append(splitIfPhrase(alt.text), t.Words()...)
				kind := filter.MatchPhrase
				if t.Prefix {
					if last {
						kind = filter.MatchPrefix
					} else {
						// an inner wildcard keeps its prefix meaning
						// through an embedded pattern wildcard;
						// normalized tokens never contain %, so the
						// pattern stays unambiguous
						words[len(words)-1] += "%"
					}
				}
				next = append(next, phraseAlt{text: strings.Join(words, " "), kind: kind})
			}
		}
		alts = next
	}
	return alts
}

func splitIfPhrase(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, " ")
}
