// Package filter is a typed predicate AST over the post/comment read model.
// Query and visibility rules build Nodes; a single rendering pass turns the
// tree into one parameterized SQL fragment. Values only ever travel as
// placeholders, so there is no escaping discipline to get wrong.
package filter

import (
	"github.com/google/uuid"

	"github.com/feedtide/feedtide/internal/openlist"
)

// Node is one predicate. Constructors fold the boolean constants True and
// False through And/Or/Not, so vacuous conditions collapse instead of being
// rendered.
type Node interface {
	isNode()
}

// Constant is a boolean constant predicate.
type Constant bool

// True and False are the only Constant values.
const (
	True  = Constant(true)
	False = Constant(false)
)

type andNode struct{ nodes []Node }
type orNode struct{ nodes []Node }
type notNode struct{ node Node }

func (Constant) isNode() {}
func (andNode) isNode()  {}
func (orNode) isNode()   {}
func (notNode) isNode()  {}

// And conjoins predicates. True operands are dropped, a False operand
// collapses the whole conjunction, and an empty conjunction is True.
func And(nodes ...Node) Node {
	kept := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch n {
		case nil, True:
			continue
		case False:
			return False
		}
		kept = append(kept, n)
	}
	switch len(kept) {
	case 0:
		return True
	case 1:
		return kept[0]
	}
	return andNode{nodes: kept}
}

// Or disjoins predicates, dual to And.
func Or(nodes ...Node) Node {
	kept := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch n {
		case nil, False:
			continue
		case True:
			return True
		}
		kept = append(kept, n)
	}
	switch len(kept) {
	case 0:
		return False
	case 1:
		return kept[0]
	}
	return orNode{nodes: kept}
}

// Not negates a predicate, folding constants and double negation.
func Not(n Node) Node {
	switch t := n.(type) {
	case Constant:
		return Constant(!bool(t))
	case notNode:
		return t.node
	}
	return notNode{node: n}
}

// idList matches a uuid column against an open list of ids.
type idList struct {
	column string
	ids    openlist.List[uuid.UUID]
}

func (idList) isNode() {}

// IDIn restricts column to the members of ids. An empty set never matches and
// the universal set always does.
func IDIn(column string, ids openlist.List[uuid.UUID]) Node {
	if ids.IsEmpty() {
		return False
	}
	if ids.IsEverything() {
		return True
	}
	return idList{column: column, ids: ids}
}

// feedMatch requires the post to appear in (or, for an exclusive list, in
// some feed outside of) the given feed set, via the post_feeds join table.
type feedMatch struct {
	postIDColumn    string
	feeds           openlist.List[int64]
	destinationOnly bool
}

func (feedMatch) isNode() {}

// PostIn matches posts carried by any feed in the set.
func PostIn(postIDColumn string, feeds openlist.List[int64]) Node {
	return newFeedMatch(postIDColumn, feeds, false)
}

// PostedTo matches posts explicitly published to a feed in the set.
func PostedTo(postIDColumn string, feeds openlist.List[int64]) Node {
	return newFeedMatch(postIDColumn, feeds, true)
}

func newFeedMatch(postIDColumn string, feeds openlist.List[int64], destinationOnly bool) Node {
	if feeds.IsEmpty() {
		return False
	}
	if feeds.IsEverything() {
		return True
	}
	return feedMatch{postIDColumn: postIDColumn, feeds: feeds, destinationOnly: destinationOnly}
}

// MatchKind distinguishes the three text-match shapes.
type MatchKind uint8

const (
	// MatchTerm matches one whole normalized word.
	MatchTerm MatchKind = iota
	// MatchPhrase matches adjacent normalized words in order.
	MatchPhrase
	// MatchPrefix matches any word starting with the given prefix.
	MatchPrefix
)

// tokenMatch matches against a normalized token column. The column stores
// normalized words joined and surrounded by single spaces, so whole-word,
// adjacency and prefix matching all reduce to a LIKE pattern. Normalized
// tokens cannot contain LIKE metacharacters.
type tokenMatch struct {
	column string
	kind   MatchKind
	text   string
	negate bool
}

func (tokenMatch) isNode() {}

// TextMatch builds a full-text predicate over a token column.
func TextMatch(column string, kind MatchKind, text string, negate bool) Node {
	if text == "" {
		return True
	}
	return tokenMatch{column: column, kind: kind, text: text, negate: negate}
}

// boolColumn asserts a boolean column's value.
type boolColumn struct {
	column string
	want   bool
}

func (boolColumn) isNode() {}

// ColumnIs asserts that a boolean column holds want.
func ColumnIs(column string, want bool) Node {
	return boolColumn{column: column, want: want}
}

// intColumn asserts an integer column's value.
type intColumn struct {
	column string
	value  int64
}

func (intColumn) isNode() {}

// ColumnEq asserts that an integer column equals value.
func ColumnEq(column string, value int64) Node {
	return intColumn{column: column, value: value}
}

// commentsWhere requires the post to have at least one comment satisfying the
// inner predicate.
type commentsWhere struct {
	inner Node
}

func (commentsWhere) isNode() {}

// CommentsWhere lifts a comment-level predicate to the post level: the post
// matches when some comment of it matches inner. A vacuous inner predicate
// imposes no constraint at all (it does not require a comment to exist).
func CommentsWhere(inner Node) Node {
	switch inner {
	case nil, True:
		return True
	case False:
		return False
	}
	return commentsWhere{inner: inner}
}

// authorPresent requires the referenced author to still be an active account.
type authorPresent struct {
	authorColumn string
}

func (authorPresent) isNode() {}

// AuthorPresent hides content whose author is deactivated or removed.
func AuthorPresent(authorColumn string) Node {
	return authorPresent{authorColumn: authorColumn}
}
