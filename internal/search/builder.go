package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/feedtide/feedtide/internal/domain"
	"github.com/feedtide/feedtide/internal/filter"
	"github.com/feedtide/feedtide/internal/openlist"
	"github.com/feedtide/feedtide/internal/query"
)

// Filters is the outcome of predicate building for one query.
type Filters struct {
	// Node is the combined post-level predicate (comment-scope conditions
	// appear as comment subqueries).
	Node filter.Node

	// SourceFeeds are the destination feed ids the query is bounded to,
	// when it is bounded at all. The selector uses them for the small-feed
	// execution strategy.
	SourceFeeds []int64

	// Wide flags a query whose author/feed filters are effectively
	// unbounded, steering the selector away from the candidate-set plan.
	Wide bool
}

// BuildFilters resolves the names a parsed query mentions and emits the
// relational predicate, split and recombined by scope:
//
//	(posts-in-all OR comments-in-all) AND posts-scope AND comments-scope AND feeds
//
// commentGuard is the viewer's comment visibility predicate; it is applied
// inside every comment subquery so invisible comments never influence
// results.
func (e *Engine) BuildFilters(ctx context.Context, tokens []query.Token, viewerID uuid.UUID, commentGuard filter.Node) (*Filters, error) {
	b := &builder{
		engine:          e,
		viewer:          viewerID,
		commentGuard:    commentGuard,
		authorsAll:      openlist.Everything[uuid.UUID](),
		authorsPosts:    openlist.Everything[uuid.UUID](),
		authorsComments: openlist.Everything[uuid.UUID](),
		scope:           query.ScopeAll,
	}

	for _, tok := range tokens {
		if err := b.walk(ctx, tok); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}

type builder struct {
	engine       *Engine
	viewer       uuid.UUID
	commentGuard filter.Node

	// scope is the state set by ScopeStart tokens; All until the first one.
	scope query.Scope

	// author filters accumulate via intersection: AND across conditions,
	// OR within one condition's comma list.
	authorsAll      openlist.List[uuid.UUID]
	authorsPosts    openlist.List[uuid.UUID]
	authorsComments openlist.List[uuid.UUID]

	postTextAll    []filter.Node // positive all-scope matches, post side
	commentTextAll []filter.Node // positive all-scope matches, comment side
	negAll         []filter.Node // conjunctive all-scope exclusions

	postTextOnly   []filter.Node // posts-scope text (negation already applied)
	commentTextPos []filter.Node // comments-scope positives, same comment
	commentNeg     []filter.Node // comments-scope exclusions (NOT EXISTS)

	feedNodes      []filter.Node
	sourceFeeds    []int64
	unboundedFeeds bool
}

func (b *builder) walk(ctx context.Context, tok query.Token) error {
	switch t := tok.(type) {
	case query.ScopeStart:
		b.scope = t.Scope
		return nil
	case query.Condition:
		return b.addCondition(ctx, t)
	case query.SeqTexts:
		b.addText(t, b.scope)
		return nil
	case query.InScope:
		b.addText(query.SeqTexts{Children: []query.AnyText{t.Text}}, t.Scope)
		return nil
	}
	return fmt.Errorf("search: unexpected token %T", tok)
}

func (b *builder) addCondition(ctx context.Context, cond query.Condition) error {
	switch cond.Name {
	case "author":
		return b.addAuthors(ctx, cond, b.scope)

	case "from":
		// from: targets post authors unless the query has switched into
		// comment scope, where it filters comment authors instead
		scope := query.ScopePosts
		if b.scope == query.ScopeComments {
			scope = query.ScopeComments
		}
		return b.addAuthors(ctx, cond, scope)

	case "in":
		return b.addFeedCondition(ctx, cond, []string{domain.FeedPosts}, true)

	case "to":
		return b.addFeedCondition(ctx, cond, []string{domain.FeedPosts, domain.FeedDirects}, true)

	case "commented-by":
		return b.addFeedCondition(ctx, cond, []string{domain.FeedComments}, false)

	case "liked-by":
		return b.addFeedCondition(ctx, cond, []string{domain.FeedLikes}, false)

	case "in-my":
		return b.addViewerFeeds(ctx, cond)
	}
	return fmt.Errorf("search: unhandled condition %q", cond.Name)
}

// resolveAccounts maps condition arguments to account ids. A me reference
// resolves to the viewer; unknown names are dropped, so a condition naming
// only unknown accounts ends up with an empty (never matching) list.
func (b *builder) resolveAccounts(ctx context.Context, args []string) ([]uuid.UUID, error) {
	var names []string
	var ids []uuid.UUID
	for _, arg := range args {
		if arg == "me" {
			if b.viewer == uuid.Nil {
				return nil, &AuthError{Ref: "me"}
			}
			ids = append(ids, b.viewer)
			continue
		}
		names = append(names, arg)
	}

	if len(names) > 0 {
		resolved, err := b.engine.resolver.AccountIDs(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("resolve accounts: %w", err)
		}
		for _, name := range names {
			if id, ok := resolved[name]; ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (b *builder) addAuthors(ctx context.Context, cond query.Condition, scope query.Scope) error {
	ids, err := b.resolveAccounts(ctx, cond.Args)
	if err != nil {
		return err
	}
	list := openlist.Of(ids...)
	if cond.Exclude {
		list = list.Inverse()
	}
	switch scope {
	case query.ScopePosts:
		b.authorsPosts = b.authorsPosts.Intersection(list)
	case query.ScopeComments:
		b.authorsComments = b.authorsComments.Intersection(list)
	default:
		b.authorsAll = b.authorsAll.Intersection(list)
	}
	return nil
}

// addFeedCondition resolves the named accounts' feeds and constrains the post
// to (destination=true) or to appear in (destination=false) them. Feed
// conditions AND together across instances and OR within one argument list.
func (b *builder) addFeedCondition(ctx context.Context, cond query.Condition, feedNames []string, destination bool) error {
	ids, err := b.resolveAccounts(ctx, cond.Args)
	if err != nil {
		return err
	}

	var feeds []int64
	if len(ids) > 0 {
		feeds, err = b.engine.resolver.FeedIDs(ctx, ids, feedNames)
		if err != nil {
			return fmt.Errorf("resolve feeds: %w", err)
		}
	}
	b.applyFeeds(feeds, destination, cond.Exclude)
	return nil
}

func (b *builder) addViewerFeeds(ctx context.Context, cond query.Condition) error {
	if b.viewer == uuid.Nil {
		return &AuthError{Ref: "in-my:"}
	}
	var feeds []int64
	for _, alias := range cond.Args {
		ids, err := b.engine.resolver.ViewerFeedIDs(ctx, b.viewer, alias)
		if err != nil {
			return fmt.Errorf("resolve in-my:%s: %w", alias, err)
		}
		feeds = append(feeds, ids...)
	}
	b.applyFeeds(feeds, false, cond.Exclude)
	return nil
}

func (b *builder) applyFeeds(feeds []int64, destination, exclude bool) {
	list := openlist.Of(feeds...)
	var node filter.Node
	if destination {
		node = filter.PostedTo("posts.uid", list)
	} else {
		node = filter.PostIn("posts.uid", list)
	}
	if exclude {
		b.feedNodes = append(b.feedNodes, filter.Not(node))
		b.unboundedFeeds = true
		return
	}
	b.feedNodes = append(b.feedNodes, node)
	b.sourceFeeds = append(b.sourceFeeds, feeds...)
}

// addText files one text group under its scope. Exclusion applies to the
// whole OR-group, marked by the leading minus of its first term.
func (b *builder) addText(seq query.SeqTexts, scope query.Scope) {
	postNode, commentNode, excluded := textNodes(seq)
	if postNode == filter.True {
		return
	}

	switch scope {
	case query.ScopePosts:
		if excluded {
			postNode = filter.Not(postNode)
		}
		b.postTextOnly = append(b.postTextOnly, postNode)

	case query.ScopeComments:
		if excluded {
			b.commentNeg = append(b.commentNeg,
				filter.Not(filter.CommentsWhere(filter.And(commentNode, b.commentGuard))))
			return
		}
		b.commentTextPos = append(b.commentTextPos, commentNode)

	default:
		if excluded {
			b.negAll = append(b.negAll, filter.And(
				filter.Not(postNode),
				filter.Not(filter.CommentsWhere(filter.And(commentNode, b.commentGuard))),
			))
			return
		}
		b.postTextAll = append(b.postTextAll, postNode)
		b.commentTextAll = append(b.commentTextAll, commentNode)
	}
}

// build assembles the final predicate and the wide-select verdict.
func (b *builder) build() *Filters {
	all := b.allScopeNode()
	posts := filter.And(append(slices.Clone(b.postTextOnly),
		filter.IDIn("posts.user_id", b.authorsPosts))...)
	comments := b.commentScopeNode()

	parts := []filter.Node{all, posts, comments}
	parts = append(parts, b.negAll...)
	parts = append(parts, b.commentNeg...)
	parts = append(parts, b.feedNodes...)

	return &Filters{
		Node:        filter.And(parts...),
		SourceFeeds: b.boundedFeeds(),
		Wide:        b.wide(),
	}
}

// allScopeNode combines the all-scope positives as
// (post side OR comment side). A pure author exclusion stays on the post
// side only, so it never demands that a comment exist.
func (b *builder) allScopeNode() filter.Node {
	hasText := len(b.postTextAll) > 0
	if !hasText && b.authorsAll.IsEverything() {
		return filter.True
	}
	if !hasText && !b.authorsAll.Inclusive() {
		return filter.IDIn("posts.user_id", b.authorsAll)
	}

	postSide := filter.And(append(slices.Clone(b.postTextAll),
		filter.IDIn("posts.user_id", b.authorsAll))...)

	inner := filter.And(append(slices.Clone(b.commentTextAll),
		filter.IDIn("comments.user_id", b.authorsAll), b.commentGuard)...)

	return filter.Or(postSide, filter.CommentsWhere(inner))
}

// commentScopeNode requires one comment satisfying every comments-scope
// positive at once, plus the comment author filter and the visibility guard.
func (b *builder) commentScopeNode() filter.Node {
	hasText := len(b.commentTextPos) > 0
	if !hasText && b.authorsComments.IsEverything() {
		return filter.True
	}
	if !hasText && !b.authorsComments.Inclusive() {
		// no comment by the excluded authors at all
		return filter.Not(filter.CommentsWhere(filter.And(
			filter.IDIn("comments.user_id", b.authorsComments.Inverse()),
			b.commentGuard,
		)))
	}

	inner := filter.And(append(slices.Clone(b.commentTextPos),
		filter.IDIn("comments.user_id", b.authorsComments), b.commentGuard)...)
	return filter.CommentsWhere(inner)
}

func (b *builder) boundedFeeds() []int64 {
	if b.unboundedFeeds || len(b.sourceFeeds) == 0 {
		return nil
	}
	return dedupeInt64(b.sourceFeeds)
}

func (b *builder) wide() bool {
	if b.unboundedFeeds {
		return true
	}
	for _, authors := range []openlist.List[uuid.UUID]{b.authorsAll, b.authorsPosts, b.authorsComments} {
		if !authors.Inclusive() && !authors.IsEverything() {
			return true
		}
	}
	feeds := b.boundedFeeds()
	return len(feeds) == 0 || len(feeds) > b.engine.opts.SmallFeedThreshold
}

func dedupeInt64(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
