// Package visibility computes the predicate restricting posts and comments to
// what a given viewer may see: privacy, protection, bans with group-admin
// overrides, and gone authors. It is a pure function of the viewer context;
// the context itself is fetched once per request through a ContextLoader.
package visibility

import (
	"context"

	"github.com/google/uuid"

	"github.com/feedtide/feedtide/internal/filter"
	"github.com/feedtide/feedtide/internal/openlist"
)

// Comment hide types. A non-zero hide type marks a comment body that must not
// be shown regardless of the post-level predicate.
const (
	HideTypeVisible int64 = 0
	HideTypeBanned  int64 = 1
	HideTypeDeleted int64 = 2
)

// Ctx carries everything about a viewer the rule engine needs. Build it with
// Anonymous or through a ContextLoader; the zero value is not meaningful
// because zero-valued open lists denote the universal set.
type Ctx struct {
	// ViewerID identifies the authenticated viewer; uuid.Nil means
	// anonymous.
	ViewerID uuid.UUID

	// BannedByViewer are authors the viewer has banned.
	BannedByViewer openlist.List[uuid.UUID]

	// BannedViewer are authors who have banned the viewer.
	BannedViewer openlist.List[uuid.UUID]

	// VisiblePrivateFeeds are the private feed ids the viewer is
	// subscribed to.
	VisiblePrivateFeeds openlist.List[int64]

	// DisabledBansFeeds are the feeds of groups where the viewer has
	// switched ban enforcement off.
	DisabledBansFeeds openlist.List[int64]

	// ManagedFeeds are the feeds of groups the viewer administers.
	ManagedFeeds openlist.List[int64]
}

// Anonymous returns the context of an unauthenticated viewer.
func Anonymous() Ctx {
	return Ctx{
		BannedByViewer:      openlist.Nothing[uuid.UUID](),
		BannedViewer:        openlist.Nothing[uuid.UUID](),
		VisiblePrivateFeeds: openlist.Nothing[int64](),
		DisabledBansFeeds:   openlist.Nothing[int64](),
		ManagedFeeds:        openlist.Nothing[int64](),
	}
}

// IsAnonymous reports whether the context belongs to an unauthenticated
// viewer.
func (c Ctx) IsAnonymous() bool { return c.ViewerID == uuid.Nil }

// ContextLoader fetches the per-viewer visibility context. Implementations
// are repository-backed and typically cache-wrapped; lookups happen once and
// the result is reused for every predicate of the request.
type ContextLoader interface {
	LoadContext(ctx context.Context, viewerID uuid.UUID) (Ctx, error)
}

// PostFilter returns the predicate restricting posts to what the viewer may
// see.
func PostFilter(vc Ctx) filter.Node {
	if vc.IsAnonymous() {
		return filter.And(
			filter.ColumnIs("posts.is_protected", false),
			filter.ColumnIs("posts.is_private", false),
			filter.AuthorPresent("posts.user_id"),
		)
	}

	privacy := filter.Or(
		filter.ColumnIs("posts.is_private", false),
		filter.PostedTo("posts.uid", vc.VisiblePrivateFeeds),
	)

	return filter.And(
		privacy,
		banFilters(vc, "posts.user_id", "posts.uid"),
		filter.AuthorPresent("posts.user_id"),
	)
}

// CommentFilter returns the comment-level predicate. It complements the
// post-level predicate: post privacy is already enforced there, so only the
// comment's own hide type and the comment author's ban/gone state matter
// here.
func CommentFilter(vc Ctx) filter.Node {
	visible := filter.ColumnEq("comments.hide_type", HideTypeVisible)

	if vc.IsAnonymous() {
		return filter.And(visible, filter.AuthorPresent("comments.user_id"))
	}

	return filter.And(
		visible,
		banFilters(vc, "comments.user_id", "comments.post_id"),
		filter.AuthorPresent("comments.user_id"),
	)
}

// banFilters builds the two independent ban conditions. Content from an
// author the viewer banned stays visible inside groups where the viewer
// disabled ban enforcement; content from an author who banned the viewer
// stays visible inside such groups only when the viewer also administers
// them.
func banFilters(vc Ctx, authorColumn, postIDColumn string) filter.Node {
	byViewer := filter.Or(
		filter.IDIn(authorColumn, vc.BannedByViewer.Inverse()),
		filter.PostedTo(postIDColumn, vc.DisabledBansFeeds),
	)

	ofViewer := filter.Or(
		filter.IDIn(authorColumn, vc.BannedViewer.Inverse()),
		filter.PostedTo(postIDColumn, vc.DisabledBansFeeds.Intersection(vc.ManagedFeeds)),
	)

	return filter.And(byViewer, ofViewer)
}
