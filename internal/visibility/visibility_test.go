package visibility

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedtide/feedtide/internal/filter"
	"github.com/feedtide/feedtide/internal/openlist"
)

var (
	viewer = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	enemy  = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
)

func authedCtx() Ctx {
	c := Anonymous()
	c.ViewerID = viewer
	return c
}

func TestAnonymousSeesNothingProtectedOrPrivate(t *testing.T) {
	sql, args := filter.Render(PostFilter(Anonymous()))
	assert.Contains(t, sql, "NOT posts.is_protected")
	assert.Contains(t, sql, "NOT posts.is_private")
	assert.Contains(t, sql, "gu.gone_status IS NOT NULL")
	assert.Empty(t, args)
}

func TestAuthenticatedWithoutBans(t *testing.T) {
	sql, _ := filter.Render(PostFilter(authedCtx()))

	// protection does not apply to authenticated viewers and the empty ban
	// sets fold away entirely
	assert.NotContains(t, sql, "is_protected")
	assert.NotContains(t, sql, "user_id NOT IN")
	assert.Contains(t, sql, "NOT posts.is_private")
}

func TestPrivateVisibleThroughSubscribedFeeds(t *testing.T) {
	vc := authedCtx()
	vc.VisiblePrivateFeeds = openlist.Of[int64](41, 42)

	sql, args := filter.Render(PostFilter(vc))
	assert.Contains(t, sql, "NOT posts.is_private OR EXISTS")
	assert.Contains(t, sql, "pf.is_destination")
	assert.Contains(t, args, int64(41))
	assert.Contains(t, args, int64(42))
}

func TestBanHidesAuthor(t *testing.T) {
	vc := authedCtx()
	vc.BannedByViewer = openlist.Of(enemy)

	sql, args := filter.Render(PostFilter(vc))
	assert.Contains(t, sql, "posts.user_id NOT IN")
	assert.Contains(t, args, enemy)
}

func TestDisabledBansOverride(t *testing.T) {
	vc := authedCtx()
	vc.BannedByViewer = openlist.Of(enemy)
	vc.DisabledBansFeeds = openlist.Of[int64](77)

	sql, args := filter.Render(PostFilter(vc))
	// the ban check gains an escape hatch for posts in the override group
	assert.Contains(t, sql, "posts.user_id NOT IN ($1) OR EXISTS")
	assert.Contains(t, args, int64(77))
}

func TestBannedViewerOverrideRequiresAdmin(t *testing.T) {
	vc := authedCtx()
	vc.BannedViewer = openlist.Of(enemy)
	vc.DisabledBansFeeds = openlist.Of[int64](77, 78)

	// bans disabled but no managed groups: no escape hatch
	sql, _ := filter.Render(PostFilter(vc))
	assert.Contains(t, sql, "posts.user_id NOT IN ($1)")
	assert.NotContains(t, sql, "OR EXISTS", "no escape hatch without admin rights")

	// managing one of the groups opens exactly that group
	vc.ManagedFeeds = openlist.Of[int64](78, 79)
	sql, args := filter.Render(PostFilter(vc))
	assert.Contains(t, sql, "posts.user_id NOT IN ($1) OR EXISTS")
	assert.Contains(t, args, int64(78))
	assert.NotContains(t, args, int64(77))
	assert.NotContains(t, args, int64(79))
}

func TestCommentFilter(t *testing.T) {
	vc := authedCtx()
	vc.BannedByViewer = openlist.Of(enemy)

	sql, args := filter.Render(CommentFilter(vc))
	assert.Contains(t, sql, "comments.hide_type = $1")
	assert.Contains(t, sql, "comments.user_id NOT IN")
	assert.Contains(t, sql, "gu.uid = comments.user_id")
	require.NotEmpty(t, args)
	assert.Equal(t, HideTypeVisible, args[0])
}

func TestCommentFilterAnonymous(t *testing.T) {
	sql, _ := filter.Render(CommentFilter(Anonymous()))
	assert.Contains(t, sql, "comments.hide_type = $1")
	assert.NotContains(t, sql, "NOT IN")
}
