package domain

// Named feeds every account owns. Feed rows are identified by integer ids in
// the store; these names are what query conditions and the feed resolver
// translate from.
const (
	FeedPosts    = "Posts"
	FeedComments = "Comments"
	FeedLikes    = "Likes"
	FeedSaves    = "Saves"
	FeedDirects  = "Directs"
)

// SortOrder selects the base ordering of a timeline page.
type SortOrder string

const (
	// SortBumped orders by the post's effective activity timestamp,
	// newest first. This is the default feed ordering and the only one
	// that participates in local-bump merging.
	SortBumped SortOrder = "bumped"

	// SortCreated orders by publication time, newest first.
	SortCreated SortOrder = "created"
)

// Valid reports whether s names a supported sort order.
func (s SortOrder) Valid() bool {
	return s == SortBumped || s == SortCreated
}

// Paging bounds a single timeline page.
type Paging struct {
	Limit  int
	Offset int
}
