// Package postgres is the store adapter: name and feed resolution, visibility
// context lookups, and the selection queries the timeline selector runs. All
// SQL is parameterized; predicate fragments come pre-rendered from the filter
// package and values only ever travel as arguments.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/feedtide/feedtide/internal/domain"
	"github.com/feedtide/feedtide/internal/filter"
	"github.com/feedtide/feedtide/internal/openlist"
	"github.com/feedtide/feedtide/internal/timeline"
	"github.com/feedtide/feedtide/internal/visibility"
)

// Repository implements search.Resolver, visibility.ContextLoader and
// timeline.Repository over PostgreSQL.
type Repository struct {
	db *sql.DB
}

// NewRepository connects to PostgreSQL at the given URL, verifies the
// connection, and returns a new Repository. The caller should call Close
// when the repository is no longer needed.
func NewRepository(databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an existing connection. The rendered SQL sticks
// to portable constructs, so tests run it against in-memory SQLite.
func NewRepositoryWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// AccountIDs maps lowercase usernames to account ids. Unknown names are
// absent from the result.
func (r *Repository) AccountIDs(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	if len(names) == 0 {
		return map[string]uuid.UUID{}, nil
	}

	placeholders, args := placeholderList(names, 1)
	rows, err := r.db.QueryContext(ctx,
		`SELECT uid, LOWER(username) FROM users WHERE LOWER(username) IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query account ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uuid.UUID, len(names))
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		out[name] = id
	}
	return out, rows.Err()
}

// FeedIDs returns the ids of the named feeds owned by the given accounts.
func (r *Repository) FeedIDs(ctx context.Context, ownerIDs []uuid.UUID, feedNames []string) ([]int64, error) {
	if len(ownerIDs) == 0 || len(feedNames) == 0 {
		return nil, nil
	}

	owners, args := placeholderList(ownerIDs, 1)
	names, nameArgs := placeholderList(feedNames, 1+len(args))
	args = append(args, nameArgs...)

	return r.queryInt64s(ctx,
		`SELECT id FROM feeds WHERE user_id IN (`+owners+`) AND name IN (`+names+`)`,
		args...,
	)
}

// ViewerFeedIDs resolves an in-my: alias for the viewer. Unknown aliases
// resolve to no feeds, which makes the condition match nothing.
func (r *Repository) ViewerFeedIDs(ctx context.Context, viewerID uuid.UUID, alias string) ([]int64, error) {
	switch alias {
	case "saves":
		return r.FeedIDs(ctx, []uuid.UUID{viewerID}, []string{domain.FeedSaves})
	case "directs":
		return r.FeedIDs(ctx, []uuid.UUID{viewerID}, []string{domain.FeedDirects})
	case "discussions":
		return r.FeedIDs(ctx, []uuid.UUID{viewerID},
			[]string{domain.FeedComments, domain.FeedLikes, domain.FeedSaves})
	case "friends":
		return r.queryInt64s(ctx, `
			SELECT s.feed_id FROM subscriptions s
			JOIN feeds f ON f.id = s.feed_id
			WHERE s.user_id = $1 AND f.name = $2`,
			viewerID, domain.FeedPosts,
		)
	}
	return nil, nil
}

// LoadContext fetches the viewer's visibility context: ban lists, visible
// private feeds, and the group feeds relevant to ban overrides. Resolved once
// per request and reused for every predicate.
func (r *Repository) LoadContext(ctx context.Context, viewerID uuid.UUID) (visibility.Ctx, error) {
	vc := visibility.Anonymous()
	if viewerID == uuid.Nil {
		return vc, nil
	}
	vc.ViewerID = viewerID

	banned, err := r.queryUUIDs(ctx,
		`SELECT banned_user_id FROM bans WHERE user_id = $1`, viewerID)
	if err != nil {
		return vc, fmt.Errorf("query bans by viewer: %w", err)
	}
	vc.BannedByViewer = openlist.Of(banned...)

	bannedBy, err := r.queryUUIDs(ctx,
		`SELECT user_id FROM bans WHERE banned_user_id = $1`, viewerID)
	if err != nil {
		return vc, fmt.Errorf("query bans of viewer: %w", err)
	}
	vc.BannedViewer = openlist.Of(bannedBy...)

	// subscriptions plus the viewer's own feeds; non-private ids in the set
	// are harmless because the check only applies to private posts
	visible, err := r.queryInt64s(ctx, `
		SELECT feed_id FROM subscriptions WHERE user_id = $1
		UNION
		SELECT id FROM feeds WHERE user_id = $1`,
		viewerID,
	)
	if err != nil {
		return vc, fmt.Errorf("query visible private feeds: %w", err)
	}
	vc.VisiblePrivateFeeds = openlist.Of(visible...)

	disabled, err := r.queryInt64s(ctx, `
		SELECT f.id FROM disabled_bans db
		JOIN feeds f ON f.user_id = db.group_id AND f.name = $1
		WHERE db.user_id = $2`,
		domain.FeedPosts, viewerID,
	)
	if err != nil {
		return vc, fmt.Errorf("query disabled-bans feeds: %w", err)
	}
	vc.DisabledBansFeeds = openlist.Of(disabled...)

	managed, err := r.queryInt64s(ctx, `
		SELECT f.id FROM group_admins ga
		JOIN feeds f ON f.user_id = ga.group_id AND f.name = $1
		WHERE ga.user_id = $2`,
		domain.FeedPosts, viewerID,
	)
	if err != nil {
		return vc, fmt.Errorf("query managed feeds: %w", err)
	}
	vc.ManagedFeeds = openlist.Of(managed...)

	return vc, nil
}

// SelectPostIDs runs one selection query, optionally through a materialized
// candidate set when the feed set is small enough for the pre-filter plan.
func (r *Repository) SelectPostIDs(ctx context.Context, sel timeline.Selection) ([]domain.TimedPostID, error) {
	orderCol := "posts.bumped_at"
	if sel.Sort == domain.SortCreated {
		orderCol = "posts.created_at"
	}

	var sb strings.Builder
	var args []any

	if len(sel.CandidateFeeds) > 0 {
		feeds, feedArgs := placeholderList(sel.CandidateFeeds, 1)
		args = append(args, feedArgs...)
		sb.WriteString(`WITH candidates AS (SELECT DISTINCT post_id FROM post_feeds WHERE feed_id IN (` + feeds + `)) `)
		sb.WriteString(`SELECT posts.uid, ` + orderCol + ` FROM posts JOIN candidates ON candidates.post_id = posts.uid`)
	} else {
		sb.WriteString(`SELECT posts.uid, ` + orderCol + ` FROM posts`)
	}

	where, whereArgs := filter.RenderAt(sel.Filter, len(args)+1)
	args = append(args, whereArgs...)
	sb.WriteString(` WHERE ` + where)

	sb.WriteString(fmt.Sprintf(` ORDER BY %s DESC, posts.uid DESC LIMIT $%d OFFSET $%d`,
		orderCol, len(args)+1, len(args)+2))
	args = append(args, sel.Limit, sel.Offset)

	return r.queryTimedIDs(ctx, sb.String(), args...)
}

// SelectLocalBumpIDs selects the viewer's locally bumped posts under the same
// predicate, ordered by bump time.
func (r *Repository) SelectLocalBumpIDs(ctx context.Context, viewerID uuid.UUID, sel timeline.Selection) ([]domain.TimedPostID, error) {
	where, whereArgs := filter.RenderAt(sel.Filter, 2)
	args := append([]any{viewerID}, whereArgs...)

	q := fmt.Sprintf(`
		SELECT posts.uid, local_bumps.created_at FROM posts
		JOIN local_bumps ON local_bumps.post_id = posts.uid AND local_bumps.user_id = $1
		WHERE %s
		ORDER BY local_bumps.created_at DESC, posts.uid DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, sel.Limit, sel.Offset)

	return r.queryTimedIDs(ctx, q, args...)
}

func (r *Repository) queryTimedIDs(ctx context.Context, q string, args ...any) ([]domain.TimedPostID, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query post ids: %w", err)
	}
	defer rows.Close()

	var out []domain.TimedPostID
	for rows.Next() {
		var row domain.TimedPostID
		if err := rows.Scan(&row.ID, &row.At); err != nil {
			return nil, fmt.Errorf("scan post id: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) queryInt64s(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) queryUUIDs(ctx context.Context, q string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// placeholderList renders $start..$start+n-1 and the matching argument slice.
func placeholderList[T any](items []T, start int) (string, []any) {
	parts := make([]string, len(items))
	args := make([]any, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("$%d", start+i)
		args[i] = it
	}
	return strings.Join(parts, ", "), args
}
