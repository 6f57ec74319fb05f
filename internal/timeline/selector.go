// Package timeline selects ordered pages of post ids for a viewer. It picks
// an execution strategy by feed-set size, applies pagination, and merges the
// viewer's local-bump ordering into the base chronological ordering.
package timeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/feedtide/feedtide/internal/domain"
	"github.com/feedtide/feedtide/internal/filter"
	"github.com/feedtide/feedtide/internal/visibility"
)

// Selection is one concrete selection query for the repository to execute.
type Selection struct {
	// Filter is the full post-level predicate.
	Filter filter.Node

	// CandidateFeeds, when set, asks the store to pre-filter through a
	// materialized candidate set of posts from these feeds before applying
	// Filter. Used for small feed sets where the planner tends to
	// misestimate highly selective predicates.
	CandidateFeeds []int64

	Sort   domain.SortOrder
	Limit  int
	Offset int
}

// Repository executes selection queries. It is the engine's only suspension
// point; cancellation rides on ctx and failures propagate to the caller
// without retries.
type Repository interface {
	// SelectPostIDs returns post ids with their ordering timestamp,
	// ordered by Sort descending.
	SelectPostIDs(ctx context.Context, sel Selection) ([]domain.TimedPostID, error)

	// SelectLocalBumpIDs returns posts the viewer has locally bumped,
	// filtered by sel.Filter and ordered by bump time descending.
	SelectLocalBumpIDs(ctx context.Context, viewerID uuid.UUID, sel Selection) ([]domain.TimedPostID, error)
}

// Options are the selector's execution-strategy knobs.
type Options struct {
	// SmallFeedThreshold is the largest source-feed set that still takes
	// the candidate-set plan.
	SmallFeedThreshold int

	// MaxOffsetWithBumps disables local-bump merging beyond this offset;
	// deep pages double the fetch cost for no visible benefit.
	MaxOffsetWithBumps int
}

// Selector chooses and runs the selection strategy.
type Selector struct {
	repo   Repository
	logger *slog.Logger
	opts   Options
}

// NewSelector returns a Selector over the given repository.
func NewSelector(repo Repository, logger *slog.Logger, opts Options) *Selector {
	if opts.SmallFeedThreshold <= 0 {
		opts.SmallFeedThreshold = 5
	}
	if opts.MaxOffsetWithBumps <= 0 {
		opts.MaxOffsetWithBumps = 1000
	}
	return &Selector{repo: repo, logger: logger, opts: opts}
}

// Request is one page selection.
type Request struct {
	// Filter is the combined search + visibility predicate.
	Filter filter.Node

	// SourceFeeds bound the query when known; nil means unbounded.
	SourceFeeds []int64

	// Wide forces the direct plan even for small feed sets.
	Wide bool

	// ViewerID enables local-bump merging when authenticated.
	ViewerID uuid.UUID

	Sort   domain.SortOrder
	Limit  int
	Offset int
}

// Select returns one ordered page of post ids.
func (s *Selector) Select(ctx context.Context, req Request) ([]uuid.UUID, error) {
	if req.Filter == filter.False {
		// the predicate folded to a constant: nothing can match, skip the
		// store roundtrip entirely
		return nil, nil
	}
	if req.Limit <= 0 || req.Offset < 0 {
		return nil, fmt.Errorf("timeline: invalid paging limit=%d offset=%d", req.Limit, req.Offset)
	}

	sel := Selection{
		Filter: req.Filter,
		Sort:   req.Sort,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if !req.Wide && len(req.SourceFeeds) > 0 && len(req.SourceFeeds) <= s.opts.SmallFeedThreshold {
		sel.CandidateFeeds = req.SourceFeeds
	}

	useBumps := req.ViewerID != uuid.Nil &&
		req.Sort == domain.SortBumped &&
		req.Offset < s.opts.MaxOffsetWithBumps
	if !useBumps {
		rows, err := s.repo.SelectPostIDs(ctx, sel)
		if err != nil {
			return nil, fmt.Errorf("select posts: %w", err)
		}
		return ids(rows), nil
	}
	return s.selectWithLocalBumps(ctx, req, sel)
}

// SelectVisible applies the viewer's visibility predicate to an arbitrary
// caller predicate and selects a page. It is the entry point for timelines
// that already know their predicate and need no query planning.
func (s *Selector) SelectVisible(ctx context.Context, pred filter.Node, vc visibility.Ctx, sort domain.SortOrder, paging domain.Paging) ([]uuid.UUID, error) {
	return s.Select(ctx, Request{
		Filter:   filter.And(pred, visibility.PostFilter(vc)),
		ViewerID: vc.ViewerID,
		Sort:     sort,
		Limit:    paging.Limit,
		Offset:   paging.Offset,
	})
}

// selectWithLocalBumps fetches limit+offset candidates from the standard and
// the bump orderings and merges them. The two queries observe independent
// snapshots; read skew between them is an accepted approximation.
func (s *Selector) selectWithLocalBumps(ctx context.Context, req Request, sel Selection) ([]uuid.UUID, error) {
	head := sel
	head.Limit = req.Limit + req.Offset
	head.Offset = 0

	var standard, bumped []domain.TimedPostID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		standard, err = s.repo.SelectPostIDs(gctx, head)
		return err
	})
	g.Go(func() error {
		var err error
		bumped, err = s.repo.SelectLocalBumpIDs(gctx, req.ViewerID, head)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("select posts with local bumps: %w", err)
	}

	merged := mergeTimed(bumped, standard)
	s.logger.Debug("merged local bumps",
		"standard", len(standard),
		"bumped", len(bumped),
		"merged", len(merged),
	)
	return ids(window(merged, req.Offset, req.Limit)), nil
}

// mergeTimed merges two date-descending streams into one, keeping each
// stream's relative order, preferring a on ties, and dropping every second
// occurrence of a post id.
func mergeTimed(a, b []domain.TimedPostID) []domain.TimedPostID {
	out := make([]domain.TimedPostID, 0, len(a)+len(b))
	seen := make(map[uuid.UUID]struct{}, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var next domain.TimedPostID
		if j >= len(b) || (i < len(a) && !a[i].At.Before(b[j].At)) {
			next = a[i]
			i++
		} else {
			next = b[j]
			j++
		}
		if _, dup := seen[next.ID]; dup {
			continue
		}
		seen[next.ID] = struct{}{}
		out = append(out, next)
	}
	return out
}

func window(rows []domain.TimedPostID, offset, limit int) []domain.TimedPostID {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func ids(rows []domain.TimedPostID) []uuid.UUID {
	out := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
