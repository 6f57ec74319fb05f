// Package search turns parsed queries into relational predicates and runs
// them through the timeline selector. Name resolution, visibility context and
// post selection are injected as interfaces; the engine itself holds no
// mutable state and is safe for concurrent use.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/feedtide/feedtide/internal/domain"
	"github.com/feedtide/feedtide/internal/filter"
	"github.com/feedtide/feedtide/internal/openlist"
	"github.com/feedtide/feedtide/internal/query"
	"github.com/feedtide/feedtide/internal/timeline"
	"github.com/feedtide/feedtide/internal/visibility"
)

// Resolver resolves the names a query mentions into store identifiers. All
// lookups are batch-shaped; unknown names are simply absent from the result.
type Resolver interface {
	// AccountIDs maps lowercase usernames and group names to account ids.
	AccountIDs(ctx context.Context, names []string) (map[string]uuid.UUID, error)

	// FeedIDs returns the integer ids of the named feeds owned by the
	// given accounts.
	FeedIDs(ctx context.Context, ownerIDs []uuid.UUID, feedNames []string) ([]int64, error)

	// ViewerFeedIDs resolves an in-my: alias (saves, directs, discussions,
	// friends) to feed ids for the authenticated viewer. Unknown aliases
	// resolve to no feeds.
	ViewerFeedIDs(ctx context.Context, viewerID uuid.UUID, alias string) ([]int64, error)
}

// AuthError reports a query that needs an authenticated viewer (in-my: or a
// me reference) but was made anonymously. It is raised before any store
// access.
type AuthError struct {
	Ref string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("search: %s requires an authenticated user", e.Ref)
}

// ComplexityError reports a query over the complexity budget. It is raised
// before any predicate is built.
type ComplexityError struct {
	Cost float64
	Max  float64
}

func (e *ComplexityError) Error() string {
	return fmt.Sprintf("search: query is too complex (%.1f > %.1f)", e.Cost, e.Max)
}

// Options are the tuning parameters of the engine. They are store-specific
// knobs, injected rather than hard-coded.
type Options struct {
	// MaxComplexity is the complexity budget a query may not exceed.
	MaxComplexity float64

	// MinPrefixLength is the shortest accepted wildcard prefix.
	MinPrefixLength int

	// SmallFeedThreshold is the largest inclusive feed set still considered
	// bounded by the wide-select heuristic.
	SmallFeedThreshold int
}

// Engine is the search front door: parse, price, build, select.
type Engine struct {
	resolver Resolver
	contexts visibility.ContextLoader
	selector *timeline.Selector
	parser   *query.Parser
	logger   *slog.Logger
	opts     Options
}

// NewEngine wires a search engine from its collaborators.
func NewEngine(resolver Resolver, contexts visibility.ContextLoader, selector *timeline.Selector, logger *slog.Logger, opts Options) *Engine {
	if opts.MaxComplexity <= 0 {
		opts.MaxComplexity = 30
	}
	if opts.SmallFeedThreshold <= 0 {
		opts.SmallFeedThreshold = 5
	}
	return &Engine{
		resolver: resolver,
		contexts: contexts,
		selector: selector,
		parser:   query.NewParser(opts.MinPrefixLength),
		logger:   logger,
		opts:     opts,
	}
}

// Params bound one search request.
type Params struct {
	// ViewerID is the authenticated viewer, uuid.Nil for anonymous.
	ViewerID uuid.UUID
	Sort     domain.SortOrder
	Limit    int
	Offset   int
}

// Search runs a raw query string and returns the ordered page of matching
// post ids. Syntax and policy failures surface before any store access; store
// errors propagate unchanged.
func (e *Engine) Search(ctx context.Context, raw string, p Params) ([]uuid.UUID, error) {
	tokens, err := e.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	if cost := query.Complexity(tokens); cost > e.opts.MaxComplexity {
		return nil, &ComplexityError{Cost: cost, Max: e.opts.MaxComplexity}
	}

	if err := checkPolicy(tokens, p.ViewerID); err != nil {
		return nil, err
	}

	vc, err := e.contexts.LoadContext(ctx, p.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("load visibility context: %w", err)
	}

	filters, err := e.BuildFilters(ctx, tokens, p.ViewerID, visibility.CommentFilter(vc))
	if err != nil {
		return nil, err
	}

	sort := p.Sort
	if sort == "" {
		sort = domain.SortBumped
	}

	node := filter.And(filters.Node, visibility.PostFilter(vc))
	e.logger.Debug("search filters built",
		"viewer", p.ViewerID,
		"wide", filters.Wide,
		"source_feeds", len(filters.SourceFeeds),
	)

	return e.selector.Select(ctx, timeline.Request{
		Filter:      node,
		SourceFeeds: filters.SourceFeeds,
		Wide:        filters.Wide,
		ViewerID:    p.ViewerID,
		Sort:        sort,
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
}

// FeedPosts returns one ordered page of the posts destined to a feed, as
// seen by the viewer. The feed timeline is a degenerate search: a single
// bounded feed condition with no text.
func (e *Engine) FeedPosts(ctx context.Context, feedID int64, p Params) ([]uuid.UUID, error) {
	vc, err := e.contexts.LoadContext(ctx, p.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("load visibility context: %w", err)
	}

	sort := p.Sort
	if sort == "" {
		sort = domain.SortBumped
	}

	pred := filter.PostedTo("posts.uid", openlist.Of(feedID))
	return e.selector.Select(ctx, timeline.Request{
		Filter:      filter.And(pred, visibility.PostFilter(vc)),
		SourceFeeds: []int64{feedID},
		ViewerID:    p.ViewerID,
		Sort:        sort,
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
}

// checkPolicy rejects queries that reference the viewer when there is none.
// It runs before any resolver or store call so policy failures are free.
func checkPolicy(tokens []query.Token, viewerID uuid.UUID) error {
	if viewerID != uuid.Nil {
		return nil
	}
	for _, tok := range tokens {
		cond, ok := tok.(query.Condition)
		if !ok {
			continue
		}
		if cond.Name == "in-my" {
			return &AuthError{Ref: "in-my:"}
		}
		for _, arg := range cond.Args {
			if arg == "me" {
				return &AuthError{Ref: "me"}
			}
		}
	}
	return nil
}
