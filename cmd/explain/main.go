// Command explain parses a search query and prints what the engine would do
// with it: the token tree, the complexity cost, the execution strategy and
// the rendered SQL. Names are resolved to synthetic ids, so no database is
// needed.
package main

import (
	"context"
	"flag"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/feedtide/feedtide/internal/filter"
	"github.com/feedtide/feedtide/internal/query"
	"github.com/feedtide/feedtide/internal/search"
	"github.com/feedtide/feedtide/internal/timeline"
	"github.com/feedtide/feedtide/internal/visibility"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		viewer        string
		minPrefix     int
		maxComplexity float64
		feedThreshold int
	)

	flag.StringVar(&viewer, "viewer", "", "Viewer UUID (empty for anonymous)")
	flag.IntVar(&minPrefix, "min-prefix", 2, "Minimum wildcard prefix length")
	flag.Float64Var(&maxComplexity, "max-complexity", 30, "Complexity budget")
	flag.IntVar(&feedThreshold, "feed-threshold", 5, "Largest feed set still using the candidate plan")
	flag.Parse()

	raw := strings.Join(flag.Args(), " ")
	if raw == "" {
		return fmt.Errorf("usage: explain [flags] <query>")
	}

	viewerID := uuid.Nil
	if viewer != "" {
		var err error
		viewerID, err = uuid.Parse(viewer)
		if err != nil {
			return fmt.Errorf("invalid --viewer: %w", err)
		}
	}

	tokens, err := query.NewParser(minPrefix).Parse(raw)
	if err != nil {
		return err
	}

	fmt.Printf("query: %q\n\ntokens:\n", raw)
	for _, tok := range tokens {
		dumpToken(tok, "  ")
	}

	cost := query.Complexity(tokens)
	fmt.Printf("\ncomplexity: %.1f (budget %.1f)\n", cost, maxComplexity)
	if cost > maxComplexity {
		fmt.Println("verdict: rejected, over budget")
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	engine := search.NewEngine(
		staticResolver{},
		staticContexts{},
		timeline.NewSelector(nil, logger, timeline.Options{SmallFeedThreshold: feedThreshold}),
		logger,
		search.Options{
			MaxComplexity:      maxComplexity,
			MinPrefixLength:    minPrefix,
			SmallFeedThreshold: feedThreshold,
		},
	)

	vc := visibility.Anonymous()
	vc.ViewerID = viewerID

	filters, err := engine.BuildFilters(context.Background(), tokens, viewerID, visibility.CommentFilter(vc))
	if err != nil {
		return err
	}

	switch {
	case filters.Node == filter.False:
		fmt.Println("\nstrategy: constant false, no store roundtrip")
		return nil
	case !filters.Wide && len(filters.SourceFeeds) > 0 && len(filters.SourceFeeds) <= feedThreshold:
		fmt.Printf("\nstrategy: candidate set over feeds %v\n", filters.SourceFeeds)
	default:
		fmt.Println("\nstrategy: direct scan")
	}

	node := filter.And(filters.Node, visibility.PostFilter(vc))
	sql, args := filter.Render(node)
	fmt.Printf("\nwhere:\n  %s\n\nargs:\n", sql)
	for i, arg := range args {
		fmt.Printf("  $%d = %v\n", i+1, arg)
	}

	return nil
}

func dumpToken(tok query.Token, indent string) {
	switch t := tok.(type) {
	case query.ScopeStart:
		fmt.Printf("%sscope %s\n", indent, scopeName(t.Scope))
	case query.Condition:
		fmt.Printf("%scondition %s%s(%s)\n", indent, excl(t.Exclude), t.Name, strings.Join(t.Args, ", "))
	case query.InScope:
		fmt.Printf("%sin-scope %s\n", indent, scopeName(t.Scope))
		dumpToken(t.Text, indent+"  ")
	case query.SeqTexts:
		fmt.Printf("%ssequence\n", indent)
		for _, child := range t.Children {
			dumpToken(child, indent+"  ")
		}
	case query.AnyText:
		fmt.Printf("%sany-of\n", indent)
		for _, child := range t.Children {
			dumpToken(child, indent+"  ")
		}
	case query.Text:
		kind := "term"
		if t.Phrase {
			kind = "phrase"
		} else if t.Prefix {
			kind = "prefix"
		}
		fmt.Printf("%s%s %s%q\n", indent, kind, excl(t.Exclude), t.Text)
	default:
		fmt.Printf("%s%#v\n", indent, tok)
	}
}

func excl(exclude bool) string {
	if exclude {
		return "-"
	}
	return ""
}

func scopeName(s query.Scope) string {
	switch s {
	case query.ScopePosts:
		return "posts"
	case query.ScopeComments:
		return "comments"
	default:
		return "all"
	}
}

// staticResolver resolves every name deterministically without a store, so
// rendered placeholders are stable across runs.
type staticResolver struct{}

func (staticResolver) AccountIDs(_ context.Context, names []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(names))
	for _, name := range names {
		out[name] = uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	}
	return out, nil
}

func (staticResolver) FeedIDs(_ context.Context, ownerIDs []uuid.UUID, feedNames []string) ([]int64, error) {
	var out []int64
	for _, owner := range ownerIDs {
		for _, name := range feedNames {
			out = append(out, syntheticFeedID(owner.String()+"/"+name))
		}
	}
	return out, nil
}

func (staticResolver) ViewerFeedIDs(_ context.Context, viewerID uuid.UUID, alias string) ([]int64, error) {
	return []int64{syntheticFeedID(viewerID.String() + "/" + alias)}, nil
}

func syntheticFeedID(key string) int64 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int64(h.Sum32())
}

// staticContexts satisfies the engine's context loader; explain builds its
// own context and never searches, so this is never called.
type staticContexts struct{}

func (staticContexts) LoadContext(_ context.Context, viewerID uuid.UUID) (visibility.Ctx, error) {
	vc := visibility.Anonymous()
	vc.ViewerID = viewerID
	return vc, nil
}
