package matching

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/treematch/pkg/observability"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

const (
	spanGreedy  = "treematch.greedy.match"
	stageGreedy = "greedy"
)

// GreedySubtreeMatcher maps isomorphic subtrees that occur exactly once in
// each tree. Larger subtrees are considered first and every node of a
// matched pair of subtrees is mapped.
type GreedySubtreeMatcher struct {
	src   *tree.Tree
	dst   *tree.Tree
	store *MappingStore
	opts  Options
}

// NewGreedySubtreeMatcher creates a top-down matcher over src and dst that
// appends to store.
func NewGreedySubtreeMatcher(src, dst *tree.Tree, store *MappingStore, opts ...Option) *GreedySubtreeMatcher {
	return &GreedySubtreeMatcher{src: src, dst: dst, store: store, opts: buildOptions(opts)}
}

type hashGroup struct {
	height int
	order  int
	src    []*tree.Tree
	dst    []*tree.Tree
}

// Match maps unique isomorphic subtrees of height at least MinHeight and
// returns the number of mappings added.
func (g *GreedySubtreeMatcher) Match(ctx context.Context) int {
	started := time.Now()

	ctx, span := g.opts.Tracer.Start(ctx, spanGreedy, trace.WithAttributes(
		attribute.Int(attrSrcSize, g.src.Size()),
		attribute.Int(attrDstSize, g.dst.Size()),
	))
	defer span.End()

	groups := make(map[uint64]*hashGroup)

	collect := func(root *tree.Tree, side Side) {
		root.VisitPreOrder(func(node *tree.Tree) {
			if node.Height() < g.opts.MinHeight {
				return
			}

			group, ok := groups[node.Hash()]
			if !ok {
				group = &hashGroup{height: node.Height(), order: len(groups)}
				groups[node.Hash()] = group
			}

			if side == SideSrc {
				group.src = append(group.src, node)
			} else {
				group.dst = append(group.dst, node)
			}
		})
	}

	collect(g.src, SideSrc)
	collect(g.dst, SideDst)

	unique := make([]*hashGroup, 0, len(groups))

	for _, group := range groups {
		if len(group.src) == 1 && len(group.dst) == 1 {
			unique = append(unique, group)
		}
	}

	// First-seen order breaks height ties so runs are reproducible.
	slices.SortFunc(unique, func(a, b *hashGroup) int {
		if c := cmp.Compare(b.height, a.height); c != 0 {
			return c
		}

		return cmp.Compare(a.order, b.order)
	})

	before := g.store.Len()
	candidates := 0

	for _, group := range unique {
		left, right := group.src[0], group.dst[0]
		candidates++

		if g.store.IsSrcMapped(left) || g.store.IsDstMapped(right) || !left.IsIsomorphicTo(right) {
			continue
		}

		// A seeded store may already map nodes inside either subtree.
		err := g.store.AddRecursive(left, right)
		if err != nil {
			g.opts.Logger.DebugContext(ctx, "subtree mapping skipped",
				slog.String("type", left.Type.String()),
				slog.Any("error", err))

			continue
		}
	}

	added := g.store.Len() - before

	span.SetAttributes(attribute.Int(attrMappings, added))

	g.opts.Metrics.RecordMatch(ctx, observability.MatchStats{
		Stage:      stageGreedy,
		Mappings:   int64(added),
		Candidates: int64(candidates),
		Duration:   time.Since(started),
	})

	g.opts.Logger.DebugContext(ctx, "greedy subtree matching done",
		slog.Int("unique_subtrees", len(unique)),
		slog.Int("mappings", added))

	return added
}
