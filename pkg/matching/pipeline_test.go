package matching_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treematch/pkg/matching"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

// ifTrees returns
//
//	Block(If(Cond(Name[x]), Call[f](Arg[1], Arg[2]), Lit[1]), Return(Name[x]))
//	Block(Return(Name[x]), If(Cond(Name[x]), Call[f](Arg[1], Arg[2]), Lit[2]))
func ifTrees() (*tree.Tree, *tree.Tree) {
	ifNode := func(lit string) *tree.Tree {
		return tree.New("If", "",
			tree.New("Cond", "", tree.New("Name", "x")),
			tree.New("Call", "f", tree.New("Arg", "1"), tree.New("Arg", "2")),
			tree.New("Lit", lit),
		)
	}

	returnNode := func() *tree.Tree {
		return tree.New("Return", "", tree.New("Name", "x"))
	}

	return tree.New("Block", "", ifNode("1"), returnNode()),
		tree.New("Block", "", returnNode(), ifNode("2"))
}

func TestGreedySubtreeMatcher_UniqueSubtreesOnly(t *testing.T) {
	t.Parallel()

	pair := func(a, b string) []*tree.Tree { return []*tree.Tree{tree.New("N", a), tree.New("N", b)} }

	src := tree.New("Root", "", tree.New("K", "", pair("x", "y")...), tree.New("L", "", pair("z", "w")...))
	dst := tree.New("Root", "",
		tree.New("L", "", pair("z", "w")...),
		tree.New("K", "", pair("x", "y")...),
		tree.New("K", "", pair("x", "y")...),
	)

	store := matching.NewMappingStore()
	added := matching.NewGreedySubtreeMatcher(src, dst, store).Match(context.Background())

	assert.Equal(t, 3, added)
	assert.Same(t, dst.Child(0), store.Dst(src.Child(1)))
	assert.False(t, store.IsSrcMapped(src.Child(0)))
	assert.False(t, store.IsSrcMapped(src))

	high := matching.NewMappingStore()
	assert.Zero(t, matching.NewGreedySubtreeMatcher(src, dst, high, matching.WithMinHeight(3)).Match(context.Background()))
}

func TestGreedySubtreeMatcher_IdenticalTrees(t *testing.T) {
	t.Parallel()

	src := tree.New("Root", "",
		tree.New("P", "", tree.New("K", "", tree.New("N", "x"), tree.New("N", "y")), tree.New("N", "q")))
	dst := src.Clone()

	store := matching.NewMappingStore()
	added := matching.NewGreedySubtreeMatcher(src, dst, store).Match(context.Background())

	assert.Equal(t, src.Size(), added)

	for idx, node := range src.PreOrder() {
		assert.Same(t, dst.PreOrder()[idx], store.Dst(node))
	}
}

func TestGreedySubtreeMatcher_SkipsSubtreesOverlappingSeed(t *testing.T) {
	t.Parallel()

	// Root(P(Q(N[a]), N[b]), Z) and Root(P(Q(N[a]), N[b]), W(N[b])), with the
	// inner N[b] of the source seeded onto the N[b] under W.
	src := tree.New("Root", "",
		tree.New("P", "", tree.New("Q", "", tree.New("N", "a")), tree.New("N", "b")),
		tree.New("Z", ""))
	dst := tree.New("Root", "",
		tree.New("P", "", tree.New("Q", "", tree.New("N", "a")), tree.New("N", "b")),
		tree.New("W", "", tree.New("N", "b")))

	srcP, dstP := src.Child(0), dst.Child(0)

	store := matching.NewMappingStore()
	require.NoError(t, store.Add(srcP.Child(1), dst.Child(1).Child(0)))

	added := matching.NewGreedySubtreeMatcher(src, dst, store).Match(context.Background())

	assert.Equal(t, 2, added)
	assert.Equal(t, 3, store.Len())
	assert.False(t, store.IsSrcMapped(srcP))
	assert.False(t, store.IsDstMapped(dstP))
	assert.False(t, store.IsDstMapped(dstP.Child(1)))
	assert.Same(t, dstP.Child(0), store.Dst(srcP.Child(0)))
	assert.Same(t, dstP.Child(0).Child(0), store.Dst(srcP.Child(0).Child(0)))
	assertMappingInvariants(t, store)
}

func TestPipeline_DefaultPolicy(t *testing.T) {
	t.Parallel()

	src, dst := ifTrees()

	store, stats := matching.NewPipeline().Match(context.Background(), src, dst, nil)

	assert.Equal(t, 7, stats.TopDown)
	assert.Equal(t, 1, stats.BottomUp.Mappings())
	assert.Equal(t, 1, stats.BottomUp.Candidates)
	assert.Equal(t, 8, stats.Total())
	assert.Equal(t, store.Len(), stats.Total())

	// Both If nodes sit at depth 1, so the tie leaves them unmatched.
	assert.False(t, store.IsSrcMapped(src.Child(0)))
	assert.True(t, store.Has(src, dst))
	assertMappingInvariants(t, store)
}

func TestPipeline_StopNodePolicy(t *testing.T) {
	t.Parallel()

	src, dst := ifTrees()

	store, stats := matching.NewPipeline(matching.WithDepthTiePolicy(matching.DepthTieStopNode)).
		Match(context.Background(), src, dst, nil)

	assert.Equal(t, 9, stats.Total())
	assert.Same(t, dst.Child(1), store.Dst(src.Child(0)))
	assert.False(t, store.IsSrcMapped(src.Child(0).Child(2)))
	assertMappingInvariants(t, store)
}

func TestPipeline_SeededStore(t *testing.T) {
	t.Parallel()

	src, dst := ifTrees()

	seed := matching.NewMappingStore()
	require.NoError(t, seed.Add(src, dst))

	store, stats := matching.NewPipeline().Match(context.Background(), src, dst, seed)

	assert.Same(t, seed, store)
	assert.Equal(t, 1, stats.Seeded)
	assert.Zero(t, stats.BottomUp.ContainerMappings)
	assert.Equal(t, store.Len(), stats.Total())
}

func TestPipeline_SizeThreshold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, matching.DefaultSizeThreshold, matching.NewPipeline().SizeThreshold())
	assert.Equal(t, 50, matching.NewPipeline(matching.WithSizeThreshold(50)).SizeThreshold())
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	src, dst := ifTrees()
	store, _ := matching.NewPipeline().Match(context.Background(), src, dst, nil)

	summary := matching.Summarize(store, src, dst)

	assert.Equal(t, 8, summary.Mappings)
	assert.Equal(t, matching.SideSummary{Nodes: 10, Mapped: 8, Unmapped: 2}, summary.Src)
	assert.Equal(t, matching.SideSummary{Nodes: 10, Mapped: 8, Unmapped: 2}, summary.Dst)
	assert.InDelta(t, 0.8, summary.Src.Ratio(), 1e-9)
	assert.Zero(t, summary.Renamed)
}

func TestSummarize_CountsRenames(t *testing.T) {
	t.Parallel()

	src := tree.New("A", "", tree.New("N", "x"))
	dst := tree.New("A", "", tree.New("N", "y"))

	store := matching.NewMappingStore()
	require.NoError(t, store.Add(src, dst))
	require.NoError(t, store.Add(src.Child(0), dst.Child(0)))

	summary := matching.Summarize(store, src, dst)

	assert.Equal(t, 1, summary.Renamed)
	assert.Zero(t, matching.SideSummary{}.Ratio())
}
