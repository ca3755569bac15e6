package matching

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/treematch/pkg/observability"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

const (
	tracerName     = "treematch/matching"
	spanBottomUp   = "treematch.bottomup.match"
	stageBottomUp  = "bottomup"
	attrSrcSize    = "src.size"
	attrDstSize    = "dst.size"
	attrEarlyExit  = "early_exit"
	attrMappings   = "mappings.added"
	attrCandidates = "candidates.evaluated"
)

// Side selects the source or the destination tree.
type Side int

// Tree sides.
const (
	SideSrc Side = iota
	SideDst
)

// Stats summarizes one matching pass.
type Stats struct {
	// Visited counts non-root source nodes the pass reached.
	Visited int
	// Candidates counts (source, candidate) similarity evaluations.
	Candidates int
	// ContainerMappings counts pairs chosen by similarity or the root rule.
	ContainerMappings int
	// AlignedMappings counts child pairs added by the last-chance match.
	AlignedMappings int
	// EarlyExit is set when a depth tie ended the pass before the root.
	EarlyExit bool
}

// Mappings returns the total number of mappings the pass added.
func (s Stats) Mappings() int {
	return s.ContainerMappings + s.AlignedMappings
}

// SimpleBottomUpMatcher extends an existing mapping from matched descendants
// to their unmatched ancestors, then aligns the children of every new pair.
//
// The matcher reads and appends to the shared store but keeps its own
// record of matched nodes, seeded from the store at construction.
// It is not safe for concurrent use.
type SimpleBottomUpMatcher struct {
	src   *tree.Tree
	dst   *tree.Tree
	store *MappingStore

	mappedSrc *TreeMap
	mappedDst *TreeMap

	opts  Options
	stats Stats
}

// NewSimpleBottomUpMatcher creates a matcher over src and dst. Every node
// already mapped in store is marked as matched on its side; descendants of
// mapped nodes are not.
func NewSimpleBottomUpMatcher(src, dst *tree.Tree, store *MappingStore, opts ...Option) *SimpleBottomUpMatcher {
	matcher := &SimpleBottomUpMatcher{
		src:       src,
		dst:       dst,
		store:     store,
		mappedSrc: NewTreeMap(nil),
		mappedDst: NewTreeMap(nil),
		opts:      buildOptions(opts),
	}

	for _, mapping := range store.Mappings() {
		matcher.mappedSrc.Put(mapping.Src)
		matcher.mappedDst.Put(mapping.Dst)
	}

	return matcher
}

// Store returns the mapping store the matcher appends to.
func (m *SimpleBottomUpMatcher) Store() *MappingStore {
	return m.store
}

// SimilarityThreshold returns the configured similarity threshold.
func (m *SimpleBottomUpMatcher) SimilarityThreshold() float64 {
	return m.opts.SimilarityThreshold
}

// SizeThreshold returns the configured exact-matcher size threshold.
func (m *SimpleBottomUpMatcher) SizeThreshold() int {
	return m.opts.SizeThreshold
}

// IsSrcMatched reports whether node is marked as matched on the source side.
func (m *SimpleBottomUpMatcher) IsSrcMatched(node *tree.Tree) bool {
	return m.mappedSrc.Contains(node)
}

// IsDstMatched reports whether node is marked as matched on the destination side.
func (m *SimpleBottomUpMatcher) IsDstMatched(node *tree.Tree) bool {
	return m.mappedDst.Contains(node)
}

// IsMappingAllowed reports whether src and dst may be paired by this matcher.
func (m *SimpleBottomUpMatcher) IsMappingAllowed(src, dst *tree.Tree) bool {
	return IsMappingAllowed(src, dst, m.mappedSrc, m.mappedDst)
}

// IsMappingAllowed reports whether src and dst share a type label and
// neither is marked in its side's index.
func IsMappingAllowed(src, dst *tree.Tree, mappedSrc, mappedDst *TreeMap) bool {
	return src.HasSameType(dst) && !mappedSrc.Contains(src) && !mappedDst.Contains(dst)
}

// Match runs the bottom-up pass over the source tree in post-order and
// returns what it added to the store.
func (m *SimpleBottomUpMatcher) Match(ctx context.Context) Stats {
	started := time.Now()

	ctx, span := m.opts.Tracer.Start(ctx, spanBottomUp, trace.WithAttributes(
		attribute.Int(attrSrcSize, m.src.Size()),
		attribute.Int(attrDstSize, m.dst.Size()),
	))
	defer span.End()

	m.stats = Stats{}
	rootReached := false

	m.src.VisitPostOrder(func(node *tree.Tree) bool {
		if node == m.src {
			rootReached = true

			return false
		}

		m.stats.Visited++

		if m.mappedSrc.Contains(node) || node.IsLeaf() {
			return true
		}

		return m.matchContainer(ctx, node)
	})

	if !rootReached {
		m.stats.EarlyExit = true
	}

	m.matchRoots(ctx)

	span.SetAttributes(
		attribute.Bool(attrEarlyExit, m.stats.EarlyExit),
		attribute.Int(attrMappings, m.stats.Mappings()),
		attribute.Int(attrCandidates, m.stats.Candidates),
	)

	m.opts.Metrics.RecordMatch(ctx, observability.MatchStats{
		Stage:      stageBottomUp,
		Mappings:   int64(m.stats.Mappings()),
		Candidates: int64(m.stats.Candidates),
		EarlyExit:  m.stats.EarlyExit,
		Duration:   time.Since(started),
	})

	return m.stats
}

// matchContainer searches a counterpart for an unmatched internal node.
// It returns false when the pass must stop early.
func (m *SimpleBottomUpMatcher) matchContainer(ctx context.Context, node *tree.Tree) bool {
	var best *tree.Tree

	maxSim := -1.0

	for _, candidate := range m.DstCandidates(node) {
		m.stats.Candidates++

		sim := m.opts.Similarity(node, candidate, m.store)
		if sim <= maxSim || sim < m.opts.SimilarityThreshold {
			continue
		}

		if node.Depth() == candidate.Depth() {
			return m.resolveDepthTie(ctx, node, best, candidate)
		}

		maxSim = sim
		best = candidate
	}

	if best != nil {
		m.commit(ctx, node, best)
	}

	return true
}

// resolveDepthTie applies the depth tie policy to node, given the best
// candidate found before the tied one.
func (m *SimpleBottomUpMatcher) resolveDepthTie(ctx context.Context, node, prior, tied *tree.Tree) bool {
	if m.opts.DepthTiePolicy == DepthTieStopNode {
		m.commit(ctx, node, tied)

		return true
	}

	if prior == nil {
		m.opts.Logger.DebugContext(ctx, "depth tie without prior candidate, node left unmatched",
			slog.String("type", node.Type.String()),
			slog.Int("depth", node.Depth()))

		return true
	}

	m.commit(ctx, node, prior)

	m.opts.Logger.DebugContext(ctx, "depth tie, stopping bottom-up pass",
		slog.String("type", node.Type.String()),
		slog.Int("depth", node.Depth()))

	return false
}

// matchRoots pairs the two roots and aligns their children.
func (m *SimpleBottomUpMatcher) matchRoots(ctx context.Context) {
	if !m.mappedSrc.Contains(m.src) && !m.mappedDst.Contains(m.dst) {
		if m.addMapping(ctx, m.src, m.dst) {
			m.stats.ContainerMappings++
		}
	}

	m.lastChanceMatch(ctx, m.src, m.dst)
}

// commit aligns the children of a confirmed pair and records the pair.
func (m *SimpleBottomUpMatcher) commit(ctx context.Context, src, dst *tree.Tree) {
	m.lastChanceMatch(ctx, src, dst)

	if m.addMapping(ctx, src, dst) {
		m.stats.ContainerMappings++

		m.opts.Logger.DebugContext(ctx, "container mapped",
			slog.String("type", src.Type.String()),
			slog.Int("src_depth", src.Depth()),
			slog.Int("dst_depth", dst.Depth()))
	}
}

// DstCandidates returns the destination nodes that may match src: unmatched
// ancestors, of src's type, of the counterparts of src's mapped descendants.
// The destination root is never a candidate and no node is listed twice.
func (m *SimpleBottomUpMatcher) DstCandidates(src *tree.Tree) []*tree.Tree {
	var seeds []*tree.Tree

	for _, desc := range src.Descendants() {
		if mapped := m.store.Dst(desc); mapped != nil {
			seeds = append(seeds, mapped)
		}
	}

	var candidates []*tree.Tree

	visited := NewTreeMap(nil)

	for _, seed := range seeds {
		for current := seed; current != m.dst && current.Parent() != nil; {
			parent := current.Parent()
			if visited.Contains(parent) {
				break
			}

			visited.Put(parent)

			if parent.HasSameType(src) && !m.mappedDst.Contains(parent) && parent != m.dst && !parent.IsRoot() {
				candidates = append(candidates, parent)
			}

			current = parent
		}
	}

	return candidates
}

// LastChanceMatch aligns the children of src and dst and maps every aligned
// pair whose nodes are both still unmatched. A nil node is a no-op.
func (m *SimpleBottomUpMatcher) LastChanceMatch(src, dst *tree.Tree) {
	m.lastChanceMatch(context.Background(), src, dst)
}

func (m *SimpleBottomUpMatcher) lastChanceMatch(ctx context.Context, src, dst *tree.Tree) {
	if src == nil || dst == nil {
		return
	}

	srcChildren, dstChildren := src.Children(), dst.Children()

	for _, pair := range m.opts.Aligner.Align(srcChildren, dstChildren) {
		left, right := srcChildren[pair.Src], dstChildren[pair.Dst]

		if m.mappedSrc.Contains(left) || m.mappedDst.Contains(right) {
			continue
		}

		if m.addMapping(ctx, left, right) {
			m.stats.AlignedMappings++
		}
	}
}

// addMapping records (src, dst) in the store and marks both nodes.
func (m *SimpleBottomUpMatcher) addMapping(ctx context.Context, src, dst *tree.Tree) bool {
	err := m.store.Add(src, dst)
	if err != nil {
		m.opts.Logger.WarnContext(ctx, "mapping rejected", slog.Any("error", err))

		return false
	}

	m.mappedSrc.Put(src)
	m.mappedDst.Put(dst)

	return true
}

// RemoveMatched detaches every node of root that is marked on the given side
// from its parent, then refreshes the metrics of root. It must not run
// while root is being traversed.
func (m *SimpleBottomUpMatcher) RemoveMatched(root *tree.Tree, side Side) *tree.Tree {
	marked := m.mappedSrc
	if side == SideDst {
		marked = m.mappedDst
	}

	for _, node := range root.PreOrder() {
		if !marked.Contains(node) {
			continue
		}

		if parent := node.Parent(); parent != nil {
			parent.RemoveChild(node)
		}

		node.SetParent(nil)
	}

	root.Refresh()

	return root
}
