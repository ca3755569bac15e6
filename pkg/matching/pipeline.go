package matching

import (
	"context"
	"log/slog"

	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

// PipelineStats reports what each stage of a pipeline run added.
type PipelineStats struct {
	// Seeded is the number of mappings present before the run.
	Seeded int
	// TopDown is the number of mappings added by the greedy subtree stage.
	TopDown int
	// BottomUp holds the bottom-up stage statistics.
	BottomUp Stats
}

// Total returns the number of mappings in the store after the run.
func (s PipelineStats) Total() int {
	return s.Seeded + s.TopDown + s.BottomUp.Mappings()
}

// Pipeline runs the greedy subtree matcher and then the bottom-up matcher
// over one mapping store.
type Pipeline struct {
	opts    []Option
	options Options
}

// NewPipeline creates a pipeline whose stages share opts.
func NewPipeline(opts ...Option) *Pipeline {
	return &Pipeline{opts: opts, options: buildOptions(opts)}
}

// SizeThreshold returns the configured exact-matcher size threshold.
func (p *Pipeline) SizeThreshold() int {
	return p.options.SizeThreshold
}

// Match extends store with mappings between src and dst. A nil store starts
// from an empty one. The resulting store and per-stage statistics are
// returned.
func (p *Pipeline) Match(ctx context.Context, src, dst *tree.Tree, store *MappingStore) (*MappingStore, PipelineStats) {
	if store == nil {
		store = NewMappingStore()
	}

	stats := PipelineStats{Seeded: store.Len()}

	stats.TopDown = NewGreedySubtreeMatcher(src, dst, store, p.opts...).Match(ctx)

	bottomUp := NewSimpleBottomUpMatcher(src, dst, store, p.opts...)
	stats.BottomUp = bottomUp.Match(ctx)

	p.options.Logger.InfoContext(ctx, "matching done",
		slog.Int("seeded", stats.Seeded),
		slog.Int("top_down", stats.TopDown),
		slog.Int("bottom_up", stats.BottomUp.Mappings()),
		slog.Bool("early_exit", stats.BottomUp.EarlyExit))

	return store, stats
}
