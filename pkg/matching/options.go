package matching

import (
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/treematch/pkg/observability"
)

// Default matcher settings.
const (
	DefaultSimilarityThreshold = 0.5
	DefaultSizeThreshold       = 1000
	DefaultMinHeight           = 2
)

// ErrUnknownDepthTiePolicy is returned when parsing an unknown policy name.
var ErrUnknownDepthTiePolicy = errors.New("unknown depth tie policy")

// DepthTiePolicy selects what the bottom-up matcher does when a qualifying
// candidate sits at the same depth as the source node.
type DepthTiePolicy int

const (
	// DepthTieAbort commits the best candidate found before the tied one and
	// stops visiting further non-root source nodes. The roots are still paired.
	// When no earlier candidate qualified, the source node is left unmatched
	// and the pass goes on.
	DepthTieAbort DepthTiePolicy = iota
	// DepthTieStopNode commits the tied candidate and stops evaluating
	// candidates for the current source node only.
	DepthTieStopNode
)

// Depth tie policy names.
const (
	depthTieAbortName    = "abort"
	depthTieStopNodeName = "stop-node"
)

func (p DepthTiePolicy) String() string {
	switch p {
	case DepthTieAbort:
		return depthTieAbortName
	case DepthTieStopNode:
		return depthTieStopNodeName
	default:
		return "unknown"
	}
}

// ParseDepthTiePolicy parses a policy name as produced by String.
func ParseDepthTiePolicy(name string) (DepthTiePolicy, error) {
	switch name {
	case depthTieAbortName:
		return DepthTieAbort, nil
	case depthTieStopNodeName:
		return DepthTieStopNode, nil
	default:
		return DepthTieAbort, fmt.Errorf("%w: %q", ErrUnknownDepthTiePolicy, name)
	}
}

// Options configures the matchers of this package.
type Options struct {
	// SimilarityThreshold is the minimum similarity for a bottom-up candidate.
	SimilarityThreshold float64
	// SizeThreshold bounds the subtrees a pipeline may hand to an exact
	// matcher. The bottom-up matcher only exposes it.
	SizeThreshold int
	// MinHeight is the minimum subtree height the greedy top-down matcher maps.
	MinHeight      int
	DepthTiePolicy DepthTiePolicy
	Similarity     Similarity
	Aligner        Aligner

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.MatchMetrics
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the default matcher configuration.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: DefaultSimilarityThreshold,
		SizeThreshold:       DefaultSizeThreshold,
		MinHeight:           DefaultMinHeight,
		DepthTiePolicy:      DepthTieAbort,
		Similarity:          JaccardSimilarity,
		Aligner:             LCSAligner{Equal: Isomorphic},
		Logger:              slog.New(slog.DiscardHandler),
		Tracer:              nooptrace.NewTracerProvider().Tracer(tracerName),
	}
}

func buildOptions(opts []Option) Options {
	options := DefaultOptions()

	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// WithSimilarityThreshold sets the bottom-up similarity threshold.
func WithSimilarityThreshold(threshold float64) Option {
	return func(o *Options) { o.SimilarityThreshold = threshold }
}

// WithSizeThreshold sets the exact-matcher size threshold.
func WithSizeThreshold(size int) Option {
	return func(o *Options) { o.SizeThreshold = size }
}

// WithMinHeight sets the minimum subtree height for top-down matching.
func WithMinHeight(height int) Option {
	return func(o *Options) { o.MinHeight = height }
}

// WithDepthTiePolicy sets the depth tie policy.
func WithDepthTiePolicy(policy DepthTiePolicy) Option {
	return func(o *Options) { o.DepthTiePolicy = policy }
}

// WithSimilarity sets the similarity function.
func WithSimilarity(similarity Similarity) Option {
	return func(o *Options) {
		if similarity != nil {
			o.Similarity = similarity
		}
	}
}

// WithAligner sets the child aligner used by the last-chance match.
func WithAligner(aligner Aligner) Option {
	return func(o *Options) {
		if aligner != nil {
			o.Aligner = aligner
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithTracer sets the tracer used for matcher spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Options) {
		if tracer != nil {
			o.Tracer = tracer
		}
	}
}

// WithMetrics sets the metric instruments matchers report to.
func WithMetrics(metrics *observability.MatchMetrics) Option {
	return func(o *Options) { o.Metrics = metrics }
}
