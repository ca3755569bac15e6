package matching

import "github.com/Sumatoshi-tech/treematch/pkg/tree"

// SideSummary counts the mapped nodes of one tree.
type SideSummary struct {
	Nodes    int
	Mapped   int
	Unmapped int
}

// Ratio returns the mapped fraction of the tree, or 0 for an empty tree.
func (s SideSummary) Ratio() float64 {
	if s.Nodes == 0 {
		return 0
	}

	return float64(s.Mapped) / float64(s.Nodes)
}

// Summary describes how much of two trees a store covers.
type Summary struct {
	Mappings int
	Src      SideSummary
	Dst      SideSummary
	// Renamed counts mappings whose nodes carry different labels.
	Renamed int
}

// Summarize counts mapped and unmapped nodes of src and dst in store.
func Summarize(store *MappingStore, src, dst *tree.Tree) Summary {
	summary := Summary{Mappings: store.Len()}

	src.VisitPreOrder(func(node *tree.Tree) {
		summary.Src.Nodes++

		mapped := store.Dst(node)
		if mapped == nil {
			return
		}

		summary.Src.Mapped++

		if mapped.Label != node.Label {
			summary.Renamed++
		}
	})

	dst.VisitPreOrder(func(node *tree.Tree) {
		summary.Dst.Nodes++

		if store.IsDstMapped(node) {
			summary.Dst.Mapped++
		}
	})

	summary.Src.Unmapped = summary.Src.Nodes - summary.Src.Mapped
	summary.Dst.Unmapped = summary.Dst.Nodes - summary.Dst.Mapped

	return summary
}
