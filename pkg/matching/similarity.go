package matching

import "github.com/Sumatoshi-tech/treematch/pkg/tree"

// Similarity scores how much of the descendants of src and dst are already
// mapped onto each other. Results lie in [0, 1].
type Similarity func(src, dst *tree.Tree, store *MappingStore) float64

// Similarity names accepted by SimilarityByName.
const (
	SimilarityJaccard = "jaccard"
	SimilarityDice    = "dice"
)

// SimilarityByName returns the similarity registered under name and whether
// it exists.
func SimilarityByName(name string) (Similarity, bool) {
	switch name {
	case SimilarityJaccard:
		return JaccardSimilarity, true
	case SimilarityDice:
		return DiceSimilarity, true
	default:
		return nil, false
	}
}

// JaccardSimilarity returns common / (|desc(src)| + |desc(dst)| - common).
func JaccardSimilarity(src, dst *tree.Tree, store *MappingStore) float64 {
	common, srcCount, dstCount := commonDescendants(src, dst, store)

	union := srcCount + dstCount - common
	if union == 0 {
		return 0
	}

	return float64(common) / float64(union)
}

// DiceSimilarity returns 2 * common / (|desc(src)| + |desc(dst)|).
func DiceSimilarity(src, dst *tree.Tree, store *MappingStore) float64 {
	common, srcCount, dstCount := commonDescendants(src, dst, store)

	total := srcCount + dstCount
	if total == 0 {
		return 0
	}

	return 2 * float64(common) / float64(total)
}

// commonDescendants counts the descendants of src whose mapped counterpart is
// a descendant of dst, along with the descendant counts of both nodes.
//
//nolint:nonamedreturns // three counts read better named
func commonDescendants(src, dst *tree.Tree, store *MappingStore) (common, srcCount, dstCount int) {
	dstDescendants := NewTreeMap(nil)

	for _, node := range dst.Descendants() {
		dstDescendants.Put(node)
	}

	srcDescendants := src.Descendants()

	for _, node := range srcDescendants {
		mapped := store.Dst(node)
		if mapped != nil && dstDescendants.Contains(mapped) {
			common++
		}
	}

	return common, len(srcDescendants), dstDescendants.Len()
}
