package matching

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

// IndexPair pairs the i-th element of a source sequence with the j-th
// element of a destination sequence.
type IndexPair struct {
	Src int
	Dst int
}

// Aligner computes an order-preserving alignment of two child sequences.
// The returned pairs increase strictly in both coordinates.
type Aligner interface {
	Align(src, dst []*tree.Tree) []IndexPair
}

// Comparator decides whether two nodes are equivalent for alignment.
type Comparator func(left, right *tree.Tree) bool

// Isomorphic compares whole subtrees: the structural hash first, then every
// node, so hash collisions never align different subtrees.
func Isomorphic(left, right *tree.Tree) bool {
	return left.IsIsomorphicTo(right)
}

// SameTypeAndLabel compares node type and label only.
func SameTypeAndLabel(left, right *tree.Tree) bool {
	return left.HasSameTypeAndLabel(right)
}

// SameType compares node types only.
func SameType(left, right *tree.Tree) bool {
	return left.HasSameType(right)
}

// Aligner names accepted by AlignerByName.
const (
	AlignerLCS   = "lcs"
	AlignerMyers = "myers"
)

// AlignerByName returns the aligner registered under name, comparing
// children as isomorphic subtrees, and whether it exists.
func AlignerByName(name string) (Aligner, bool) {
	switch name {
	case AlignerLCS:
		return LCSAligner{Equal: Isomorphic}, true
	case AlignerMyers:
		return MyersAligner{Key: HashKey}, true
	default:
		return nil, false
	}
}

// LCSAligner computes a longest common subsequence by dynamic programming.
// Among several longest alignments it prefers, scanning from the end, to
// skip source elements before destination elements.
type LCSAligner struct {
	Equal Comparator
}

// Align implements Aligner.
func (a LCSAligner) Align(src, dst []*tree.Tree) []IndexPair {
	equal := a.Equal
	if equal == nil {
		equal = Isomorphic
	}

	lengths := make([][]int, len(src)+1)
	for idx := range lengths {
		lengths[idx] = make([]int, len(dst)+1)
	}

	for i := range src {
		for j := range dst {
			if equal(src[i], dst[j]) {
				lengths[i+1][j+1] = lengths[i][j] + 1
			} else {
				lengths[i+1][j+1] = max(lengths[i+1][j], lengths[i][j+1])
			}
		}
	}

	var pairs []IndexPair

	for x, y := len(src), len(dst); x != 0 && y != 0; {
		switch {
		case lengths[x][y] == lengths[x-1][y]:
			x--
		case lengths[x][y] == lengths[x][y-1]:
			y--
		default:
			pairs = append(pairs, IndexPair{Src: x - 1, Dst: y - 1})
			x--
			y--
		}
	}

	reversePairs(pairs)

	return pairs
}

func reversePairs(pairs []IndexPair) {
	for left, right := 0, len(pairs)-1; left < right; left, right = left+1, right-1 {
		pairs[left], pairs[right] = pairs[right], pairs[left]
	}
}

// KeyFunc maps a node to the value that decides equivalence in MyersAligner.
type KeyFunc func(node *tree.Tree) uint64

// HashKey keys nodes by structural hash, i.e. isomorphic subtrees are equal.
func HashKey(node *tree.Tree) uint64 {
	return node.Hash()
}

// surrogateStart and surrogateSize bound the UTF-16 surrogate range, which
// cannot appear in the rune sequences handed to the diff.
const (
	surrogateStart = 0xD800
	surrogateSize  = 0x800
)

// MyersAligner aligns children with Myers' diff (sergi/go-diff), mapping each
// distinct key to one rune the same way line diffs map each distinct line.
type MyersAligner struct {
	Key KeyFunc
}

// Align implements Aligner.
func (a MyersAligner) Align(src, dst []*tree.Tree) []IndexPair {
	if len(src) == 0 || len(dst) == 0 {
		return nil
	}

	key := a.Key
	if key == nil {
		key = HashKey
	}

	runeOf := make(map[uint64]rune, len(src)+len(dst))
	srcRunes := childrenToRunes(src, key, runeOf)
	dstRunes := childrenToRunes(dst, key, runeOf)

	dmp := diffmatchpatch.New()
	// Without a deadline the diff never falls back to the half-match
	// shortcut, so the equalities form a longest common subsequence.
	dmp.DiffTimeout = 0

	var (
		pairs  []IndexPair
		srcIdx int
		dstIdx int
	)

	for _, edit := range dmp.DiffMainRunes(srcRunes, dstRunes, false) {
		size := utf8.RuneCountInString(edit.Text)

		switch edit.Type {
		case diffmatchpatch.DiffDelete:
			srcIdx += size
		case diffmatchpatch.DiffInsert:
			dstIdx += size
		case diffmatchpatch.DiffEqual:
			for range size {
				pairs = append(pairs, IndexPair{Src: srcIdx, Dst: dstIdx})
				srcIdx++
				dstIdx++
			}
		}
	}

	return pairs
}

func childrenToRunes(children []*tree.Tree, key KeyFunc, runeOf map[uint64]rune) []rune {
	out := make([]rune, 0, len(children))

	for _, child := range children {
		childKey := key(child)

		r, ok := runeOf[childKey]
		if !ok {
			r = rune(len(runeOf) + 1)
			if r >= surrogateStart {
				r += surrogateSize
			}

			runeOf[childKey] = r
		}

		out = append(out, r)
	}

	return out
}
