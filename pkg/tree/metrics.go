package tree

import "hash/fnv"

// Splitmix64 finalizer constants (Vigna, 2014), used to mix child hashes into
// the parent hash so that the result depends on child order.
const (
	mixShift1 = 30
	mixMul1   = 0xbf58476d1ce4e5b9
	mixShift2 = 27
	mixMul2   = 0x94d049bb133111eb
	mixShift3 = 31
)

// labelSeparator keeps ("ab", "c") and ("a", "bc") apart in the node hash.
const labelSeparator = 0x1f

func mix64(v uint64) uint64 {
	v ^= v >> mixShift1
	v *= mixMul1
	v ^= v >> mixShift2
	v *= mixMul2
	v ^= v >> mixShift3

	return v
}

// invalidate marks t and its ancestors as needing metric recomputation.
// A node with stale metrics always has stale ancestors, so the walk stops at
// the first node that is already stale.
func (t *Tree) invalidate() {
	for current := t; current != nil && current.metrics; current = current.parent {
		current.metrics = false
	}
}

// Height returns the height of the subtree rooted at t. A leaf has height 1.
func (t *Tree) Height() int {
	t.ensureMetrics()

	return t.height
}

// Size returns the number of nodes in the subtree rooted at t.
func (t *Tree) Size() int {
	t.ensureMetrics()

	return t.size
}

// Hash returns the structural hash of the subtree rooted at t. Subtrees with
// equal type, label and child hashes (in order) hash equally.
func (t *Tree) Hash() uint64 {
	t.ensureMetrics()

	return t.hash
}

// IsIsomorphicTo reports whether the subtrees rooted at t and other are
// structurally identical.
func (t *Tree) IsIsomorphicTo(other *Tree) bool {
	if t.Hash() != other.Hash() {
		return false
	}

	left, right := t.PreOrder(), other.PreOrder()
	if len(left) != len(right) {
		return false
	}

	for idx := range left {
		if !left[idx].HasSameTypeAndLabel(right[idx]) || left[idx].ChildCount() != right[idx].ChildCount() {
			return false
		}
	}

	return true
}

// ID returns the pre-order index of t assigned by the last Refresh of its
// tree, or -1 if no Refresh has run since t was created.
func (t *Tree) ID() int {
	return t.id
}

// Refresh recomputes the cached metrics of the subtree rooted at t and
// assigns pre-order IDs starting at 0 for t. Call it on the root after
// structural mutations when IDs are needed.
func (t *Tree) Refresh() {
	for current := t; current != nil; current = current.parent {
		current.metrics = false
	}

	t.ensureMetrics()

	for idx, node := range t.PreOrder() {
		node.id = idx
	}
}

// ensureMetrics recomputes height, size and hash for every stale node below
// and including t, children first.
func (t *Tree) ensureMetrics() {
	if t.metrics {
		return
	}

	type metricFrame struct {
		node     *Tree
		expanded bool
	}

	stack := make([]metricFrame, 0, defaultStackCap)
	stack = append(stack, metricFrame{node: t})

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if !top.expanded {
			top.expanded = true

			for _, child := range top.node.children {
				if !child.metrics {
					stack = append(stack, metricFrame{node: child})
				}
			}

			continue
		}

		computeMetrics(top.node)

		stack = stack[:len(stack)-1]
	}
}

// computeMetrics derives the metrics of node from its already computed children.
func computeMetrics(node *Tree) {
	hasher := fnv.New64a()
	hasher.Write([]byte(node.Type.String()))
	hasher.Write([]byte{labelSeparator})
	hasher.Write([]byte(node.Label))

	hash := hasher.Sum64()
	height, size := 0, 1

	for _, child := range node.children {
		hash = mix64(hash ^ child.hash)
		height = max(height, child.height)
		size += child.size
	}

	node.hash = hash
	node.height = height + 1
	node.size = size
	node.metrics = true
}
