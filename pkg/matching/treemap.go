package matching

import "github.com/Sumatoshi-tech/treematch/pkg/tree"

// TreeMap is a constant-time membership index over tree nodes. Matchers keep
// one per side to record which nodes are already committed to a mapping.
type TreeMap struct {
	nodes map[*tree.Tree]struct{}
}

// NewTreeMap creates an index holding every node of root. A nil root gives an
// empty index.
func NewTreeMap(root *tree.Tree) *TreeMap {
	treeMap := &TreeMap{nodes: make(map[*tree.Tree]struct{})}

	if root != nil {
		treeMap.PutTree(root)
	}

	return treeMap
}

// Put adds node to the index. Adding a node twice is a no-op.
func (tm *TreeMap) Put(node *tree.Tree) {
	tm.nodes[node] = struct{}{}
}

// PutTree adds node and all of its descendants.
func (tm *TreeMap) PutTree(node *tree.Tree) {
	node.VisitPreOrder(tm.Put)
}

// Contains reports whether node is in the index.
func (tm *TreeMap) Contains(node *tree.Tree) bool {
	_, ok := tm.nodes[node]

	return ok
}

// Remove deletes node from the index.
func (tm *TreeMap) Remove(node *tree.Tree) {
	delete(tm.nodes, node)
}

// Len returns the number of indexed nodes.
func (tm *TreeMap) Len() int {
	return len(tm.nodes)
}
