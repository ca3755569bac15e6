package tree

// Traversal constants.
const (
	defaultStackCap = 64
)

// PreOrder returns the subtree rooted at t in pre-order (node, then children
// left-to-right).
func (t *Tree) PreOrder() []*Tree {
	out := make([]*Tree, 0, defaultStackCap)

	t.VisitPreOrder(func(node *Tree) {
		out = append(out, node)
	})

	return out
}

// VisitPreOrder calls fn for every node of the subtree in pre-order.
func (t *Tree) VisitPreOrder(fn func(*Tree)) {
	if t == nil {
		return
	}

	stack := make([]*Tree, 0, defaultStackCap)
	stack = append(stack, t)

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		fn(current)

		for idx := len(current.children) - 1; idx >= 0; idx-- {
			stack = append(stack, current.children[idx])
		}
	}
}

// postOrderFrame represents a frame in the post-order traversal stack.
type postOrderFrame struct {
	node     *Tree
	expanded bool
}

// PostOrder returns the subtree rooted at t in post-order (children
// left-to-right, then the node). t itself is always the last element.
func (t *Tree) PostOrder() []*Tree {
	out := make([]*Tree, 0, defaultStackCap)

	t.VisitPostOrder(func(node *Tree) bool {
		out = append(out, node)

		return true
	})

	return out
}

// VisitPostOrder calls fn for every node of the subtree in post-order. The
// walk stops as soon as fn returns false.
func (t *Tree) VisitPostOrder(fn func(*Tree) bool) {
	if t == nil {
		return
	}

	stack := make([]postOrderFrame, 0, defaultStackCap)
	stack = append(stack, postOrderFrame{node: t})

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if !top.expanded && len(top.node.children) > 0 {
			top.expanded = true

			for idx := len(top.node.children) - 1; idx >= 0; idx-- {
				stack = append(stack, postOrderFrame{node: top.node.children[idx]})
			}

			continue
		}

		node := top.node
		stack = stack[:len(stack)-1]

		if !fn(node) {
			return
		}
	}
}

// BreadthFirst returns the subtree rooted at t level by level.
func (t *Tree) BreadthFirst() []*Tree {
	out := []*Tree{t}

	for head := 0; head < len(out); head++ {
		out = append(out, out[head].children...)
	}

	return out
}

// Trees returns t and all of its descendants in pre-order.
func (t *Tree) Trees() []*Tree {
	return t.PreOrder()
}

// Descendants returns all nodes below t in pre-order, excluding t.
func (t *Tree) Descendants() []*Tree {
	return t.PreOrder()[1:]
}

// Ancestors returns the parent chain of t, nearest first, ending at the root.
func (t *Tree) Ancestors() []*Tree {
	var out []*Tree

	for current := t.parent; current != nil; current = current.parent {
		out = append(out, current)
	}

	return out
}

// IsDescendantOf reports whether t lies strictly below ancestor.
func (t *Tree) IsDescendantOf(ancestor *Tree) bool {
	for current := t.parent; current != nil; current = current.parent {
		if current == ancestor {
			return true
		}
	}

	return false
}
