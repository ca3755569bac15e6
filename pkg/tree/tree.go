// Package tree provides the labelled, ordered, rooted tree that the matchers
// operate on: nodes own their children and keep a back reference to their
// parent, and expose the structural metrics (depth, height, size, hash) used
// for matching.
package tree

import (
	"slices"
	"strings"
)

// Positions represents the byte and line/col offsets for a node.
// All fields are 1-based except StartOffset/EndOffset, which are byte offsets.
type Positions struct {
	StartLine   uint `json:"start_line,omitempty"   yaml:"start_line,omitempty"`
	StartCol    uint `json:"start_col,omitempty"    yaml:"start_col,omitempty"`
	StartOffset uint `json:"start_offset,omitempty" yaml:"start_offset,omitempty"`
	EndLine     uint `json:"end_line,omitempty"     yaml:"end_line,omitempty"`
	EndCol      uint `json:"end_col,omitempty"      yaml:"end_col,omitempty"`
	EndOffset   uint `json:"end_offset,omitempty"   yaml:"end_offset,omitempty"`
}

// Tree is a node of a labelled ordered tree.
//
// A node owns its children. The parent pointer is a back reference only and
// is maintained by AddChild, InsertChild, RemoveChild and SetParent.
type Tree struct {
	Type  Symbol
	Label string
	Pos   *Positions

	children []*Tree
	parent   *Tree

	// Cached metrics, see metrics.go.
	id      int
	height  int
	size    int
	hash    uint64
	metrics bool
}

// Allocation constants.
const (
	initialChildCap = 4
)

// New creates a node of the given type and label and attaches children to it
// in order.
func New(nodeType, label string, children ...*Tree) *Tree {
	node := &Tree{
		Type:  SymbolFor(nodeType),
		Label: label,
		id:    -1,
	}

	if len(children) > 0 {
		node.children = make([]*Tree, 0, len(children))
	}

	for _, child := range children {
		node.AddChild(child)
	}

	return node
}

// Builder provides a fluent interface for building Tree instances.
type Builder struct {
	node *Tree
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{node: &Tree{id: -1}}
}

// WithType sets the node type.
func (builder *Builder) WithType(nodeType string) *Builder {
	builder.node.Type = SymbolFor(nodeType)

	return builder
}

// WithLabel sets the node label.
func (builder *Builder) WithLabel(label string) *Builder {
	builder.node.Label = label

	return builder
}

// WithPosition sets the node position.
func (builder *Builder) WithPosition(pos *Positions) *Builder {
	builder.node.Pos = pos

	return builder
}

// WithChildren appends children to the node.
func (builder *Builder) WithChildren(children ...*Tree) *Builder {
	for _, child := range children {
		builder.node.AddChild(child)
	}

	return builder
}

// Build returns the node.
func (builder *Builder) Build() *Tree {
	if builder.node.children == nil {
		builder.node.children = make([]*Tree, 0, initialChildCap)
	}

	return builder.node
}

// Children returns the ordered children of the node. The slice is owned by
// the node and must not be modified.
func (t *Tree) Children() []*Tree {
	return t.children
}

// Child returns the child at position idx.
func (t *Tree) Child(idx int) *Tree {
	return t.children[idx]
}

// ChildCount returns the number of children.
func (t *Tree) ChildCount() int {
	return len(t.children)
}

// Parent returns the parent of the node, or nil for a root.
func (t *Tree) Parent() *Tree {
	return t.parent
}

// SetParent sets the parent back reference without touching any child list.
// Callers detaching a node use RemoveChild, which also clears the parent.
func (t *Tree) SetParent(parent *Tree) {
	t.parent = parent
	t.invalidate()
}

// AddChild appends child to t and sets its parent.
func (t *Tree) AddChild(child *Tree) {
	t.children = append(t.children, child)
	child.parent = t
	t.invalidate()
}

// InsertChild inserts child at position idx and sets its parent.
func (t *Tree) InsertChild(idx int, child *Tree) {
	t.children = slices.Insert(t.children, idx, child)
	child.parent = t
	t.invalidate()
}

// RemoveChild removes the first occurrence of child from t and clears its
// parent. Returns true if the child was found and removed.
func (t *Tree) RemoveChild(child *Tree) bool {
	idx := slices.Index(t.children, child)
	if idx < 0 {
		return false
	}

	t.children = slices.Delete(t.children, idx, idx+1)
	child.parent = nil
	t.invalidate()

	return true
}

// PositionInParent returns the index of t in its parent's children, or -1
// for a root.
func (t *Tree) PositionInParent() int {
	if t.parent == nil {
		return -1
	}

	return slices.Index(t.parent.children, t)
}

// IsRoot reports whether t has no parent.
func (t *Tree) IsRoot() bool {
	return t.parent == nil
}

// IsLeaf reports whether t has no children.
func (t *Tree) IsLeaf() bool {
	return len(t.children) == 0
}

// Root returns the root of the tree t belongs to.
func (t *Tree) Root() *Tree {
	current := t
	for current.parent != nil {
		current = current.parent
	}

	return current
}

// Depth returns the distance from t to its root. A root has depth 0.
func (t *Tree) Depth() int {
	depth := 0
	for current := t.parent; current != nil; current = current.parent {
		depth++
	}

	return depth
}

// HasSameType reports whether t and other share the same type label.
func (t *Tree) HasSameType(other *Tree) bool {
	return t.Type == other.Type
}

// HasSameTypeAndLabel reports whether t and other share type and label.
func (t *Tree) HasSameTypeAndLabel(other *Tree) bool {
	return t.Type == other.Type && t.Label == other.Label
}

// Clone returns a deep copy of the subtree rooted at t. The copy is a root.
func (t *Tree) Clone() *Tree {
	type cloneFrame struct {
		orig   *Tree
		parent *Tree
	}

	var root *Tree

	stack := []cloneFrame{{orig: t}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cp := &Tree{Type: frame.orig.Type, Label: frame.orig.Label, id: -1}

		if frame.orig.Pos != nil {
			pos := *frame.orig.Pos
			cp.Pos = &pos
		}

		if frame.parent == nil {
			root = cp
		} else {
			frame.parent.AddChild(cp)
		}

		for idx := len(frame.orig.children) - 1; idx >= 0; idx-- {
			stack = append(stack, cloneFrame{orig: frame.orig.children[idx], parent: cp})
		}
	}

	return root
}

// String renders the subtree as an s-expression, e.g. "Call(Identifier[f], Args)".
func (t *Tree) String() string {
	var buf strings.Builder

	writeNode(&buf, t)

	return buf.String()
}

func writeNode(buf *strings.Builder, t *Tree) {
	buf.WriteString(t.Type.String())

	if t.Label != "" {
		buf.WriteByte('[')
		buf.WriteString(t.Label)
		buf.WriteByte(']')
	}

	if len(t.children) == 0 {
		return
	}

	buf.WriteByte('(')

	for idx, child := range t.children {
		if idx > 0 {
			buf.WriteString(", ")
		}

		writeNode(buf, child)
	}

	buf.WriteByte(')')
}
