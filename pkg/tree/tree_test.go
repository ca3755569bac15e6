package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

func sampleTree() *tree.Tree {
	// Block(If(Cond, Call[f]), Return[x])
	return tree.New("Block", "",
		tree.New("If", "",
			tree.New("Cond", ""),
			tree.New("Call", "f"),
		),
		tree.New("Return", "x"),
	)
}

func TestSymbolFor_Interned(t *testing.T) {
	t.Parallel()

	first := tree.SymbolFor("Identifier")
	second := tree.SymbolFor("Identifier")
	other := tree.SymbolFor("Literal")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Equal(t, "Identifier", first.String())
	assert.False(t, first.IsEmpty())
}

func TestSymbolFor_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, tree.NoSymbol, tree.SymbolFor(""))
	assert.True(t, tree.NoSymbol.IsEmpty())
	assert.Empty(t, tree.NoSymbol.String())
}

func TestNew_ParentLinks(t *testing.T) {
	t.Parallel()

	root := sampleTree()

	require.Equal(t, 2, root.ChildCount())
	assert.True(t, root.IsRoot())
	assert.False(t, root.IsLeaf())

	ifNode := root.Child(0)
	assert.Same(t, root, ifNode.Parent())
	assert.Same(t, ifNode, ifNode.Child(1).Parent())
	assert.True(t, ifNode.Child(0).IsLeaf())
	assert.Same(t, root, ifNode.Child(1).Root())
}

func TestTree_Depth(t *testing.T) {
	t.Parallel()

	root := sampleTree()

	assert.Equal(t, 0, root.Depth())
	assert.Equal(t, 1, root.Child(0).Depth())
	assert.Equal(t, 2, root.Child(0).Child(1).Depth())
}

func TestTree_RemoveChild(t *testing.T) {
	t.Parallel()

	root := sampleTree()
	ret := root.Child(1)

	assert.True(t, root.RemoveChild(ret))
	assert.Nil(t, ret.Parent())
	assert.Equal(t, 1, root.ChildCount())
	assert.False(t, root.RemoveChild(ret))
}

func TestTree_InsertChild(t *testing.T) {
	t.Parallel()

	root := sampleTree()
	stmt := tree.New("Expr", "")

	root.InsertChild(1, stmt)

	assert.Equal(t, "Block(If(Cond, Call[f]), Expr, Return[x])", root.String())
	assert.Equal(t, 1, stmt.PositionInParent())
	assert.Equal(t, -1, root.PositionInParent())
}

func TestTree_HasSameType(t *testing.T) {
	t.Parallel()

	left := tree.New("Call", "f")
	right := tree.New("Call", "g")

	assert.True(t, left.HasSameType(right))
	assert.False(t, left.HasSameTypeAndLabel(right))
	assert.True(t, left.HasSameTypeAndLabel(tree.New("Call", "f")))
}

func TestTree_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Block(If(Cond, Call[f]), Return[x])", sampleTree().String())
}

func TestTree_Clone(t *testing.T) {
	t.Parallel()

	root := sampleTree()
	root.Child(1).Pos = &tree.Positions{StartLine: 3, EndLine: 3}

	cp := root.Clone()

	assert.Equal(t, root.String(), cp.String())
	assert.NotSame(t, root, cp)
	assert.True(t, cp.IsRoot())
	assert.Equal(t, root.Hash(), cp.Hash())
	require.NotNil(t, cp.Child(1).Pos)
	assert.NotSame(t, root.Child(1).Pos, cp.Child(1).Pos)

	cp.Child(0).AddChild(tree.New("Else", ""))
	assert.Equal(t, 2, root.Child(0).ChildCount())
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	pos := &tree.Positions{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5}
	node := tree.NewBuilder().
		WithType("Identifier").
		WithLabel("name").
		WithPosition(pos).
		WithChildren(tree.New("Literal", "1")).
		Build()

	assert.Equal(t, tree.SymbolFor("Identifier"), node.Type)
	assert.Equal(t, "name", node.Label)
	assert.Same(t, pos, node.Pos)
	assert.Same(t, node, node.Child(0).Parent())
}
