package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

func typesOf(nodes []*tree.Tree) []string {
	out := make([]string, 0, len(nodes))

	for _, node := range nodes {
		out = append(out, node.Type.String())
	}

	return out
}

func TestTraversals(t *testing.T) {
	t.Parallel()

	root := sampleTree()

	tests := []struct {
		name string
		got  []*tree.Tree
		want []string
	}{
		{"pre_order", root.PreOrder(), []string{"Block", "If", "Cond", "Call", "Return"}},
		{"post_order", root.PostOrder(), []string{"Cond", "Call", "If", "Return", "Block"}},
		{"breadth_first", root.BreadthFirst(), []string{"Block", "If", "Return", "Cond", "Call"}},
		{"descendants", root.Descendants(), []string{"If", "Cond", "Call", "Return"}},
		{"trees", root.Trees(), []string{"Block", "If", "Cond", "Call", "Return"}},
		{"ancestors", root.Child(0).Child(0).Ancestors(), []string{"If", "Block"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, typesOf(tt.got))
		})
	}
}

func TestVisitPostOrder_StopsEarly(t *testing.T) {
	t.Parallel()

	var visited []string

	sampleTree().VisitPostOrder(func(node *tree.Tree) bool {
		visited = append(visited, node.Type.String())

		return node.Type.String() != "If"
	})

	assert.Equal(t, []string{"Cond", "Call", "If"}, visited)
}

func TestPostOrder_RootIsLast(t *testing.T) {
	t.Parallel()

	root := sampleTree()
	order := root.PostOrder()

	assert.Same(t, root, order[len(order)-1])
	assert.Len(t, order, 5)
}

func TestDescendants_Leaf(t *testing.T) {
	t.Parallel()

	assert.Empty(t, tree.New("Leaf", "").Descendants())
}

func TestIsDescendantOf(t *testing.T) {
	t.Parallel()

	root := sampleTree()
	call := root.Child(0).Child(1)

	assert.True(t, call.IsDescendantOf(root))
	assert.True(t, call.IsDescendantOf(root.Child(0)))
	assert.False(t, call.IsDescendantOf(call))
	assert.False(t, root.IsDescendantOf(call))
}

func TestVisitPreOrder_Nil(t *testing.T) {
	t.Parallel()

	var root *tree.Tree

	calls := 0

	root.VisitPreOrder(func(*tree.Tree) { calls++ })

	assert.Zero(t, calls)
}
