package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treematch/pkg/matching"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

func TestMappingStore_AddAndLookup(t *testing.T) {
	t.Parallel()

	src, dst := tree.New("A", ""), tree.New("A", "")
	store := matching.NewMappingStore()

	require.NoError(t, store.Add(src, dst))

	assert.True(t, store.Has(src, dst))
	assert.Same(t, dst, store.Dst(src))
	assert.Same(t, src, store.Src(dst))
	assert.True(t, store.IsSrcMapped(src))
	assert.True(t, store.IsDstMapped(dst))
	assert.False(t, store.IsSrcMapped(dst))
	assert.Equal(t, 1, store.Len())
}

func TestMappingStore_RejectsSecondMapping(t *testing.T) {
	t.Parallel()

	src, dst, other := tree.New("A", ""), tree.New("A", ""), tree.New("A", "")
	store := matching.NewMappingStore()

	require.NoError(t, store.Add(src, dst))
	require.ErrorIs(t, store.Add(src, other), matching.ErrAlreadyMapped)
	require.ErrorIs(t, store.Add(other, dst), matching.ErrAlreadyMapped)
	require.ErrorIs(t, store.Add(nil, other), matching.ErrNilNode)

	assert.Equal(t, 1, store.Len())
}

func TestMappingStore_Remove(t *testing.T) {
	t.Parallel()

	first, second := tree.New("A", ""), tree.New("A", "")
	third, fourth := tree.New("B", ""), tree.New("B", "")
	store := matching.NewMappingStore()

	require.NoError(t, store.Add(first, second))
	require.NoError(t, store.Add(third, fourth))

	assert.False(t, store.Remove(first, fourth))
	assert.True(t, store.Remove(first, second))
	assert.Nil(t, store.Dst(first))
	assert.Nil(t, store.Src(second))
	assert.Equal(t, []matching.Mapping{{Src: third, Dst: fourth}}, store.Mappings())

	require.NoError(t, store.Add(first, second))
}

func TestMappingStore_MappingsKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	nodes := []*tree.Tree{tree.New("A", ""), tree.New("B", ""), tree.New("C", "")}
	store := matching.NewMappingStore()

	for _, node := range nodes {
		require.NoError(t, store.Add(node, node.Clone()))
	}

	mappings := store.Mappings()
	require.Len(t, mappings, 3)

	for idx, node := range nodes {
		assert.Same(t, node, mappings[idx].Src)
	}
}

func TestMappingStore_AddRecursive(t *testing.T) {
	t.Parallel()

	src := tree.New("If", "", tree.New("Cond", "", tree.New("Name", "x")), tree.New("Return", ""))
	dst := src.Clone()
	store := matching.NewMappingStore()

	require.NoError(t, store.AddRecursive(src, dst))

	assert.Equal(t, src.Size(), store.Len())

	for idx, node := range src.PreOrder() {
		assert.Same(t, dst.PreOrder()[idx], store.Dst(node))
	}
}

func TestMappingStore_AddRecursiveIsAllOrNothing(t *testing.T) {
	t.Parallel()

	src := tree.New("P", "", tree.New("Q", "", tree.New("N", "a")), tree.New("N", "b"))
	dst := src.Clone()
	other := tree.New("N", "b")

	store := matching.NewMappingStore()
	require.NoError(t, store.Add(src.Child(1), other))

	err := store.AddRecursive(src, dst)
	require.ErrorIs(t, err, matching.ErrAlreadyMapped)

	assert.Equal(t, 1, store.Len())
	assert.False(t, store.IsSrcMapped(src))
	assert.False(t, store.IsSrcMapped(src.Child(0)))
	assert.False(t, store.IsDstMapped(dst.Child(0).Child(0)))

	taken := matching.NewMappingStore()
	require.NoError(t, taken.Add(other, dst.Child(1)))
	require.ErrorIs(t, taken.AddRecursive(src, dst), matching.ErrAlreadyMapped)
	assert.Equal(t, 1, taken.Len())
}

func TestMappingStore_AddRecursiveShapeMismatch(t *testing.T) {
	t.Parallel()

	src := tree.New("P", "", tree.New("N", "a"), tree.New("N", "b"))
	dst := tree.New("P", "", tree.New("N", "a"))

	store := matching.NewMappingStore()
	require.ErrorIs(t, store.AddRecursive(src, dst), matching.ErrShapeMismatch)
	require.ErrorIs(t, store.AddRecursive(nil, dst), matching.ErrNilNode)
	assert.Zero(t, store.Len())
}

func TestMappingStore_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	src, dst := tree.New("A", ""), tree.New("A", "")
	store := matching.NewMappingStore()
	require.NoError(t, store.Add(src, dst))

	clone := store.Clone()
	clone.Remove(src, dst)

	assert.True(t, store.Has(src, dst))
	assert.False(t, clone.Has(src, dst))
}

func TestTreeMap(t *testing.T) {
	t.Parallel()

	root := tree.New("Block", "", tree.New("If", "", tree.New("Cond", "")), tree.New("Return", ""))

	full := matching.NewTreeMap(root)
	assert.Equal(t, root.Size(), full.Len())

	for _, node := range root.PreOrder() {
		assert.True(t, full.Contains(node))
	}

	marks := matching.NewTreeMap(nil)
	assert.Zero(t, marks.Len())

	ifNode := root.Child(0)
	marks.Put(ifNode)
	marks.Put(ifNode)
	assert.Equal(t, 1, marks.Len())
	assert.False(t, marks.Contains(ifNode.Child(0)))

	marks.PutTree(ifNode)
	assert.True(t, marks.Contains(ifNode.Child(0)))
	assert.False(t, marks.Contains(root))

	marks.Remove(ifNode)
	assert.False(t, marks.Contains(ifNode))
	assert.Equal(t, 1, marks.Len())
}
