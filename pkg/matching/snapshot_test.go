package matching_test

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treematch/pkg/matching"
	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

type positionPair struct {
	Src int
	Dst int
}

// positions lists the mappings of store as sorted pre-order positions.
func positions(store *matching.MappingStore, src, dst *tree.Tree) []positionPair {
	srcNodes, dstNodes := src.PreOrder(), dst.PreOrder()

	var out []positionPair

	for _, mapping := range store.Mappings() {
		out = append(out, positionPair{
			Src: slices.Index(srcNodes, mapping.Src),
			Dst: slices.Index(dstNodes, mapping.Dst),
		})
	}

	slices.SortFunc(out, func(a, b positionPair) int { return a.Src - b.Src })

	return out
}

func wideTree(width int) *tree.Tree {
	root := tree.New("List", "")

	for idx := range width {
		root.AddChild(tree.New("Item", string(rune('a'+idx%26))))
	}

	return root
}

func TestSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	src, dst := ifTrees()
	store, _ := matching.NewPipeline(matching.WithDepthTiePolicy(matching.DepthTieStopNode)).
		Match(context.Background(), src, dst, nil)

	data, err := matching.EncodeSnapshot(store, src, dst)
	require.NoError(t, err)

	srcCopy, dstCopy := src.Clone(), dst.Clone()

	decoded, err := matching.DecodeSnapshot(data, srcCopy, dstCopy)
	require.NoError(t, err)

	if diff := cmp.Diff(positions(store, src, dst), positions(decoded, srcCopy, dstCopy)); diff != "" {
		t.Errorf("decoded snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_LargeStoreIsCompressed(t *testing.T) {
	t.Parallel()

	src := wideTree(500)
	dst := src.Clone()

	store := matching.NewMappingStore()
	require.NoError(t, store.AddRecursive(src, dst))

	data, err := matching.EncodeSnapshot(store, src, dst)
	require.NoError(t, err)

	assert.Less(t, len(data), 2*4*store.Len())

	decoded, err := matching.DecodeSnapshot(data, src, dst)
	require.NoError(t, err)
	assert.Equal(t, store.Len(), decoded.Len())

	for _, mapping := range store.Mappings() {
		assert.True(t, decoded.Has(mapping.Src, mapping.Dst))
	}
}

func TestSnapshot_EmptyStore(t *testing.T) {
	t.Parallel()

	src, dst := ifTrees()

	data, err := matching.EncodeSnapshot(matching.NewMappingStore(), src, dst)
	require.NoError(t, err)

	decoded, err := matching.DecodeSnapshot(data, src, dst)
	require.NoError(t, err)
	assert.Zero(t, decoded.Len())
}

func TestSnapshot_Errors(t *testing.T) {
	t.Parallel()

	src := wideTree(500)
	dst := src.Clone()

	store := matching.NewMappingStore()
	require.NoError(t, store.AddRecursive(src, dst))

	data, err := matching.EncodeSnapshot(store, src, dst)
	require.NoError(t, err)

	small, smallDst := ifTrees()

	tests := []struct {
		name    string
		data    []byte
		src     *tree.Tree
		dst     *tree.Tree
		wantErr error
	}{
		{name: "empty", data: nil, src: src, dst: dst, wantErr: matching.ErrInvalidSnapshot},
		{name: "bad magic", data: append([]byte("XXXX"), data[4:]...), src: src, dst: dst,
			wantErr: matching.ErrInvalidSnapshot},
		{name: "truncated", data: data[:len(data)-8], src: src, dst: dst, wantErr: matching.ErrInvalidSnapshot},
		{name: "trees too small", data: data, src: small, dst: smallDst, wantErr: matching.ErrSnapshotMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, decodeErr := matching.DecodeSnapshot(tt.data, tt.src, tt.dst)
			require.ErrorIs(t, decodeErr, tt.wantErr)
		})
	}
}

func TestEncodeSnapshot_ForeignNode(t *testing.T) {
	t.Parallel()

	src, dst := ifTrees()

	store := matching.NewMappingStore()
	require.NoError(t, store.Add(src, tree.New("Block", "")))

	_, err := matching.EncodeSnapshot(store, src, dst)
	require.ErrorIs(t, err, matching.ErrSnapshotMismatch)
}
