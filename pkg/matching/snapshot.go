package matching

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

// Snapshot errors.
var (
	ErrInvalidSnapshot  = errors.New("invalid mapping snapshot")
	ErrSnapshotMismatch = errors.New("mapping snapshot does not fit trees")
)

// snapshotMagic prefixes every snapshot.
var snapshotMagic = [4]byte{'T', 'M', 'S', '1'}

const (
	uint32ByteSize = 4

	// blockStored marks a payload LZ4 could not shrink.
	blockStored byte = 0
	blockLZ4    byte = 1

	// snapshotHeaderSize covers magic, block kind and pair count.
	snapshotHeaderSize = len(snapshotMagic) + 1 + uint32ByteSize
)

// EncodeSnapshot serializes store as pairs of pre-order positions in src and
// dst, sorted by source position. Both position columns are delta-encoded
// before LZ4 compression; deltas wrap, so unsorted columns round-trip too.
// Mappings whose nodes are not in src or dst fail with ErrSnapshotMismatch.
func EncodeSnapshot(store *MappingStore, src, dst *tree.Tree) ([]byte, error) {
	srcIndex, dstIndex := preOrderIndex(src), preOrderIndex(dst)

	type idPair struct{ src, dst uint32 }

	pairs := make([]idPair, 0, store.Len())

	for _, mapping := range store.Mappings() {
		srcID, srcOK := srcIndex[mapping.Src]
		dstID, dstOK := dstIndex[mapping.Dst]

		if !srcOK || !dstOK {
			return nil, fmt.Errorf("%w: mapping %s -> %s", ErrSnapshotMismatch, mapping.Src.Type, mapping.Dst.Type)
		}

		pairs = append(pairs, idPair{src: srcID, dst: dstID})
	}

	slices.SortFunc(pairs, func(a, b idPair) int { return cmp.Compare(a.src, b.src) })

	// Source ids first, then destination ids, so the deltas sit together.
	ids := make([]uint32, 2*len(pairs))
	for idx, pair := range pairs {
		ids[idx] = pair.src
		ids[len(pairs)+idx] = pair.dst
	}

	deltaEncode(ids[:len(pairs)])
	deltaEncode(ids[len(pairs):])

	raw := new(bytes.Buffer)

	err := binary.Write(raw, binary.LittleEndian, ids)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot ids: %w", err)
	}

	kind, payload, err := compressBlock(raw.Bytes())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, snapshotHeaderSize+len(payload))
	out = append(out, snapshotMagic[:]...)
	out = append(out, kind)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pairs))) //nolint:gosec // bounded by tree size
	out = append(out, payload...)

	return out, nil
}

// DecodeSnapshot rebuilds a mapping store over src and dst from a snapshot
// produced by EncodeSnapshot for trees of the same shape.
func DecodeSnapshot(data []byte, src, dst *tree.Tree) (*MappingStore, error) {
	if len(data) < snapshotHeaderSize || !bytes.Equal(data[:len(snapshotMagic)], snapshotMagic[:]) {
		return nil, fmt.Errorf("%w: bad header", ErrInvalidSnapshot)
	}

	kind := data[len(snapshotMagic)]
	count := int(binary.LittleEndian.Uint32(data[len(snapshotMagic)+1:]))
	payload := data[snapshotHeaderSize:]

	srcNodes, dstNodes := src.PreOrder(), dst.PreOrder()
	if count > len(srcNodes) || count > len(dstNodes) {
		return nil, fmt.Errorf("%w: %d mappings for trees of %d and %d nodes",
			ErrSnapshotMismatch, count, len(srcNodes), len(dstNodes))
	}

	raw, err := uncompressBlock(kind, payload, 2*count*uint32ByteSize)
	if err != nil {
		return nil, err
	}

	ids := make([]uint32, 2*count)

	err = binary.Read(bytes.NewReader(raw), binary.LittleEndian, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	deltaDecode(ids[:count])
	deltaDecode(ids[count:])

	store := NewMappingStore()

	for idx := range count {
		srcID, dstID := int(ids[idx]), int(ids[count+idx])
		if srcID >= len(srcNodes) || dstID >= len(dstNodes) {
			return nil, fmt.Errorf("%w: position out of range", ErrSnapshotMismatch)
		}

		err = store.Add(srcNodes[srcID], dstNodes[dstID])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
	}

	return store, nil
}

func preOrderIndex(root *tree.Tree) map[*tree.Tree]uint32 {
	nodes := root.PreOrder()
	index := make(map[*tree.Tree]uint32, len(nodes))

	for idx, node := range nodes {
		index[node] = uint32(idx) //nolint:gosec // bounded by tree size
	}

	return index
}

func compressBlock(raw []byte) (byte, []byte, error) {
	if len(raw) == 0 {
		return blockStored, nil, nil
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))

	written, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("compress snapshot: %w", err)
	}

	if written == 0 || written >= len(raw) {
		return blockStored, raw, nil
	}

	return blockLZ4, compressed[:written], nil
}

func uncompressBlock(kind byte, payload []byte, size int) ([]byte, error) {
	switch kind {
	case blockStored:
		if len(payload) != size {
			return nil, fmt.Errorf("%w: payload has %d bytes, want %d", ErrInvalidSnapshot, len(payload), size)
		}

		return payload, nil
	case blockLZ4:
		raw := make([]byte, size)

		written, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}

		if written != size {
			return nil, fmt.Errorf("%w: payload has %d bytes, want %d", ErrInvalidSnapshot, written, size)
		}

		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown block kind %d", ErrInvalidSnapshot, kind)
	}
}

// deltaEncode replaces each element with the difference from its
// predecessor, in place.
func deltaEncode(data []uint32) {
	for i := len(data) - 1; i > 0; i-- {
		data[i] -= data[i-1]
	}
}

// deltaDecode restores values produced by deltaEncode.
func deltaDecode(data []uint32) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}
