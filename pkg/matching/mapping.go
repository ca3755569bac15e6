// Package matching computes mappings between the nodes of two trees: a
// bidirectional mapping store, the marked-node index, similarity and child
// alignment helpers, and the greedy top-down and simple bottom-up matchers.
package matching

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/treematch/pkg/tree"
)

// Sentinel errors for mapping store operations.
var (
	ErrAlreadyMapped = errors.New("node already mapped")
	ErrNilNode       = errors.New("nil node in mapping")
	ErrShapeMismatch = errors.New("subtrees differ in size")
)

// Mapping is a committed correspondence between a source and a destination node.
type Mapping struct {
	Src *tree.Tree
	Dst *tree.Tree
}

// MappingStore is an injective set of mappings: every node appears in at
// most one mapping on its side. Mappings enumerate in insertion order.
type MappingStore struct {
	srcToDst map[*tree.Tree]*tree.Tree
	dstToSrc map[*tree.Tree]*tree.Tree
	order    []Mapping
}

// NewMappingStore creates an empty store.
func NewMappingStore() *MappingStore {
	return &MappingStore{
		srcToDst: make(map[*tree.Tree]*tree.Tree),
		dstToSrc: make(map[*tree.Tree]*tree.Tree),
	}
}

// Add inserts the pair (src, dst). It fails with ErrAlreadyMapped when either
// node is already part of a mapping.
func (ms *MappingStore) Add(src, dst *tree.Tree) error {
	if src == nil || dst == nil {
		return ErrNilNode
	}

	if prev, ok := ms.srcToDst[src]; ok {
		return fmt.Errorf("%w: source %s is mapped to %s", ErrAlreadyMapped, src.Type, prev.Type)
	}

	if prev, ok := ms.dstToSrc[dst]; ok {
		return fmt.Errorf("%w: destination %s is mapped to %s", ErrAlreadyMapped, dst.Type, prev.Type)
	}

	ms.srcToDst[src] = dst
	ms.dstToSrc[dst] = src
	ms.order = append(ms.order, Mapping{Src: src, Dst: dst})

	return nil
}

// AddRecursive maps src to dst and every descendant of src to the descendant
// of dst at the same pre-order position. The subtrees must be isomorphic.
// Either every pair is added or, on error, none is.
func (ms *MappingStore) AddRecursive(src, dst *tree.Tree) error {
	if src == nil || dst == nil {
		return ErrNilNode
	}

	srcNodes, dstNodes := src.PreOrder(), dst.PreOrder()
	if len(srcNodes) != len(dstNodes) {
		return fmt.Errorf("%w: %d and %d nodes", ErrShapeMismatch, len(srcNodes), len(dstNodes))
	}

	for idx := range srcNodes {
		if prev, ok := ms.srcToDst[srcNodes[idx]]; ok {
			return fmt.Errorf("%w: source %s is mapped to %s", ErrAlreadyMapped, srcNodes[idx].Type, prev.Type)
		}

		if prev, ok := ms.dstToSrc[dstNodes[idx]]; ok {
			return fmt.Errorf("%w: destination %s is mapped to %s", ErrAlreadyMapped, dstNodes[idx].Type, prev.Type)
		}
	}

	for idx := range srcNodes {
		err := ms.Add(srcNodes[idx], dstNodes[idx])
		if err != nil {
			return err
		}
	}

	return nil
}

// Remove deletes the mapping (src, dst) if present.
func (ms *MappingStore) Remove(src, dst *tree.Tree) bool {
	if !ms.Has(src, dst) {
		return false
	}

	delete(ms.srcToDst, src)
	delete(ms.dstToSrc, dst)

	ms.order = slices.DeleteFunc(ms.order, func(mapping Mapping) bool {
		return mapping.Src == src && mapping.Dst == dst
	})

	return true
}

// Has reports whether (src, dst) is a mapping of the store.
func (ms *MappingStore) Has(src, dst *tree.Tree) bool {
	mapped, ok := ms.srcToDst[src]

	return ok && mapped == dst
}

// Dst returns the destination node mapped to src, or nil.
func (ms *MappingStore) Dst(src *tree.Tree) *tree.Tree {
	return ms.srcToDst[src]
}

// Src returns the source node mapped to dst, or nil.
func (ms *MappingStore) Src(dst *tree.Tree) *tree.Tree {
	return ms.dstToSrc[dst]
}

// IsSrcMapped reports whether src is part of a mapping.
func (ms *MappingStore) IsSrcMapped(src *tree.Tree) bool {
	_, ok := ms.srcToDst[src]

	return ok
}

// IsDstMapped reports whether dst is part of a mapping.
func (ms *MappingStore) IsDstMapped(dst *tree.Tree) bool {
	_, ok := ms.dstToSrc[dst]

	return ok
}

// Mappings returns all mappings in insertion order. The slice is a copy.
func (ms *MappingStore) Mappings() []Mapping {
	return slices.Clone(ms.order)
}

// Len returns the number of mappings.
func (ms *MappingStore) Len() int {
	return len(ms.order)
}

// Clone returns an independent copy of the store over the same nodes.
func (ms *MappingStore) Clone() *MappingStore {
	cp := &MappingStore{
		srcToDst: make(map[*tree.Tree]*tree.Tree, len(ms.srcToDst)),
		dstToSrc: make(map[*tree.Tree]*tree.Tree, len(ms.dstToSrc)),
		order:    slices.Clone(ms.order),
	}

	for src, dst := range ms.srcToDst {
		cp.srcToDst[src] = dst
		cp.dstToSrc[dst] = src
	}

	return cp
}
