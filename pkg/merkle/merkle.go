// Package merkle folds ordered leaf digests into a single Merkle root.
//
// The tree is never materialized: each level is computed from the previous
// one and discarded, so only the root survives. Pairs are combined left to
// right; when a level has an odd number of digests the last one is combined
// with itself (not promoted unchanged).
//
// Everything here is pure and safe for concurrent use.
package merkle

import "github.com/Klingon-tech/txroot/pkg/types"

// Hashable is implemented by items that can derive their own leaf digest.
type Hashable interface {
	Hash(h Hasher) types.Digest
}

// Tree computes Merkle roots with a fixed Hasher.
type Tree struct {
	hasher Hasher
}

// Default is the Tree used by the package-level helpers (BLAKE3).
var Default = New(Blake3())

// New returns a Tree folding with h. A nil h selects BLAKE3.
func New(h Hasher) *Tree {
	if h == nil {
		h = Blake3()
	}
	return &Tree{hasher: h}
}

// Hasher returns the tree's hasher.
func (t *Tree) Hasher() Hasher {
	return t.hasher
}

// Combine folds two digests into their parent.
func (t *Tree) Combine(left, right types.Digest) types.Digest {
	return t.hasher.Combine(left, right)
}

// FoldLevel returns the next level up: Combine(level[2i], level[2i+1]) for
// each pair, with an odd tail combined with itself. The result has
// ceil(len(level)/2) digests. The input is not modified.
func (t *Tree) FoldLevel(level []types.Digest) []types.Digest {
	next := make([]types.Digest, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		left := level[i]
		right := left
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, t.hasher.Combine(left, right))
	}
	return next
}

// Root computes the Merkle root of leaves.
//
//   - 0 leaves: ("", false), the root is undefined
//   - 1 leaf: that leaf, unchanged
//   - otherwise: FoldLevel until one digest remains
func (t *Tree) Root(leaves []types.Digest) (types.Digest, bool) {
	if len(leaves) == 0 {
		return "", false
	}
	level := leaves
	for len(level) > 1 {
		level = t.FoldLevel(level)
	}
	return level[0], true
}

// Levels returns every level of the implicit tree, leaves first and the
// root last. Returns nil for empty input. Intended for inspection only.
func (t *Tree) Levels(leaves []types.Digest) [][]types.Digest {
	if len(leaves) == 0 {
		return nil
	}
	level := make([]types.Digest, len(leaves))
	copy(level, leaves)

	levels := [][]types.Digest{level}
	for len(level) > 1 {
		level = t.FoldLevel(level)
		levels = append(levels, level)
	}
	return levels
}

// Leaves maps items to their leaf digests, preserving order.
func Leaves[T Hashable](h Hasher, items []T) []types.Digest {
	leaves := make([]types.Digest, len(items))
	for i, item := range items {
		leaves[i] = item.Hash(h)
	}
	return leaves
}

// RootOf hashes items with the tree's hasher and returns their Merkle root.
// Returns ("", false) when items is empty.
func RootOf[T Hashable](t *Tree, items []T) (types.Digest, bool) {
	if len(items) == 0 {
		return "", false
	}
	return t.Root(Leaves(t.hasher, items))
}

// Root computes the Merkle root of leaves with the Default tree.
func Root(leaves []types.Digest) (types.Digest, bool) {
	return Default.Root(leaves)
}

// Combine folds two digests with the Default tree.
func Combine(left, right types.Digest) types.Digest {
	return Default.Combine(left, right)
}

// FoldLevel computes the next level with the Default tree.
func FoldLevel(level []types.Digest) []types.Digest {
	return Default.FoldLevel(level)
}
