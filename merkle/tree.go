// Package merkle implements the fixed-arity, fixed-width in-memory Merkle
// tree from spec.md §4.2: params.MerkleWidth leaves, arity params.Arity,
// height H = log_A(N).
package merkle

import (
	"github.com/MuriData/poseidon-merkle/errs"
	"github.com/MuriData/poseidon-merkle/field"
	"github.com/MuriData/poseidon-merkle/params"
	"github.com/MuriData/poseidon-merkle/poseidon"
)

// Height is H = log_A(N), the number of layers above the leaves.
var Height = computeHeight()

func computeHeight() int {
	h := 0
	n := params.MerkleWidth
	for n > 1 {
		n /= params.Arity
		h++
	}
	return h
}

// Tree is a fixed-width A-ary Merkle tree over field.Element leaves. The
// zero value is ready to use (all leaves absent), matching the teacher's
// Default-derived MerkleTree.
type Tree struct {
	leaves [params.MerkleWidth]*field.Element
	root   *field.Element
	// raw[r] holds the materialized hash row at layer r (0 = leaves,
	// Height = root), populated lazily the first time Root is computed
	// after a change, and consumed by ProofIndex.
	raw [][]field.Element
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// InsertUnchecked sets leaves[i] = x and invalidates the cached root.
// Panics if i is out of [0, params.MerkleWidth), matching spec.md §7's
// policy for fixed-size indexing errors.
func (t *Tree) InsertUnchecked(i int, x field.Element) {
	t.leaves[i] = &x
	t.root = nil
	t.raw = nil
}

// RemoveUnchecked clears leaves[i] and returns its previous value (nil if
// it was already absent). Invalidates the cached root.
func (t *Tree) RemoveUnchecked(i int) *field.Element {
	prev := t.leaves[i]
	t.leaves[i] = nil
	t.root = nil
	t.raw = nil
	return prev
}

// Leaves returns a read-only view of the leaf array.
func (t *Tree) Leaves() [params.MerkleWidth]*field.Element {
	return t.leaves
}

// Root computes (or returns the cached) tree root.
//
// Row 0 is copied from leaves (absent entries become the zero element).
// Each subsequent row groups the row below into disjoint params.Arity-wide
// blocks and hashes each block with a fresh sponge, pushing the block's
// entries in order.
func (t *Tree) Root() field.Element {
	if t.root != nil {
		return *t.root
	}
	t.buildRaw()
	root := t.raw[Height][0]
	t.root = &root
	return root
}

func (t *Tree) buildRaw() {
	raw := make([][]field.Element, Height+1)

	row0 := make([]field.Element, params.MerkleWidth)
	for i, l := range t.leaves {
		if l != nil {
			row0[i] = *l
		} else {
			row0[i] = field.Zero()
		}
	}
	raw[0] = row0

	width := params.MerkleWidth
	for r := 1; r <= Height; r++ {
		width /= params.Arity
		row := make([]field.Element, width)
		prev := raw[r-1]
		for i := 0; i < width; i++ {
			from := i * params.Arity
			s := poseidon.New()
			for k := 0; k < params.Arity; k++ {
				v := prev[from+k]
				_ = s.Push(v)
			}
			row[i] = s.Hash()
		}
		raw[r] = row
	}

	t.raw = raw
}

// Proof finds the smallest index holding leaf and returns its membership
// proof. Returns errs.ErrLeafNotFound if leaf is absent from the tree.
func (t *Tree) Proof(leaf field.Element) (*Proof, error) {
	for i, l := range t.leaves {
		if l != nil && l.Equal(leaf) {
			return t.ProofIndex(i), nil
		}
	}
	return nil, errs.ErrLeafNotFound
}

// ProofIndex builds the membership proof for the leaf currently at
// position needle, regardless of its value (including absent positions,
// which prove against the zero leaf).
func (t *Tree) ProofIndex(needle int) *Proof {
	t.Root() // force raw to be populated
	proof := &Proof{}

	for r := 0; r < Height; r++ {
		blockLo := params.Arity * (needle / params.Arity)
		idxInRow := needle % params.Arity

		siblings := make([]*field.Element, params.Arity)
		for k := 0; k < params.Arity; k++ {
			v := t.raw[r][blockLo+k]
			siblings[k] = &v
		}

		proof.path = append(proof.path, poseidon.Record{Idx: idxInRow, Siblings: siblings})
		needle /= params.Arity
	}

	return proof
}
