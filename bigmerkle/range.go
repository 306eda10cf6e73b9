package bigmerkle

import "github.com/MuriData/poseidon-merkle/params"

// Range is a half-open interval [Lo, Hi) of base-layer indices.
type Range struct {
	Lo, Hi uint64
}

// NewRange returns the base-layer range covered by the node at (height, idx)
// within a tree of the given maxHeight.
func NewRange(maxHeight, height int, idx uint64) Range {
	span := pow(uint64(params.Arity), uint(maxHeight-height))
	return Range{Lo: span * idx, Hi: span * (idx + 1)}
}

func pow(base uint64, exp uint) uint64 {
	r := uint64(1)
	for i := uint(0); i < exp; i++ {
		r *= base
	}
	return r
}

// Contains reports whether r fully covers c: r.Lo <= c.Lo && r.Hi >= c.Hi.
//
// This is deliberately asymmetric (not commutative) and is used as the
// "does this empty interval cover this node's range" predicate — it is
// spelled as equality in the empty-interval index, but the relation itself
// is containment, not equivalence.
func (r Range) Contains(c Range) bool {
	return r.Lo <= c.Lo && r.Hi >= c.Hi
}

// single returns the singleton range [idx, idx+1).
func single(idx uint64) Range {
	return Range{Lo: idx, Hi: idx + 1}
}
