// Package poseidon implements the Poseidon permutation and its
// sponge-based variable-arity hash over the field exposed by
// github.com/MuriData/poseidon-merkle/field, plus the membership-proof
// record shape and verification algorithm shared by the in-memory and
// sparse Merkle trees.
package poseidon

import (
	"github.com/MuriData/poseidon-merkle/errs"
	"github.com/MuriData/poseidon-merkle/field"
	"github.com/MuriData/poseidon-merkle/params"
)

// Sponge is a fixed-width Poseidon sponge state together with an insertion
// cursor. The zero value is not ready for use; call New.
type Sponge struct {
	state  [params.Width]field.Element
	cursor int
}

// New returns a fresh sponge: state all-zero, cursor at 0.
func New() *Sponge {
	s := &Sponge{}
	for i := range s.state {
		s.state[i] = field.Zero()
	}
	return s
}

// Reset reinitializes the sponge in place, equivalent to reassigning from
// New but without a fresh allocation.
func (s *Sponge) Reset() {
	for i := range s.state {
		s.state[i] = field.Zero()
	}
	s.cursor = 0
}

// Push appends x to the next free rate position. It fails with
// errs.ErrFullBuffer once the sponge has absorbed params.Arity elements.
func (s *Sponge) Push(x field.Element) error {
	if s.cursor == params.Arity {
		return errs.ErrFullBuffer
	}
	s.state[s.cursor+1] = x
	s.cursor++
	return nil
}

// Replace resets the sponge, then writes each non-nil entry leaves[i] into
// rate position i; a nil entry leaves the corresponding rate position at its
// default zero value. It fails with errs.ErrFullBuffer if a non-nil entry
// sits at position params.Arity or beyond.
func (s *Sponge) Replace(leaves []*field.Element) error {
	s.Reset()
	for i, l := range leaves {
		if l == nil {
			continue
		}
		if i >= params.Arity {
			return errs.ErrFullBuffer
		}
		s.InsertUnchecked(i, *l)
	}
	return nil
}

// InsertUnchecked writes x directly into rate position i (state[1+i]),
// advancing the cursor if needed. Unlike Push, it never fails; i must be
// less than params.Arity or this panics, mirroring the fixed-size indexing
// panics spec.md §7 reserves for programmer error.
func (s *Sponge) InsertUnchecked(i int, x field.Element) {
	s.state[1+i] = x
	if i+1 > s.cursor {
		s.cursor = i + 1
	}
}

// Hash runs the permutation over the current state and returns the first
// rate element, state[1]. It does not reset the sponge afterward; callers
// that want a fresh hash call Reset or construct a new Sponge.
func (s *Sponge) Hash() field.Element {
	s.permute()
	return s.state[1]
}

// permute runs the full Poseidon round schedule: R_F/2 full rounds, R_P
// partial rounds, R_F/2 full rounds, mixing with the MDS matrix after
// every round's S-box layer.
func (s *Sponge) permute() {
	halfFull := params.FullRounds / 2
	totalRounds := params.FullRounds + params.PartialRounds

	for r := 0; r < totalRounds; r++ {
		s.addRoundConstants(r)

		full := r < halfFull || r >= totalRounds-halfFull
		if full {
			for i := range s.state {
				s.state[i] = sbox(s.state[i])
			}
		} else {
			s.state[0] = sbox(s.state[0])
		}

		s.mix()
	}
}

func (s *Sponge) addRoundConstants(round int) {
	base := round * params.Width
	for i := range s.state {
		s.state[i].AddAssign(params.ARK[base+i])
	}
}

// sbox computes x^5 via repeated squarings: x^2, x^4, x^5.
func sbox(x field.Element) field.Element {
	x2 := x.Mul(x)
	x4 := x2.Mul(x2)
	return x4.Mul(x)
}

func (s *Sponge) mix() {
	var next [params.Width]field.Element
	for r := 0; r < params.Width; r++ {
		acc := field.Zero()
		for c := 0; c < params.Width; c++ {
			acc.AddAssign(params.MDS[r][c].Mul(s.state[c]))
		}
		next[r] = acc
	}
	s.state = next
}
