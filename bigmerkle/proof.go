package bigmerkle

import (
	"encoding/binary"

	"github.com/MuriData/poseidon-merkle/errs"
	"github.com/MuriData/poseidon-merkle/field"
	"github.com/MuriData/poseidon-merkle/params"
	"github.com/MuriData/poseidon-merkle/poseidon"
)

// Proof is a membership proof against a Tree: one poseidon.Record per
// level, ordered from the leaf up to the root. Its length equals the
// tree's dynamic height at the time the proof was built.
type Proof struct {
	path []poseidon.Record
}

// Verify reports whether leaf, replayed up p's path, hashes to root.
func (p *Proof) Verify(leaf field.Element, root field.Element) bool {
	return poseidon.Verify(leaf, p.path, root)
}

// Equal compares two proofs structurally, over the data sequence only.
func (p *Proof) Equal(other *Proof) bool {
	if len(p.path) != len(other.path) {
		return false
	}
	for i, rec := range p.path {
		o := other.path[i]
		if rec.Idx != o.Idx || len(rec.Siblings) != len(o.Siblings) {
			return false
		}
		for j, s := range rec.Siblings {
			os := o.Siblings[j]
			if (s == nil) != (os == nil) {
				return false
			}
			if s != nil && !s.Equal(*os) {
				return false
			}
		}
	}
	return true
}

// Marshal encodes p as a stable sequence of (idx uint32, [A optional
// 32-byte elements]) records. An absent sibling is encoded as a 0x00
// presence byte followed by 32 zero padding bytes; a present one as 0x01
// followed by its canonical encoding — so every record has the same length
// and an absent sibling is distinguishable from a present zero.
func (p *Proof) Marshal() []byte {
	out := make([]byte, 0, len(p.path)*(4+params.Arity*(1+field.Size)))
	for _, rec := range p.path {
		var idxBuf [4]byte
		binary.BigEndian.PutUint32(idxBuf[:], uint32(rec.Idx))
		out = append(out, idxBuf[:]...)

		for _, s := range rec.Siblings {
			if s == nil {
				out = append(out, 0x00)
				out = append(out, make([]byte, field.Size)...)
				continue
			}
			out = append(out, 0x01)
			b := s.Bytes()
			out = append(out, b[:]...)
		}
	}
	return out
}

// UnmarshalProof decodes a buffer produced by Marshal. arity and height
// must match the tree the proof was generated from.
func UnmarshalProof(buf []byte, height int) (*Proof, error) {
	recordLen := 4 + params.Arity*(1+field.Size)
	if len(buf) != height*recordLen {
		return nil, errs.Other("bigmerkle: proof buffer length %d, want %d", len(buf), height*recordLen)
	}

	proof := &Proof{}
	for r := 0; r < height; r++ {
		off := r * recordLen
		idx := int(binary.BigEndian.Uint32(buf[off : off+4]))
		off += 4

		siblings := make([]*field.Element, params.Arity)
		for i := 0; i < params.Arity; i++ {
			present := buf[off]
			off++
			if present == 0x00 {
				off += field.Size
				continue
			}
			var b [field.Size]byte
			copy(b[:], buf[off:off+field.Size])
			off += field.Size
			e, err := field.FromCanonicalBytes(b)
			if err != nil {
				return nil, errs.Wrap("bigmerkle: decode proof sibling", err)
			}
			siblings[i] = &e
		}

		proof.path = append(proof.path, poseidon.Record{Idx: idx, Siblings: siblings})
	}
	return proof, nil
}
