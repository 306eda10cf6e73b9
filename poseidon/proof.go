package poseidon

import "github.com/MuriData/poseidon-merkle/field"

// Record is one level of a Merkle membership proof: Idx is the position
// within the arity-wide group that the claimed child occupies, and
// Siblings holds all params.Arity children's hashes of that group, the
// entry at Idx included (Verify overwrites it with the claimed child); a
// nil entry means "absent", encoded distinctly from a present zero per
// spec.md §6.
//
// This is the shape shared by both the in-memory tree's small proof and
// the sparse tree's big proof (spec.md §4.5); each of merkle.Proof and
// bigmerkle.Proof wraps a []Record and calls Verify.
type Record struct {
	Idx      int
	Siblings []*field.Element
}

// Verify replays the proof path starting from leaf and reports whether the
// final hash equals root.
//
// For every record, a fresh sponge is loaded with the siblings via Replace
// (so missing positions default to zero), then the claimed child is
// written into position Idx with InsertUnchecked — overwriting whatever
// Replace placed there — before hashing. This is why the record only needs
// to carry the *other* children: the verifier supplies the one under test.
func Verify(leaf field.Element, path []Record, root field.Element) bool {
	for _, rec := range path {
		s := New()
		if err := s.Replace(rec.Siblings); err != nil {
			return false
		}
		s.InsertUnchecked(rec.Idx, leaf)
		leaf = s.Hash()
	}
	return leaf.Equal(root)
}
