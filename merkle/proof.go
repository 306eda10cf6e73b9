package merkle

import (
	"github.com/MuriData/poseidon-merkle/field"
	"github.com/MuriData/poseidon-merkle/poseidon"
)

// Proof is a membership proof against a Tree: one poseidon.Record per
// layer, root-ward from the leaf.
type Proof struct {
	path []poseidon.Record
}

// Verify reports whether leaf, replayed up p's path, hashes to root.
func (p *Proof) Verify(leaf field.Element, root field.Element) bool {
	return poseidon.Verify(leaf, p.path, root)
}
