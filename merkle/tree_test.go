package merkle

import (
	"testing"

	"github.com/MuriData/poseidon-merkle/field"
	"github.com/MuriData/poseidon-merkle/params"
)

func TestEmptyTreeRootDeterministic(t *testing.T) {
	a := New().Root()
	b := New().Root()
	if !a.Equal(b) {
		t.Fatalf("two empty trees produced different roots")
	}
}

func TestSingleLeafChangesRoot(t *testing.T) {
	empty := New().Root()

	tr := New()
	tr.InsertUnchecked(0, field.FromUint64(42))
	filled := tr.Root()

	if empty.Equal(filled) {
		t.Fatalf("inserting a leaf did not change the root")
	}
}

func TestRootDeterministicAcrossIndependentBuilds(t *testing.T) {
	build := func() field.Element {
		tr := New()
		for i := 0; i < params.MerkleWidth; i++ {
			tr.InsertUnchecked(i, field.FromUint64(uint64(i)))
		}
		return tr.Root()
	}

	if a, b := build(), build(); !a.Equal(b) {
		t.Fatalf("identically built trees disagree on root")
	}
}

func TestProofRoundTrip(t *testing.T) {
	tr := New()
	for i := 0; i < params.MerkleWidth; i++ {
		tr.InsertUnchecked(i, field.FromUint64(uint64(i*7+1)))
	}
	root := tr.Root()

	leaf := field.FromUint64(5*7 + 1)
	proof, err := tr.Proof(leaf)
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}
	if !proof.Verify(leaf, root) {
		t.Fatalf("valid proof rejected")
	}
	if proof.Verify(field.FromUint64(999), root) {
		t.Fatalf("proof verified against the wrong leaf")
	}
}

func TestProofMissingLeaf(t *testing.T) {
	tr := New()
	tr.InsertUnchecked(0, field.FromUint64(1))

	if _, err := tr.Proof(field.FromUint64(123456)); err == nil {
		t.Fatalf("expected ErrLeafNotFound for an absent leaf")
	}
}

func TestProofIndexAgainstAbsentLeaf(t *testing.T) {
	tr := New()
	tr.InsertUnchecked(1, field.FromUint64(1))
	root := tr.Root()

	proof := tr.ProofIndex(0)
	if !proof.Verify(field.Zero(), root) {
		t.Fatalf("absent leaf did not verify against the zero element")
	}
}

func TestRemoveUncheckedRestoresEmptyRoot(t *testing.T) {
	tr := New()
	empty := tr.Root()

	tr.InsertUnchecked(3, field.FromUint64(9))
	prev := tr.RemoveUnchecked(3)
	if prev == nil || !prev.Equal(field.FromUint64(9)) {
		t.Fatalf("RemoveUnchecked returned wrong previous value")
	}

	if !tr.Root().Equal(empty) {
		t.Fatalf("root after insert+remove differs from originally empty root")
	}
}
