package bigmerkle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MuriData/poseidon-merkle/field"
)

func TestProofMarshalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(filepath.Join(dir, "db"), filepath.Join(dir, "cache"), 1<<10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	for i := uint64(0); i < 4; i++ {
		if err := tr.Insert(i, field.FromUint64(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	root, err := tr.Root(context.Background())
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	proof, err := tr.Proof(2)
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}

	buf := proof.Marshal()
	decoded, err := UnmarshalProof(buf, tr.Height())
	if err != nil {
		t.Fatalf("UnmarshalProof: %v", err)
	}

	if !proof.Equal(decoded) {
		t.Fatalf("decoded proof differs structurally from the original")
	}
	if !decoded.Verify(field.FromUint64(2), root) {
		t.Fatalf("decoded proof failed to verify")
	}
}
