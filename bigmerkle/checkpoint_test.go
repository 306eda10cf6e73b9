package bigmerkle

import (
	"bytes"
	"context"
	"testing"

	"github.com/MuriData/poseidon-merkle/field"
)

func TestSnapshotSaveLoadWarmRoundTrip(t *testing.T) {
	tr := newTestTree(t, 1<<10)
	for i := uint64(0); i < 8; i++ {
		if err := tr.Insert(i, field.FromUint64(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	root, err := tr.Root(context.Background())
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	scheme := CheckpointScheme{Levels: []int{2, tr.Height()}}
	snap, err := tr.Snapshot(scheme)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	var buf bytes.Buffer
	if err := snap.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadSnapshot(&buf)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	fresh := newTestTree(t, 1<<10)
	for i := uint64(0); i < 8; i++ {
		if err := fresh.Insert(i, field.FromUint64(i)); err != nil {
			t.Fatalf("fresh insert %d: %v", i, err)
		}
	}
	if err := loaded.Warm(fresh); err != nil {
		t.Fatalf("Warm: %v", err)
	}

	freshRoot, err := fresh.Root(context.Background())
	if err != nil {
		t.Fatalf("fresh Root: %v", err)
	}
	if !freshRoot.Equal(root) {
		t.Fatalf("root computed after Warm does not match the original")
	}

	proof, err := fresh.Proof(5)
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}
	if !proof.Verify(field.FromUint64(5), freshRoot) {
		t.Fatalf("proof from warmed tree failed to verify")
	}
}

func TestRebuildProofMatchesTreeProof(t *testing.T) {
	tr := newTestTree(t, 1<<10)
	for i := uint64(0); i < 16; i++ {
		if err := tr.Insert(i, field.FromUint64(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	root, err := tr.Root(context.Background())
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	scheme := CheckpointScheme{Levels: []int{2, tr.Height()}}
	snap, err := tr.Snapshot(scheme)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	want, err := tr.Proof(9)
	if err != nil {
		t.Fatalf("Proof: %v", err)
	}

	got, err := RebuildProof(context.Background(), tr, 9, snap)
	if err != nil {
		t.Fatalf("RebuildProof: %v", err)
	}

	if !got.Equal(want) {
		t.Fatalf("rebuilt proof differs structurally from Tree.Proof's own")
	}
	if !got.Verify(field.FromUint64(9), root) {
		t.Fatalf("rebuilt proof failed to verify")
	}
}

func TestRebuildProofRejectsHeightMismatch(t *testing.T) {
	tr := newTestTree(t, 1<<10)
	snap := &Snapshot{Height: tr.Height() + 1, Scheme: CheckpointScheme{Levels: []int{tr.Height() + 1}}}

	if _, err := RebuildProof(context.Background(), tr, 0, snap); err == nil {
		t.Fatalf("expected a height-mismatch error")
	}
}
