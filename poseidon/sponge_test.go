package poseidon

import (
	"testing"

	"github.com/MuriData/poseidon-merkle/field"
	"github.com/MuriData/poseidon-merkle/params"
)

func TestResetIdempotence(t *testing.T) {
	fresh := New()

	s := New()
	_ = s.Push(field.FromUint64(1))
	_ = s.Push(field.FromUint64(2))
	s.InsertUnchecked(3, field.FromUint64(3))
	_ = s.Hash()
	s.Reset()

	if s.cursor != fresh.cursor {
		t.Fatalf("cursor after reset = %d, want %d", s.cursor, fresh.cursor)
	}
	for i := range s.state {
		if !s.state[i].Equal(fresh.state[i]) {
			t.Fatalf("state[%d] after reset = %v, want %v", i, s.state[i], fresh.state[i])
		}
	}
}

func TestPushFullBuffer(t *testing.T) {
	s := New()
	for i := 0; i < params.Arity; i++ {
		if err := s.Push(field.FromUint64(uint64(i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := s.Push(field.FromUint64(99)); err == nil {
		t.Fatalf("expected FullBuffer error on the (arity+1)th push")
	}
}

func TestHashDeterministic(t *testing.T) {
	build := func() field.Element {
		s := New()
		_ = s.Push(field.FromUint64(1))
		_ = s.Push(field.FromUint64(2))
		return s.Hash()
	}

	a := build()
	b := build()
	if !a.Equal(b) {
		t.Fatalf("hash of identical inputs differs: %v vs %v", a, b)
	}
}

func TestHashSensitiveToInput(t *testing.T) {
	s1 := New()
	_ = s1.Push(field.FromUint64(1))
	h1 := s1.Hash()

	s2 := New()
	_ = s2.Push(field.FromUint64(2))
	h2 := s2.Hash()

	if h1.Equal(h2) {
		t.Fatalf("distinct inputs produced the same digest")
	}
}

func TestReplaceSkipsNilPositions(t *testing.T) {
	one := field.FromUint64(1)

	s := New()
	if err := s.Replace([]*field.Element{&one, nil, nil, nil}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !s.state[1].Equal(one) {
		t.Fatalf("position 0 not written from Replace")
	}
	if !s.state[2].Equal(field.Zero()) {
		t.Fatalf("nil position was not left at zero")
	}
}

func TestInsertUncheckedOverwritesReplace(t *testing.T) {
	a := field.FromUint64(1)
	b := field.FromUint64(2)

	s := New()
	_ = s.Replace([]*field.Element{&a, &a, &a, &a})
	s.InsertUnchecked(1, b)

	if !s.state[2].Equal(b) {
		t.Fatalf("InsertUnchecked did not overwrite the sibling at position 1")
	}
	if !s.state[1].Equal(a) || !s.state[3].Equal(a) {
		t.Fatalf("InsertUnchecked disturbed unrelated positions")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	leaf := field.FromUint64(7)
	sib := field.FromUint64(0)

	s := New()
	_ = s.Replace([]*field.Element{&sib, &sib, &sib, &sib})
	s.InsertUnchecked(0, leaf)
	root := s.Hash()

	path := []Record{{Idx: 0, Siblings: []*field.Element{&sib, &sib, &sib, &sib}}}
	if !Verify(leaf, path, root) {
		t.Fatalf("Verify rejected a path that should be valid")
	}

	if Verify(field.FromUint64(8), path, root) {
		t.Fatalf("Verify accepted the wrong leaf")
	}
}
