package field

import "testing"

func TestZeroOneIdentities(t *testing.T) {
	z := Zero()
	o := One()

	if !z.Add(o).Equal(o) {
		t.Fatalf("zero is not the additive identity")
	}
	if !o.Mul(o).Equal(o) {
		t.Fatalf("one is not the multiplicative identity")
	}
}

func TestFromUint64Deterministic(t *testing.T) {
	a := FromUint64(42)
	b := FromUint64(42)
	if !a.Equal(b) {
		t.Fatalf("FromUint64(42) produced different elements across calls")
	}

	c := FromUint64(43)
	if a.Equal(c) {
		t.Fatalf("FromUint64(42) and FromUint64(43) compared equal")
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 2, 1 << 40, ^uint64(0)} {
		e := FromUint64(v)
		b := e.Bytes()

		got, err := FromCanonicalBytes(b)
		if err != nil {
			t.Fatalf("FromCanonicalBytes: %v", err)
		}
		if !got.Equal(e) {
			t.Fatalf("round trip mismatch for %d", v)
		}
	}
}

func TestAddAssignDoesNotAliasCopies(t *testing.T) {
	a := FromUint64(5)
	b := a // shallow struct copy, as value semantics require

	a.AddAssign(FromUint64(1))

	if !b.Equal(FromUint64(5)) {
		t.Fatalf("mutating a leaked into its copy b: got %v want 5", b)
	}
	if !a.Equal(FromUint64(6)) {
		t.Fatalf("AddAssign did not update the receiver: got %v want 6", a)
	}
}

func TestInverse(t *testing.T) {
	a := FromUint64(7)
	inv := a.Inverse()

	if !a.Mul(inv).Equal(One()) {
		t.Fatalf("a * a^-1 != 1")
	}
}

func TestCopyIndependence(t *testing.T) {
	a := FromUint64(9)
	b := a.Copy()
	a.MulAssign(FromUint64(2))

	if !b.Equal(FromUint64(9)) {
		t.Fatalf("Copy shared state with the original: got %v want 9", b)
	}
}
