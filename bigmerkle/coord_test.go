package bigmerkle

import "testing"

func TestCoordKeyDistinct(t *testing.T) {
	a := NewCoord(5, 12)
	b := NewCoord(5, 13)
	c := NewCoord(4, 12)

	ka, kb, kc := a.Key(), b.Key(), c.Key()
	if string(ka) == string(kb) {
		t.Fatalf("distinct indices produced the same key")
	}
	if string(ka) == string(kc) {
		t.Fatalf("distinct heights produced the same key")
	}
}

func TestCoordKeyStable(t *testing.T) {
	a := NewCoord(7, 99)
	if string(a.Key()) != string(NewCoord(7, 99).Key()) {
		t.Fatalf("identical coordinates produced different keys")
	}
}
