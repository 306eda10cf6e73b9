// Package field wraps the Ristretto255 scalar field supplied by
// github.com/cloudflare/circl/group so that the rest of this module only
// ever depends on the small structural contract spec.md §3 describes for a
// Poseidon leaf: copyable, equality-comparable, convertible from u64, and
// supporting in-place add/multiply.
package field

import (
	"fmt"

	"github.com/cloudflare/circl/group"
)

// Size is the canonical encoding length of an Element, in bytes.
const Size = 32

// Element is a single Ristretto255 scalar field element.
//
// The zero value is NOT a valid Element (its inner Scalar is nil); always
// obtain one from Zero, One, FromUint64 or FromCanonicalBytes.
type Element struct {
	s group.Scalar
}

func newScalar() group.Scalar {
	return group.Ristretto255.NewScalar()
}

// Zero returns the additive identity.
func Zero() Element {
	return Element{s: newScalar()}
}

// One returns the multiplicative identity.
func One() Element {
	s := newScalar()
	s.SetUint64(1)
	return Element{s: s}
}

// FromUint64 converts an unsigned 64-bit integer into a field element.
func FromUint64(v uint64) Element {
	s := newScalar()
	s.SetUint64(v)
	return Element{s: s}
}

// FromCanonicalBytes decodes the canonical 32-byte little-endian encoding
// of a scalar. It fails if b does not represent a value strictly less than
// the field order.
func FromCanonicalBytes(b [Size]byte) (Element, error) {
	s := newScalar()
	if err := s.UnmarshalBinary(b[:]); err != nil {
		return Element{}, fmt.Errorf("field: invalid canonical encoding: %w", err)
	}
	return Element{s: s}, nil
}

// IsValid reports whether e was constructed through one of the
// constructors above (as opposed to being a bare zero-value Element).
func (e Element) IsValid() bool {
	return e.s != nil
}

// Copy returns an independent element holding the same value. Because the
// underlying Scalar is an interface wrapping a pointer, a plain struct
// assignment would alias the pointee; Copy allocates a fresh scalar and
// assigns into it.
func (e Element) Copy() Element {
	s := newScalar()
	s.Set(e.s)
	return Element{s: s}
}

// Add returns e + other, leaving both operands unmodified.
func (e Element) Add(other Element) Element {
	z := newScalar()
	z.Add(e.s, other.s)
	return Element{s: z}
}

// AddAssign mutates e to e + other, satisfying the "in-place add" part of
// the Leaf contract in spec.md §3. It never mutates the scalar that e.s
// used to point to: it allocates a new one and reassigns the field, so any
// other Element value that previously shared e's scalar (via Copy's
// sibling, a bare struct assignment) is unaffected.
func (e *Element) AddAssign(other Element) {
	z := newScalar()
	z.Add(e.s, other.s)
	e.s = z
}

// Mul returns e * other, leaving both operands unmodified.
func (e Element) Mul(other Element) Element {
	z := newScalar()
	z.Mul(e.s, other.s)
	return Element{s: z}
}

// MulAssign mutates e to e * other. See AddAssign for the aliasing note.
func (e *Element) MulAssign(other Element) {
	z := newScalar()
	z.Mul(e.s, other.s)
	e.s = z
}

// Inverse returns the multiplicative inverse of e. Panics if e is zero,
// mirroring the field's own undefined behavior for inversion of zero.
func (e Element) Inverse() Element {
	z := newScalar()
	z.Inv(e.s)
	return Element{s: z}
}

// Equal reports whether e and other encode the same field value.
func (e Element) Equal(other Element) bool {
	if e.s == nil || other.s == nil {
		return e.s == other.s
	}
	return e.s.IsEqual(other.s)
}

// Bytes returns the canonical 32-byte little-endian encoding of e.
func (e Element) Bytes() [Size]byte {
	var out [Size]byte
	b, err := e.s.MarshalBinary()
	if err != nil {
		// The circl Scalar implementation for Ristretto255 cannot fail to
		// marshal a value it itself produced; this would indicate the
		// library was swapped for a non-conformant Group implementation.
		panic(fmt.Sprintf("field: marshal canonical scalar: %v", err))
	}
	copy(out[:], b)
	return out
}

// String returns a debug representation (hex of the canonical encoding);
// not part of the canonical codec.
func (e Element) String() string {
	if e.s == nil {
		return "<invalid>"
	}
	b := e.Bytes()
	return fmt.Sprintf("%x", b)
}
