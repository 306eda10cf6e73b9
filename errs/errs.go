// Package errs defines the error kinds shared by the poseidon, merkle and
// bigmerkle packages.
package errs

import (
	"errors"
	"fmt"
)

// ErrFullBuffer is returned by Sponge.Push when the sponge's rate positions
// are already saturated (cursor has reached the tree's arity).
var ErrFullBuffer = errors.New("poseidon-merkle: sponge buffer is full")

// ErrIndexOutOfBounds is returned when coordinate resolution inside the
// sparse tree's empty-interval index finds no matching interval. In
// practice this indicates an internal invariant violation or a caller
// index outside the tree's logical width.
var ErrIndexOutOfBounds = errors.New("poseidon-merkle: index out of bounds")

// ErrLeafNotFound is returned by Tree.Proof when the requested leaf value
// is not present anywhere in the in-memory tree.
var ErrLeafNotFound = errors.New("poseidon-merkle: leaf not found")

// otherError carries a serialization or key/value-layer failure along with
// the underlying description, matching the "Other(message)" kind from
// spec.md §7.
type otherError struct {
	msg string
	err error
}

func (e *otherError) Error() string { return e.msg }
func (e *otherError) Unwrap() error { return e.err }

// Other builds a formatted Other-kind error with no wrapped cause.
func Other(format string, args ...any) error {
	return &otherError{msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Other-kind error that preserves err for errors.Is/As,
// mirroring the "%w"-wrapping the teacher uses throughout pkg/setup and
// pkg/merkle/checkpoint.go.
func Wrap(context string, err error) error {
	if err == nil {
		return nil
	}
	return &otherError{msg: context + ": " + err.Error(), err: err}
}
