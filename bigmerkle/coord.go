package bigmerkle

import (
	"encoding/binary"

	"github.com/MuriData/poseidon-merkle/params"
)

// coordSize is the byte length of a serialized Coord: a uint32 height
// followed by a uint64 idx.
const coordSize = 4 + 8

// Coord identifies a node inside the sparse tree: Height 0 is the root,
// Height == tree height is the base (leaf) layer. No range consistency is
// enforced by this type alone; it is a bare addressable position.
type Coord struct {
	Height int
	Idx    uint64
}

// NewCoord builds a Coord.
func NewCoord(height int, idx uint64) Coord {
	return Coord{Height: height, Idx: idx}
}

// Key returns the injective, fixed-width byte encoding used to address this
// coordinate in a Store. The encoding is stable for the lifetime of a
// persisted tree.
func (c Coord) Key() []byte {
	buf := make([]byte, coordSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(c.Height))
	binary.BigEndian.PutUint64(buf[4:12], c.Idx)
	return buf
}

// parentCoord returns the parent of c, assuming c.Height > 0.
func (c Coord) parentCoord() Coord {
	return Coord{Height: c.Height - 1, Idx: c.Idx / uint64(params.Arity)}
}
