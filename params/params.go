// Package params holds the build-time Poseidon/Merkle constants and the
// immutable round-constant and MDS-matrix tables loaded from embedded
// binary blobs, the same shape as the teacher's config/constants.go and
// the original Rust's lazy_static! ROUND_CONSTANTS/MDS_MATRIX.
package params

import (
	_ "embed"
	"fmt"

	"github.com/MuriData/poseidon-merkle/field"
)

// Build-time constants. These mirror the defaults of the original
// dusk-poseidon-merkle source (original_source/src/lib.rs): width 5,
// 8 full rounds, 59 partial rounds, arity 4, logical small-tree width 64.
const (
	// Width is the sponge state size W.
	Width = 5
	// Arity is the Merkle arity A = W - 1, i.e. the sponge rate.
	Arity = Width - 1
	// FullRounds is R_F, the number of full S-box rounds (even).
	FullRounds = 8
	// PartialRounds is R_P, the number of partial S-box rounds.
	PartialRounds = 59
	// MerkleWidth is N, the leaf count of the in-memory small tree.
	MerkleWidth = 64
	// Stride is the sparse tree's cache granularity (STRIDE in spec.md §4.4).
	Stride = 2
)

func init() {
	if Width != Arity+1 {
		panic("params: Width must equal Arity+1")
	}
	if FullRounds%2 != 0 {
		panic("params: FullRounds must be even")
	}
	if MerkleWidth <= Arity {
		panic("params: MerkleWidth must exceed Arity")
	}
}

//go:embed assets/ark.bin
var arkBlob []byte

//go:embed assets/mds.bin
var mdsBlob []byte

// minARKLen is the minimum number of round-constant elements required by
// the permutation schedule: W elements injected per round, over
// FullRounds+PartialRounds rounds.
const minARKLen = Width * (FullRounds + PartialRounds)

// ARK is the flattened round-constant table, laid out as
// ARK[r*Width+i] for round r and state position i.
var ARK []field.Element

// MDS is the W×W maximum-distance-separable diffusion matrix, row-major.
var MDS [Width][Width]field.Element

func init() {
	if len(arkBlob)%field.Size != 0 {
		panic(fmt.Sprintf("params: ark.bin length %d is not a multiple of %d", len(arkBlob), field.Size))
	}
	n := len(arkBlob) / field.Size
	if n < minARKLen {
		panic(fmt.Sprintf("params: ark.bin holds %d elements, need at least %d", n, minARKLen))
	}

	ARK = make([]field.Element, n)
	for i := 0; i < n; i++ {
		var b [field.Size]byte
		copy(b[:], arkBlob[i*field.Size:(i+1)*field.Size])
		e, err := field.FromCanonicalBytes(b)
		if err != nil {
			panic(fmt.Sprintf("params: ark.bin element %d: %v", i, err))
		}
		ARK[i] = e
	}

	wantMDSLen := Width * Width * field.Size
	if len(mdsBlob) != wantMDSLen {
		panic(fmt.Sprintf("params: mds.bin length %d, want %d", len(mdsBlob), wantMDSLen))
	}
	for r := 0; r < Width; r++ {
		for c := 0; c < Width; c++ {
			idx := r*Width + c
			var b [field.Size]byte
			copy(b[:], mdsBlob[idx*field.Size:(idx+1)*field.Size])
			e, err := field.FromCanonicalBytes(b)
			if err != nil {
				panic(fmt.Sprintf("params: mds.bin entry (%d,%d): %v", r, c, err))
			}
			MDS[r][c] = e
		}
	}
}
