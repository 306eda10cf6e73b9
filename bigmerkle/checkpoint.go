package bigmerkle

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MuriData/poseidon-merkle/errs"
	"github.com/MuriData/poseidon-merkle/field"
	"github.com/MuriData/poseidon-merkle/params"
	"github.com/MuriData/poseidon-merkle/poseidon"
)

// CheckpointScheme selects the levels a Snapshot captures. A Snapshot is a
// compact, portable capture of a Tree's cache at those chosen levels,
// adapted from the fixed-depth checkpointed-SMT idea to the A-ary sparse
// tree: instead of persisting every interior node, only the entries at
// CheckpointScheme.Levels are kept. A Snapshot lets a fresh process warm a
// tree's cache (and thus skip re-deriving those levels on its first Root
// call) without shipping the whole db.
type CheckpointScheme struct {
	// Levels are heights (root-relative, 0 = root) to persist, sorted
	// ascending with the tree's own height as the final (base-layer)
	// entry.
	Levels []int
}

// Snapshot holds the entries captured at each scheme level.
type Snapshot struct {
	Height int
	Scheme CheckpointScheme
	// entries[level][idx] = the node value at that coordinate.
	entries map[int]map[uint64]field.Element
}

// Snapshot walks the cache (plus db for the base level, if included in the
// scheme) and captures every present entry at each scheme level.
func (t *Tree) Snapshot(scheme CheckpointScheme) (*Snapshot, error) {
	if err := validateScheme(scheme, t.height); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Height:  t.height,
		Scheme:  scheme,
		entries: make(map[int]map[uint64]field.Element, len(scheme.Levels)),
	}

	for _, lvl := range scheme.Levels {
		span := pow(uint64(params.Arity), uint(t.height-lvl))
		top := t.maxIdx / span
		m := make(map[uint64]field.Element)

		for idx := uint64(0); idx <= top; idx++ {
			if t.NodeIsEmpty(lvl, idx) {
				continue
			}
			n, err := t.node(lvl, idx)
			if err != nil {
				return nil, err
			}
			if n != nil {
				m[idx] = *n
			}
		}
		snap.entries[lvl] = m
	}

	return snap, nil
}

// Warm writes every captured entry back into t's cache (base-layer entries
// are skipped — they belong in db, not cache — matching the leaf/interior
// split the two-store design relies on).
func (s *Snapshot) Warm(t *Tree) error {
	for lvl, m := range s.entries {
		if lvl == t.height {
			continue
		}
		for idx, v := range m {
			if err := t.cache.Put(NewCoord(lvl, idx).Key(), encodeElement(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// segment is a contiguous gap between two consecutive checkpoint levels —
// (seg.lo, seg.hi] — that RebuildProof can reconstruct independently of
// every other segment, since its base-layer data comes straight from
// either the snapshot (already persisted) or, for the deepest gap, db.
type segment struct {
	lo, hi int
	bottom bool
}

// buildSegments partitions scheme.Levels into the gaps a rebuild walks:
// each gap spans (prev level, next level], with the gap ending at the
// tree's own height flagged bottom, since that is the one whose base
// entries must be re-fetched (and, for interior heights above it,
// re-hashed) from raw leaves rather than replayed from a snapshot.
func buildSegments(scheme CheckpointScheme, height int) []segment {
	segs := make([]segment, 0, len(scheme.Levels))
	lo := 0
	for _, hi := range scheme.Levels {
		if hi == 0 {
			continue
		}
		segs = append(segs, segment{lo: lo, hi: hi, bottom: hi == height})
		lo = hi
	}
	return segs
}

// RebuildProof reconstructs needle's membership proof from snap plus t's
// authoritative store, without touching t's cache: buildSegments splits
// the climb from the base layer to the root into independent gaps, each
// rebuilt in its own goroutine (bounded to the CPU count via errgroup).
// The bottom gap re-fetches its raw leaves through gapBaseEntries's own
// worker pool and re-hashes them upward; every other gap just replays the
// entries Snapshot already captured. No segment depends on another
// segment's output, since every gap's base data is independently available
// — which is what makes the fan-out safe.
func RebuildProof(ctx context.Context, t *Tree, needle uint64, snap *Snapshot) (*Proof, error) {
	if snap.Height != t.height {
		return nil, errs.Other("bigmerkle: snapshot height %d does not match tree height %d", snap.Height, t.height)
	}

	segs := buildSegments(snap.Scheme, t.height)
	if len(segs) == 0 {
		return nil, errs.Other("bigmerkle: checkpoint scheme covers no segments")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]map[int]poseidon.Record, len(segs))
	for i, seg := range segs {
		i, seg := i, seg
		g.Go(func() error {
			recs, err := rebuildSegment(gctx, t, seg, needle, snap)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byHeight := make(map[int]poseidon.Record, t.height)
	for _, recs := range results {
		for h, r := range recs {
			byHeight[h] = r
		}
	}

	proof := &Proof{}
	for h := t.height; h >= 1; h-- {
		r, ok := byHeight[h]
		if !ok {
			return nil, errs.Other("bigmerkle: checkpoint scheme produced no record for height %d", h)
		}
		proof.path = append(proof.path, r)
	}
	return proof, nil
}

// rebuildSegment reconstructs every proof record for heights (seg.lo,
// seg.hi] that lie on needle's ancestor path, starting from the base
// entries gapBaseEntries supplies at height seg.hi and collapsing them
// one arity-wide block at a time on the way up.
func rebuildSegment(ctx context.Context, t *Tree, seg segment, needle uint64, snap *Snapshot) (map[int]poseidon.Record, error) {
	height := t.height
	spanLo := pow(uint64(params.Arity), uint(height-seg.lo))
	spanHi := pow(uint64(params.Arity), uint(height-seg.hi))
	ratio := spanLo / spanHi

	ancestorAtLo := needle / spanLo
	baseStart := ancestorAtLo * ratio
	size := ratio

	cur, err := gapBaseEntries(ctx, t, seg, baseStart, size, snap)
	if err != nil {
		return nil, err
	}

	localAncestor := needle/spanHi - baseStart
	records := make(map[int]poseidon.Record, seg.hi-seg.lo)

	for h := seg.hi; h > seg.lo; h-- {
		blockLo := (localAncestor / uint64(params.Arity)) * uint64(params.Arity)
		idxInBlock := int(localAncestor % uint64(params.Arity))

		siblings := make([]*field.Element, params.Arity)
		for i := 0; i < params.Arity; i++ {
			if v, ok := cur[blockLo+uint64(i)]; ok {
				siblings[i] = &v
			} else if h < height {
				// An absent interior node is an empty subtree, which
				// Tree.node reports as the zero element.
				z := field.Zero()
				siblings[i] = &z
			}
		}
		records[h] = poseidon.Record{Idx: idxInBlock, Siblings: siblings}

		next := make(map[uint64]field.Element, size/uint64(params.Arity)+1)
		for blockStart := uint64(0); blockStart < size; blockStart += uint64(params.Arity) {
			s := poseidon.New()
			present := false
			for i := 0; i < params.Arity; i++ {
				if v, ok := cur[blockStart+uint64(i)]; ok {
					s.InsertUnchecked(i, v)
					present = true
				}
			}
			if present {
				next[blockStart/uint64(params.Arity)] = s.Hash()
			}
		}

		cur = next
		size /= uint64(params.Arity)
		localAncestor /= uint64(params.Arity)
	}

	return records, nil
}

// gapBaseEntries supplies the height-seg.hi values a segment starts its
// climb from, keyed by position local to [baseStart, baseStart+size). For
// the bottom segment these are raw leaves, fetched and decoded straight
// from db through a bounded worker pool (the parallel re-hashing step the
// teacher's rebuildBottomEntries performs); every other segment already
// has them sitting in the snapshot.
func gapBaseEntries(ctx context.Context, t *Tree, seg segment, baseStart, size uint64, snap *Snapshot) (map[uint64]field.Element, error) {
	if !seg.bottom {
		m := snap.entries[seg.hi]
		out := make(map[uint64]field.Element, size)
		for local := uint64(0); local < size; local++ {
			if v, ok := m[baseStart+local]; ok {
				out[local] = v
			}
		}
		return out, nil
	}

	var mu sync.Mutex
	out := make(map[uint64]field.Element, size)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for local := uint64(0); local < size; local++ {
		local := local
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			v, err := t.node(seg.hi, baseStart+local)
			if err != nil {
				return err
			}
			if v != nil {
				mu.Lock()
				out[local] = *v
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Binary format:
//
//	uint32(height) | uint32(numLevels)
//	uint32(level_0) | ... | uint32(level_k)
//	for each level (in scheme order):
//	  uint32(count)
//	  for each entry (sorted by idx): uint64(idx) | [32]byte(value)

// Save writes s in the format above.
func (s *Snapshot) Save(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint32(s.Height)); err != nil {
		return fmt.Errorf("write height: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(s.Scheme.Levels))); err != nil {
		return fmt.Errorf("write level count: %w", err)
	}
	for _, lvl := range s.Scheme.Levels {
		if err := binary.Write(w, binary.BigEndian, uint32(lvl)); err != nil {
			return fmt.Errorf("write level: %w", err)
		}
	}

	for _, lvl := range s.Scheme.Levels {
		m := s.entries[lvl]
		if err := binary.Write(w, binary.BigEndian, uint32(len(m))); err != nil {
			return fmt.Errorf("write level %d count: %w", lvl, err)
		}
		idxs := make([]uint64, 0, len(m))
		for idx := range m {
			idxs = append(idxs, idx)
		}
		sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

		for _, idx := range idxs {
			if err := binary.Write(w, binary.BigEndian, idx); err != nil {
				return fmt.Errorf("write level %d idx: %w", lvl, err)
			}
			v := m[idx]
			b := v.Bytes()
			if _, err := w.Write(b[:]); err != nil {
				return fmt.Errorf("write level %d value: %w", lvl, err)
			}
		}
	}
	return nil
}

// LoadSnapshot reads a Snapshot written by Save.
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var height, numLevels uint32
	if err := binary.Read(r, binary.BigEndian, &height); err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &numLevels); err != nil {
		return nil, fmt.Errorf("read level count: %w", err)
	}

	levels := make([]int, numLevels)
	for i := range levels {
		var lvl uint32
		if err := binary.Read(r, binary.BigEndian, &lvl); err != nil {
			return nil, fmt.Errorf("read level: %w", err)
		}
		levels[i] = int(lvl)
	}

	entries := make(map[int]map[uint64]field.Element, len(levels))
	for _, lvl := range levels {
		var count uint32
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return nil, fmt.Errorf("read level %d count: %w", lvl, err)
		}
		m := make(map[uint64]field.Element, count)
		for j := uint32(0); j < count; j++ {
			var idx uint64
			if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
				return nil, fmt.Errorf("read level %d idx: %w", lvl, err)
			}
			var b [field.Size]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, fmt.Errorf("read level %d value: %w", lvl, err)
			}
			e, err := field.FromCanonicalBytes(b)
			if err != nil {
				return nil, fmt.Errorf("decode level %d value: %w", lvl, err)
			}
			m[idx] = e
		}
		entries[lvl] = m
	}

	return &Snapshot{
		Height:  int(height),
		Scheme:  CheckpointScheme{Levels: levels},
		entries: entries,
	}, nil
}

func validateScheme(scheme CheckpointScheme, height int) error {
	if len(scheme.Levels) == 0 {
		return errs.Other("bigmerkle: checkpoint scheme has no levels")
	}
	if scheme.Levels[len(scheme.Levels)-1] != height {
		return errs.Other("bigmerkle: checkpoint scheme must end at tree height %d, got %d",
			height, scheme.Levels[len(scheme.Levels)-1])
	}
	for i := 1; i < len(scheme.Levels); i++ {
		if scheme.Levels[i] <= scheme.Levels[i-1] {
			return errs.Other("bigmerkle: checkpoint levels must be strictly ascending")
		}
	}
	if scheme.Levels[0] < 0 {
		return errs.Other("bigmerkle: checkpoint levels must be non-negative")
	}
	return nil
}
