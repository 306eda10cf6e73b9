// Package bigmerkle implements the sparse, disk-backed k-ary Merkle tree:
// a logically 2^N-wide accumulator that materializes only occupied leaves
// and the interior nodes needed to answer queries, tracks empty ranges via
// a disjoint-interval index, memoizes interior hashes at stride intervals,
// and parallelizes root computation across a worker pool.
package bigmerkle

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/MuriData/poseidon-merkle/errs"
	"github.com/MuriData/poseidon-merkle/field"
	"github.com/MuriData/poseidon-merkle/params"
	"github.com/MuriData/poseidon-merkle/poseidon"
)

// Tree is the sparse Merkle tree handle. It is single-owner: mutation
// methods (Insert, Remove) are not safe for concurrent use, and mutating
// the tree concurrently with Root is undefined, matching the ordering
// contract of the underlying KV stores.
type Tree struct {
	width  uint64
	height int
	maxIdx uint64

	// emptyIntervals is a disjoint partition of base-layer indices never
	// inserted (or removed since their last insertion). Owned by this
	// handle; clones for Root's worker pool get a deep copy.
	emptyIntervals []Range

	db    Store
	cache Store
}

// New opens (or creates) the authoritative store at dbPath and the
// disposable cache store at cachePath, and returns a tree of the given
// logical width. width must be an exact power of params.Arity.
func New(dbPath, cachePath string, width uint64) (*Tree, error) {
	height := treeHeight(width)

	db, err := OpenBadgerStore(dbPath)
	if err != nil {
		return nil, err
	}
	cache, err := OpenBadgerStore(cachePath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Tree{
		width:          width,
		height:         height,
		emptyIntervals: []Range{NewRange(height, 0, 0)},
		db:             db,
		cache:          cache,
	}, nil
}

func treeHeight(width uint64) int {
	h := 0
	n := width
	for n > 1 {
		n /= uint64(params.Arity)
		h++
	}
	return h
}

// Height returns H = log_A(width).
func (t *Tree) Height() int { return t.height }

// Width returns the tree's logical leaf capacity.
func (t *Tree) Width() uint64 { return t.width }

// Close releases both underlying stores.
func (t *Tree) Close() error {
	errDB := t.db.Close()
	errCache := t.cache.Close()
	if errDB != nil {
		return errDB
	}
	return errCache
}

func (t *Tree) clone() *Tree {
	ei := make([]Range, len(t.emptyIntervals))
	copy(ei, t.emptyIntervals)
	return &Tree{
		width:          t.width,
		height:         t.height,
		maxIdx:         t.maxIdx,
		emptyIntervals: ei,
		db:             t.db,
		cache:          t.cache,
	}
}

// NodeIsEmpty reports whether the node at (height, idx) falls entirely
// inside a currently-empty base-layer interval.
func (t *Tree) NodeIsEmpty(height int, idx uint64) bool {
	r := NewRange(t.height, height, idx)
	for _, e := range t.emptyIntervals {
		if e.Contains(r) {
			return true
		}
	}
	return false
}

func (t *Tree) findInterval(r Range) int {
	for i, e := range t.emptyIntervals {
		if e.Contains(r) {
			return i
		}
	}
	return -1
}

// Insert persists leaf at base index idx and updates the empty-interval
// index and cache lineage accordingly.
func (t *Tree) Insert(idx uint64, leaf field.Element) error {
	coord := NewCoord(t.height, idx)
	if err := t.db.Put(coord.Key(), encodeElement(leaf)); err != nil {
		return err
	}
	return t.Inserted(idx)
}

// Inserted flags idx as occupied: it splits the empty interval that used
// to cover it (if any) and invalidates cached ancestors of (H, idx). Call
// this directly when a leaf was persisted by other means.
func (t *Tree) Inserted(idx uint64) error {
	if idx > t.maxIdx {
		t.maxIdx = idx
	}

	if t.NodeIsEmpty(t.height, idx) {
		singleton := single(idx)
		ei := t.findInterval(singleton)
		if ei < 0 {
			return errs.ErrIndexOutOfBounds
		}
		e := t.emptyIntervals[ei]

		if idx+1 < e.Hi {
			right := e
			right.Lo = idx + 1
			t.emptyIntervals[ei] = right
		} else {
			t.emptyIntervals = append(t.emptyIntervals[:ei], t.emptyIntervals[ei+1:]...)
		}

		if idx > e.Lo {
			left := e
			left.Hi = idx
			t.emptyIntervals = append(t.emptyIntervals, left)
		}
	}

	return t.modified(idx)
}

// Remove deletes the leaf at idx and marks it absent for hash purposes.
func (t *Tree) Remove(idx uint64) error {
	if err := t.db.Delete(NewCoord(t.height, idx).Key()); err != nil {
		return err
	}
	return t.Removed(idx)
}

// Removed flags idx as empty again, merging or extending adjacent empty
// intervals, and invalidates cached ancestors of (H, idx).
func (t *Tree) Removed(idx uint64) error {
	left := idx > 0 && t.NodeIsEmpty(t.height, idx-1)
	right := idx < t.width-1 && t.NodeIsEmpty(t.height, idx+1)

	switch {
	case left && right:
		li := t.findInterval(single(idx - 1))
		ri := t.findInterval(single(idx + 1))
		if li < 0 || ri < 0 {
			return errs.ErrIndexOutOfBounds
		}
		t.emptyIntervals[li].Hi = t.emptyIntervals[ri].Hi
		t.emptyIntervals = append(t.emptyIntervals[:ri], t.emptyIntervals[ri+1:]...)

	case left:
		li := t.findInterval(single(idx - 1))
		if li < 0 {
			return errs.ErrIndexOutOfBounds
		}
		t.emptyIntervals[li].Hi = idx + 1

	case right:
		ri := t.findInterval(single(idx + 1))
		if ri < 0 {
			return errs.ErrIndexOutOfBounds
		}
		t.emptyIntervals[ri].Lo = idx

	default:
		t.emptyIntervals = append(t.emptyIntervals, single(idx))
	}

	return t.modified(idx)
}

// modified deletes every cached ancestor coordinate of (H, idx), from the
// base layer up to and including the root. This is the fine-grained
// invalidation spec.md's I5 invariant calls for, in place of the coarser
// whole-cache wipe a full-rebuild approach would require.
func (t *Tree) modified(idx uint64) error {
	h := t.height
	i := idx
	for {
		if err := t.cache.Delete(NewCoord(h, i).Key()); err != nil {
			return err
		}
		if h == 0 {
			return nil
		}
		i /= uint64(params.Arity)
		h--
	}
}

// ClearCache discards the cache store. It is never required for
// correctness (see modified), but is exposed for callers that want to
// reclaim disk space; destroy additionally removes the cache's files on
// disk rather than just dropping keys.
func (t *Tree) ClearCache(cachePath string, destroy bool) error {
	if !destroy {
		if bs, ok := t.cache.(*BadgerStore); ok {
			if err := bs.db.DropAll(); err != nil {
				return errs.Wrap("bigmerkle: drop cache keys", err)
			}
		}
	}
	if err := t.cache.Close(); err != nil {
		return err
	}
	if destroy {
		if err := DestroyBadgerStore(cachePath); err != nil {
			return err
		}
	}
	cache, err := OpenBadgerStore(cachePath)
	if err != nil {
		return err
	}
	t.cache = cache
	return nil
}

// node is the central recursion of §4.4: base-layer lookups hit db
// directly, empty subtrees return the zero element without touching
// storage, and everything else is computed (and, at stride-aligned
// heights, cached).
func (t *Tree) node(h int, idx uint64) (*field.Element, error) {
	if h == t.height {
		raw, found, err := t.db.Get(NewCoord(h, idx).Key())
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		e, err := decodeElement(raw)
		if err != nil {
			return nil, err
		}
		return &e, nil
	}

	if t.NodeIsEmpty(h, idx) {
		z := field.Zero()
		return &z, nil
	}

	return t.nonBaseNode(h, idx)
}

func (t *Tree) nonBaseNode(h int, idx uint64) (*field.Element, error) {
	coord := NewCoord(h, idx)
	shouldCache := h%params.Stride == 0

	if shouldCache {
		raw, found, err := t.cache.Get(coord.Key())
		if err != nil {
			return nil, err
		}
		if found {
			e, err := decodeElement(raw)
			if err != nil {
				return nil, err
			}
			return &e, nil
		}
	}

	s := poseidon.New()
	needle := idx * uint64(params.Arity)
	for i := 0; i < params.Arity; i++ {
		c, err := t.node(h+1, needle+uint64(i))
		if err != nil {
			return nil, err
		}
		if c != nil {
			s.InsertUnchecked(i, *c)
		}
	}
	digest := s.Hash()

	if shouldCache {
		if err := t.cache.Put(coord.Key(), encodeElement(digest)); err != nil {
			return nil, err
		}
	}

	return &digest, nil
}

// Proof builds the membership proof path for the leaf currently at base
// index needle.
func (t *Tree) Proof(needle uint64) (*Proof, error) {
	proof := &Proof{}
	cur := needle

	for row := 0; row < t.height; row++ {
		base := uint64(params.Arity) * (cur / uint64(params.Arity))
		idxInRow := int(cur % uint64(params.Arity))

		siblings := make([]*field.Element, params.Arity)
		for i := 0; i < params.Arity; i++ {
			v, err := t.node(t.height-row, base+uint64(i))
			if err != nil {
				return nil, err
			}
			siblings[i] = v
		}

		proof.path = append(proof.path, poseidon.Record{Idx: idxInRow, Siblings: siblings})
		cur /= uint64(params.Arity)
	}

	return proof, nil
}

// Root computes the tree root, warming the cache in parallel across a
// worker pool sized to the CPU count before a final, single-threaded
// node(0, 0) call.
func (t *Tree) Root(ctx context.Context) (field.Element, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, h := range t.warmHeights() {
		span := pow(uint64(params.Arity), uint(t.height-h))
		top := t.maxIdx / span

		for idx := uint64(0); idx <= top; idx++ {
			h, idx := h, idx
			worker := t.clone()
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				_, err := worker.node(h, idx)
				return err
			})
		}
	}

	if err := g.Wait(); err != nil {
		return field.Element{}, err
	}

	n, err := t.node(0, 0)
	if err != nil {
		return field.Element{}, err
	}
	if n == nil {
		return field.Element{}, errs.Other("bigmerkle: root computation produced no value")
	}
	return *n, nil
}

// warmHeights lists the heights that Root pre-populates in parallel,
// stepping up from the base layer by Stride: H-STRIDE, H-2*STRIDE, ...,
// down to (and including) the root height 0. They coincide with the heights
// nonBaseNode caches (h % Stride == 0) only when H is a multiple of Stride.
func (t *Tree) warmHeights() []int {
	var hs []int
	for h := t.height - params.Stride; h > 0; h -= params.Stride {
		hs = append(hs, h)
	}
	hs = append(hs, 0)
	return hs
}

func encodeElement(e field.Element) []byte {
	b := e.Bytes()
	return b[:]
}

func decodeElement(raw []byte) (field.Element, error) {
	if len(raw) != field.Size {
		return field.Element{}, errs.Other("bigmerkle: stored value has length %d, want %d", len(raw), field.Size)
	}
	var b [field.Size]byte
	copy(b[:], raw)
	return field.FromCanonicalBytes(b)
}
