// Package ghostset implements GhostIndexSet (spec §6): the sorted set
// of non-owned global node indices a rank needs a shadow copy of.
package ghostset

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// GhostIndexSet is a sorted, duplicate-free list of global indices,
// none of which lie in the owning rank's owned range. The sorted
// slice is authoritative for ordering and FindIndex's binary search;
// a roaring bitmap shadows it purely as an O(1) membership cache
// (indices must fit in a uint32, which covers any mesh that fits in
// memory on a single rank).
type GhostIndexSet struct {
	indices []int64
	present *roaring.Bitmap
}

// New builds a GhostIndexSet from a list of global indices. The input
// need not be sorted or deduplicated; the constructor normalizes it.
func New(indices []int64) (*GhostIndexSet, error) {
	cp := make([]int64, len(indices))
	copy(cp, indices)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })

	out := cp[:0]
	bm := roaring.New()
	for i, g := range cp {
		if g < 0 {
			return nil, fmt.Errorf("ghostset: negative index %d is a dependent-node encoding, not a ghost index", g)
		}
		if i > 0 && cp[i-1] == g {
			continue
		}
		out = append(out, g)
		if g > 0xFFFFFFFF {
			return nil, fmt.Errorf("ghostset: index %d exceeds uint32 range", g)
		}
		bm.Add(uint32(g))
	}
	return &GhostIndexSet{indices: out, present: bm}, nil
}

// Size returns G, the number of ghost indices.
func (s *GhostIndexSet) Size() int {
	return len(s.indices)
}

// Indices returns the sorted ghost index slice. Callers must not
// mutate it.
func (s *GhostIndexSet) Indices() []int64 {
	return s.indices
}

// Contains reports whether g is in the ghost set, via the bitmap
// fast path.
func (s *GhostIndexSet) Contains(g int64) bool {
	if g < 0 || g > 0xFFFFFFFF {
		return false
	}
	return s.present.Contains(uint32(g))
}

// FindIndex returns the local offset j in [0, Size()) of global index
// g. Its second return is false if g is not present; per spec §3 the
// result is otherwise undefined if the caller ignores that and uses j
// anyway.
func (s *GhostIndexSet) FindIndex(g int64) (int, bool) {
	if !s.Contains(g) {
		return 0, false
	}
	i := sort.Search(len(s.indices), func(i int) bool { return s.indices[i] >= g })
	if i < len(s.indices) && s.indices[i] == g {
		return i, true
	}
	return 0, false
}
