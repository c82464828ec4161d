// Package ownermap implements OwnerMap (spec §6): the immutable
// partition of the global node index space into contiguous per-rank
// ranges. Mesh partitioning and the construction of the numbering
// itself are out of scope (spec §1) — OwnerMap only stores and
// queries an already-decided partition.
package ownermap

import (
	"fmt"
	"sort"

	"github.com/SeiyonArulampalam/tacs/comm"
)

// OwnerMap is the variable-to-rank partition shared read-only by every
// vector, ghost set and distribution plan built against it.
type OwnerMap struct {
	ownerRange []int64
	comm       comm.Communicator
}

// New builds an OwnerMap from an explicit owner_range of length P+1,
// with ownerRange[0] == 0 and ownerRange[P] == Nglobal. The slice is
// copied; the caller's copy may be reused or discarded afterward.
func New(c comm.Communicator, ownerRange []int64) (*OwnerMap, error) {
	if c == nil {
		return nil, fmt.Errorf("ownermap: communicator must not be nil")
	}
	p := c.Size()
	if len(ownerRange) != p+1 {
		return nil, fmt.Errorf("ownermap: owner_range length %d, want %d (P+1)", len(ownerRange), p+1)
	}
	if ownerRange[0] != 0 {
		return nil, fmt.Errorf("ownermap: owner_range[0] must be 0, got %d", ownerRange[0])
	}
	for i := 0; i < p; i++ {
		if ownerRange[i+1] < ownerRange[i] {
			return nil, fmt.Errorf("ownermap: owner_range must be non-decreasing at rank %d", i)
		}
	}
	cp := make([]int64, len(ownerRange))
	copy(cp, ownerRange)
	return &OwnerMap{ownerRange: cp, comm: c}, nil
}

// GetOwnerRange returns the P+1 element partition boundary array.
// Callers must not mutate the returned slice.
func (m *OwnerMap) GetOwnerRange() []int64 {
	return m.ownerRange
}

// GetMPIComm returns the communicator this map was built against.
func (m *OwnerMap) GetMPIComm() comm.Communicator {
	return m.comm
}

// NumGlobal returns Nglobal = owner_range[P].
func (m *OwnerMap) NumGlobal() int64 {
	return m.ownerRange[len(m.ownerRange)-1]
}

// NumOwned returns the number of nodes owned by rank.
func (m *OwnerMap) NumOwned(rank int) int64 {
	return m.ownerRange[rank+1] - m.ownerRange[rank]
}

// IsOwned reports whether global index g falls in this rank's own
// range.
func (m *OwnerMap) IsOwned(g int64) bool {
	r := m.comm.Rank()
	return g >= m.ownerRange[r] && g < m.ownerRange[r+1]
}

// OwnerOf returns the rank owning global index g, or -1 if g is out
// of [0, Nglobal).
func (m *OwnerMap) OwnerOf(g int64) int {
	if g < 0 || g >= m.NumGlobal() {
		return -1
	}
	// owner_range is sorted ascending; find the rightmost boundary
	// not exceeding g.
	i := sort.Search(len(m.ownerRange), func(i int) bool { return m.ownerRange[i] > g })
	return i - 1
}
