// Package bcmap implements BoundaryConditionList (spec §4.1), the
// append-only record of Dirichlet boundary conditions. It is a direct
// generalization of the original TACSBcMap (original_source/src/bpmat/BVec.c):
// the same parallel local/global arrays and ragged dof/value table,
// grown by doubling instead of manual realloc-and-copy.
package bcmap

// BoundaryConditionList records Dirichlet constraints: at node
// global[i] (local[i] is its local-frame alias), pin dof vars[k] to
// values[k] for k in [varPtr[i], varPtr[i+1]).
type BoundaryConditionList struct {
	local  []int64
	global []int64
	varPtr []int32
	vars   []int32
	values []float64
}

// New creates an empty list, optionally preallocating capacity for
// an estimated number of boundary conditions (mirrors TACSBcMap's
// num_bcs constructor argument; 0 is a valid estimate).
func New(estimateBCs int) *BoundaryConditionList {
	if estimateBCs < 0 {
		estimateBCs = 0
	}
	b := &BoundaryConditionList{
		local:  make([]int64, 0, estimateBCs),
		global: make([]int64, 0, estimateBCs),
		varPtr: make([]int32, 1, estimateBCs+1),
	}
	b.varPtr[0] = 0
	return b
}

// AddBC appends a Dirichlet record for localNode/globalNode, pinning
// dof dofIndex[k] to value[k]. If values is nil, every pinned dof
// defaults to zero (matching TACSBcMap::addBC's bc_vals == NULL case).
func (b *BoundaryConditionList) AddBC(localNode, globalNode int64, dofIndex []int32, value []float64) {
	b.local = append(b.local, localNode)
	b.global = append(b.global, globalNode)

	start := b.varPtr[len(b.varPtr)-1]
	b.varPtr = append(b.varPtr, start+int32(len(dofIndex)))

	b.vars = append(b.vars, dofIndex...)
	if value != nil {
		b.values = append(b.values, value...)
	} else {
		for range dofIndex {
			b.values = append(b.values, 0)
		}
	}
}

// NumBCs returns the number of boundary condition records.
func (b *BoundaryConditionList) NumBCs() int {
	return len(b.local)
}

// GetBCs returns the five backing arrays and nbcs. Ownership of the
// buffers stays with the list; callers must not mutate them.
func (b *BoundaryConditionList) GetBCs() (local, global []int64, varPtr []int32, vars []int32, values []float64, nbcs int) {
	return b.local, b.global, b.varPtr, b.vars, b.values, b.NumBCs()
}
