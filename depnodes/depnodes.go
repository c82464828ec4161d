// Package depnodes implements DependentNodeTable (spec §6): the table
// of virtual nodes expressed as a weighted sum of real (owned or
// ghost) nodes, addressed by the negative-index encoding
// g = -i-1 (spec §3).
package depnodes

import "fmt"

// DependentNodeTable holds D dependent-node definitions. Entry i's
// parents are DepConn[DepPtr[i]:DepPtr[i+1]] with matching weights in
// DepWeights at the same span.
type DependentNodeTable struct {
	depPtr     []int32
	depConn    []int64
	depWeights []float64
}

// New builds a DependentNodeTable from parallel ragged arrays. depPtr
// must have length D+1 with depPtr[0] == 0 and be non-decreasing;
// depConn and depWeights must both have length depPtr[D]. All three
// slices are copied.
func New(depPtr []int32, depConn []int64, depWeights []float64) (*DependentNodeTable, error) {
	if len(depPtr) == 0 || depPtr[0] != 0 {
		return nil, fmt.Errorf("depnodes: depPtr must be non-empty with depPtr[0] == 0")
	}
	for i := 1; i < len(depPtr); i++ {
		if depPtr[i] < depPtr[i-1] {
			return nil, fmt.Errorf("depnodes: depPtr must be non-decreasing")
		}
	}
	n := int(depPtr[len(depPtr)-1])
	if len(depConn) != n || len(depWeights) != n {
		return nil, fmt.Errorf("depnodes: depConn/depWeights must have length depPtr[D]=%d, got %d/%d", n, len(depConn), len(depWeights))
	}

	t := &DependentNodeTable{
		depPtr:     append([]int32(nil), depPtr...),
		depConn:    append([]int64(nil), depConn...),
		depWeights: append([]float64(nil), depWeights...),
	}
	return t, nil
}

// NumDep returns D, the number of dependent nodes.
func (t *DependentNodeTable) NumDep() int {
	if t == nil {
		return 0
	}
	return len(t.depPtr) - 1
}

// GetDepNodes copies D's ragged arrays into outPtr/outConn/outWeights
// when they are non-nil, and always returns D. Passing nil for all
// three outputs is the "query D only" mode of spec §6.
func (t *DependentNodeTable) GetDepNodes(outPtr *[]int32, outConn *[]int64, outWeights *[]float64) int {
	if t == nil {
		return 0
	}
	if outPtr != nil {
		*outPtr = append([]int32(nil), t.depPtr...)
	}
	if outConn != nil {
		*outConn = append([]int64(nil), t.depConn...)
	}
	if outWeights != nil {
		*outWeights = append([]float64(nil), t.depWeights...)
	}
	return t.NumDep()
}

// Parents returns the parent-index and weight spans for dependent
// node i without copying.
func (t *DependentNodeTable) Parents(i int) (conn []int64, weights []float64) {
	start, end := t.depPtr[i], t.depPtr[i+1]
	return t.depConn[start:end], t.depWeights[start:end]
}

// EncodeDepIndex converts a dependent-node table index to its public
// negative global-index encoding g = -i-1.
func EncodeDepIndex(i int) int64 {
	return -int64(i) - 1
}

// DecodeDepIndex is the inverse of EncodeDepIndex; it panics if g is
// not a valid dependent encoding (g >= 0). Callers must check g < 0
// first.
func DecodeDepIndex(g int64) int {
	if g >= 0 {
		panic("depnodes: not a dependent-node index")
	}
	return int(-g - 1)
}
