package depnodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New([]int32{1, 2}, nil, nil)
	assert.Error(t, err)

	_, err = New([]int32{0, 2, 1}, []int64{0, 1, 2}, []float64{1, 1, 1})
	assert.Error(t, err)

	_, err = New([]int32{0, 2}, []int64{0}, []float64{1})
	assert.Error(t, err)
}

func TestGetDepNodesAndParents(t *testing.T) {
	depPtr := []int32{0, 2, 3}
	depConn := []int64{0, 1, 5}
	depWeights := []float64{0.5, 0.5, 1.0}
	table, err := New(depPtr, depConn, depWeights)
	require.NoError(t, err)

	assert.Equal(t, 2, table.NumDep())

	n := table.GetDepNodes(nil, nil, nil)
	assert.Equal(t, 2, n)

	conn, weights := table.Parents(0)
	assert.Equal(t, []int64{0, 1}, conn)
	assert.Equal(t, []float64{0.5, 0.5}, weights)

	conn, weights = table.Parents(1)
	assert.Equal(t, []int64{5}, conn)
	assert.Equal(t, []float64{1.0}, weights)
}

func TestNilTableIsSafe(t *testing.T) {
	var table *DependentNodeTable
	assert.Equal(t, 0, table.NumDep())
	assert.Equal(t, 0, table.GetDepNodes(nil, nil, nil))
}

func TestEncodeDecodeDepIndex(t *testing.T) {
	for i := 0; i < 10; i++ {
		g := EncodeDepIndex(i)
		assert.Less(t, g, int64(0))
		assert.Equal(t, i, DecodeDepIndex(g))
	}
}
