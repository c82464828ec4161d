package bcmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddBCWithValues(t *testing.T) {
	b := New(4)
	b.AddBC(0, 100, []int32{0, 2}, []float64{1.5, -2.5})

	local, global, varPtr, vars, values, nbcs := b.GetBCs()
	assert.Equal(t, 1, nbcs)
	assert.Equal(t, []int64{0}, local)
	assert.Equal(t, []int64{100}, global)
	assert.Equal(t, []int32{0, 2}, varPtr)
	assert.Equal(t, []int32{0, 2}, vars)
	assert.Equal(t, []float64{1.5, -2.5}, values)
}

func TestAddBCWithNilValuesDefaultsToZero(t *testing.T) {
	b := New(0)
	b.AddBC(1, 200, []int32{1}, nil)

	_, _, _, _, values, nbcs := b.GetBCs()
	assert.Equal(t, 1, nbcs)
	assert.Equal(t, []float64{0}, values)
}

func TestMultipleAddBCAppends(t *testing.T) {
	b := New(0)
	b.AddBC(0, 0, []int32{0}, []float64{1})
	b.AddBC(1, 1, []int32{0, 1}, []float64{2, 3})

	_, _, varPtr, _, _, nbcs := b.GetBCs()
	assert.Equal(t, 2, nbcs)
	assert.Equal(t, []int32{0, 1, 3}, varPtr)
}
