package ownermap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeiyonArulampalam/tacs/comm/local"
)

func TestNewValidation(t *testing.T) {
	comms := local.NewGroup(2)

	_, err := New(comms[0], []int64{0, 5})
	assert.Error(t, err, "owner range length must be P+1")

	_, err = New(comms[0], []int64{1, 5, 10})
	assert.Error(t, err, "owner range must start at 0")

	_, err = New(comms[0], []int64{0, 10, 5})
	assert.Error(t, err, "owner range must be non-decreasing")

	m, err := New(comms[0], []int64{0, 5, 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.NumGlobal())
}

func TestOwnerOfAndIsOwned(t *testing.T) {
	comms := local.NewGroup(3)
	m, err := New(comms[1], []int64{0, 4, 9, 12})
	require.NoError(t, err)

	assert.Equal(t, 0, m.OwnerOf(0))
	assert.Equal(t, 0, m.OwnerOf(3))
	assert.Equal(t, 1, m.OwnerOf(4))
	assert.Equal(t, 1, m.OwnerOf(8))
	assert.Equal(t, 2, m.OwnerOf(9))
	assert.Equal(t, 2, m.OwnerOf(11))
	assert.Equal(t, -1, m.OwnerOf(12))
	assert.Equal(t, -1, m.OwnerOf(-1))

	assert.True(t, m.IsOwned(4))
	assert.True(t, m.IsOwned(8))
	assert.False(t, m.IsOwned(3))
	assert.Equal(t, int64(5), m.NumOwned(1))
}
