package ghostset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSortsDedupsAndValidates(t *testing.T) {
	s, err := New([]int64{9, 3, 3, 1, 7})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Size())
	assert.Equal(t, []int64{1, 3, 7, 9}, s.Indices())

	_, err = New([]int64{-1})
	assert.Error(t, err)
}

func TestContainsAndFindIndex(t *testing.T) {
	s, err := New([]int64{10, 20, 30})
	require.NoError(t, err)

	assert.True(t, s.Contains(20))
	assert.False(t, s.Contains(25))

	j, ok := s.FindIndex(30)
	assert.True(t, ok)
	assert.Equal(t, 2, j)

	_, ok = s.FindIndex(5)
	assert.False(t, ok)
}
