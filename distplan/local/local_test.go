package local

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeiyonArulampalam/tacs/comm"
	commlocal "github.com/SeiyonArulampalam/tacs/comm/local"
	"github.com/SeiyonArulampalam/tacs/distplan"
	"github.com/SeiyonArulampalam/tacs/ghostset"
	"github.com/SeiyonArulampalam/tacs/ownermap"
)

// two ranks, two owned nodes each (global 0,1 on rank 0; 2,3 on
// rank 1), each rank ghosts the other's first node.
func buildTestPlan(t *testing.T, c comm.Communicator) (*ownermap.OwnerMap, *ghostset.GhostIndexSet, *Plan) {
	owner, err := ownermap.New(c, []int64{0, 2, 4})
	require.NoError(t, err)

	var ghostIdx []int64
	if c.Rank() == 0 {
		ghostIdx = []int64{2}
	} else {
		ghostIdx = []int64{0}
	}
	ghosts, err := ghostset.New(ghostIdx)
	require.NoError(t, err)

	plan, err := Build(c, owner, ghosts)
	require.NoError(t, err)
	return owner, ghosts, plan
}

func TestForwardExchange(t *testing.T) {
	err := commlocal.Run(2, func(rank int, c comm.Communicator) error {
		_, _, plan := buildTestPlan(t, c)
		typed := Typed[float64](plan)
		ctx := typed.CreateContext(1)
		defer ctx.Close()

		var local, ghost []float64
		if rank == 0 {
			local = []float64{10, 20}
		} else {
			local = []float64{30, 40}
		}
		ghost = make([]float64, 1)

		if err := typed.BeginForward(ctx, local, ghost); err != nil {
			return err
		}
		if err := typed.EndForward(ctx, local, ghost); err != nil {
			return err
		}

		if rank == 0 {
			assert.Equal(t, []float64{30}, ghost)
		} else {
			assert.Equal(t, []float64{10}, ghost)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestReverseExchangeAdd(t *testing.T) {
	err := commlocal.Run(2, func(rank int, c comm.Communicator) error {
		_, _, plan := buildTestPlan(t, c)
		typed := Typed[float64](plan)
		ctx := typed.CreateContext(1)
		defer ctx.Close()

		local := []float64{1, 1}
		var ghost []float64
		if rank == 0 {
			ghost = []float64{5}
		} else {
			ghost = []float64{7}
		}

		if err := typed.BeginReverse(ctx, ghost, local, distplan.Add); err != nil {
			return err
		}
		if err := typed.EndReverse(ctx, ghost, local, distplan.Add); err != nil {
			return err
		}

		if rank == 0 {
			// rank 0 owns global 0,1; rank 1's ghost[0]=7 maps to
			// global 0, so local[0] accumulates it.
			assert.Equal(t, []float64{8, 1}, local)
		} else {
			// rank 1 owns global 2,3; rank 0's ghost[0]=5 maps to
			// global 2, so local[0] accumulates it.
			assert.Equal(t, []float64{6, 1}, local)
		}
		return nil
	})
	require.NoError(t, err)
}
