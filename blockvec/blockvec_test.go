package blockvec

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeiyonArulampalam/tacs/bcmap"
	"github.com/SeiyonArulampalam/tacs/comm"
	commlocal "github.com/SeiyonArulampalam/tacs/comm/local"
	"github.com/SeiyonArulampalam/tacs/depnodes"
	"github.com/SeiyonArulampalam/tacs/diag"
	"github.com/SeiyonArulampalam/tacs/distplan"
	distplanlocal "github.com/SeiyonArulampalam/tacs/distplan/local"
	"github.com/SeiyonArulampalam/tacs/ghostset"
	"github.com/SeiyonArulampalam/tacs/metrics"
	"github.com/SeiyonArulampalam/tacs/ownermap"
	"github.com/SeiyonArulampalam/tacs/scalar"
)

// newTestVector builds the two-rank, two-node-per-rank vector shared
// by every scenario below: rank 0 owns global 0,1 and ghosts global 3;
// rank 1 owns global 2,3 and ghosts global 0.
func newTestVector(t *testing.T, c comm.Communicator, dep *depnodes.DependentNodeTable, bcs *bcmap.BoundaryConditionList) *BlockVector[float64] {
	return newTestVectorT[float64](t, c, dep, bcs)
}

// newTestVectorT is newTestVector generalized over scalar type, used
// by the complex128 norm/dot invariant test below.
func newTestVectorT[T scalar.Type](t *testing.T, c comm.Communicator, dep *depnodes.DependentNodeTable, bcs *bcmap.BoundaryConditionList) *BlockVector[T] {
	owner, err := ownermap.New(c, []int64{0, 2, 4})
	require.NoError(t, err)

	var ghostIdx []int64
	if c.Rank() == 0 {
		ghostIdx = []int64{3}
	} else {
		ghostIdx = []int64{0}
	}
	ghosts, err := ghostset.New(ghostIdx)
	require.NoError(t, err)

	plan, err := distplanlocal.Build(c, owner, ghosts)
	require.NoError(t, err)

	v, err := New(Config[T]{
		Comm:   c,
		Owner:  owner,
		B:      2,
		Ghosts: ghosts,
		Dep:    dep,
		Plan:   distplanlocal.Typed[T](plan),
		BCs:    bcs,
	})
	require.NoError(t, err)
	return v
}

// TestS1ThroughS3 reproduces the shared-node accumulation,
// owner-to-ghost distribution, and dependent-node evaluation
// scenario: each rank adds to every node it owns and to the node it
// ghosts, the reverse exchange combines the shared contributions,
// the forward exchange refreshes the ghost region, and the single
// dependent node (parents 0 and 3, weight 0.5 each) evaluates off the
// now-current owned and ghost data.
func TestS1ThroughS3(t *testing.T) {
	depPtr := []int32{0, 2}
	depConn := []int64{0, 3}
	depWeights := []float64{0.5, 0.5}
	dep, err := depnodes.New(depPtr, depConn, depWeights)
	require.NoError(t, err)

	err = commlocal.Run(2, func(rank int, c comm.Communicator) error {
		v := newTestVector(t, c, dep, nil)
		defer v.Close()

		// Each rank adds (1,1) to every node it owns plus the one it
		// ghosts; the shared boundary node (0 for rank 0, 3 for rank
		// 1) picks up a second (1,1) from the other rank's ghost
		// contribution once the reverse exchange combines it.
		var index []int64
		if rank == 0 {
			index = []int64{0, 1, 3}
		} else {
			index = []int64{2, 3, 0}
		}
		vals := []float64{1, 1, 1, 1, 1, 1}
		require.NoError(t, v.SetValues(index, vals, distplan.Add))

		require.NoError(t, v.BeginSetValues(distplan.Add))
		require.NoError(t, v.EndSetValues(distplan.Add))

		if rank == 0 {
			assert.Equal(t, []float64{2, 2, 1, 1}, v.local)
		} else {
			assert.Equal(t, []float64{1, 1, 2, 2}, v.local)
		}

		require.NoError(t, v.BeginDistributeValues())
		require.NoError(t, v.EndDistributeValues())

		assert.Equal(t, []float64{2, 2}, v.ghost)
		assert.Equal(t, []float64{2, 2}, v.depv)
		return nil
	})
	require.NoError(t, err)
}

// TestS4DependentSetValuesSpreadsToParents reproduces adding a value
// directly at a dependent node and collapsing it onto its parents
// through BeginSetValues/EndSetValues.
func TestS4DependentSetValuesSpreadsToParents(t *testing.T) {
	depPtr := []int32{0, 2}
	depConn := []int64{0, 3}
	depWeights := []float64{0.5, 0.5}
	dep, err := depnodes.New(depPtr, depConn, depWeights)
	require.NoError(t, err)

	err = commlocal.Run(2, func(rank int, c comm.Communicator) error {
		v := newTestVector(t, c, dep, nil)
		defer v.Close()

		if rank == 0 {
			require.NoError(t, v.SetValues([]int64{depnodes.EncodeDepIndex(0)}, []float64{4, 4}, distplan.Add))
		}

		require.NoError(t, v.BeginSetValues(distplan.Add))
		require.NoError(t, v.EndSetValues(distplan.Add))

		if rank == 0 {
			assert.Equal(t, []float64{2, 2, 0, 0}, v.local)
		} else {
			assert.Equal(t, []float64{0, 0, 2, 2}, v.local)
		}
		return nil
	})
	require.NoError(t, err)
}

// TestS5WriteReadFileRoundTrip reproduces a random vector surviving a
// WriteToFile/ReadFromFile round trip exactly.
func TestS5WriteReadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.bin")

	err := commlocal.Run(2, func(rank int, c comm.Communicator) error {
		v := newTestVector(t, c, nil, nil)
		defer v.Close()

		require.NoError(t, v.SeedRand(12345))
		v.SetRand(-1, 1)
		want := append([]float64(nil), v.local...)

		require.NoError(t, v.WriteToFile(path))

		for i := range v.local {
			v.local[i] = 0
		}
		require.NoError(t, v.ReadFromFile(path))

		assert.Equal(t, want, v.local)
		return nil
	})
	require.NoError(t, err)
}

// TestS6ApplyBCsZeroesPinnedDofOnly reproduces a boundary condition
// zeroing only its pinned degree of freedom, leaving the rest of the
// block untouched.
func TestS6ApplyBCsZeroesPinnedDofOnly(t *testing.T) {
	bcs := bcmap.New(1)
	bcs.AddBC(0, 1, []int32{0}, nil)

	err := commlocal.Run(2, func(rank int, c comm.Communicator) error {
		v := newTestVector(t, c, nil, bcs)
		defer v.Close()

		v.Set(5.0)
		v.ApplyBCs()

		if rank == 0 {
			assert.Equal(t, []float64{5, 5, 0, 5}, v.local)
		} else {
			assert.Equal(t, []float64{5, 5, 5, 5}, v.local)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNormDotAxpy(t *testing.T) {
	err := commlocal.Run(2, func(rank int, c comm.Communicator) error {
		v := newTestVector(t, c, nil, nil)
		defer v.Close()
		v.Set(1.0)

		// 8 owned scalars total across both ranks (B=2, 2 nodes each), each 1.0.
		assert.InDelta(t, math.Sqrt(8), float64(v.Norm()), 1e-9)

		w := newTestVector(t, c, nil, nil)
		defer w.Close()
		w.Set(2.0)

		// dot = 1*2 summed over all 8 owned scalars.
		assert.InDelta(t, 16.0, float64(v.Dot(w)), 1e-9)

		v.Axpy(3.0, w)
		assert.Equal(t, []float64{7, 7}, v.local[:2])
		return nil
	})
	require.NoError(t, err)
}

// TestComplexNormMatchesDot reproduces the §8.1 invariant
// norm()^2 == dot(v, v) on the complex128 instantiation, where
// sum_i x[i]*x[i] is itself complex (Im = 2*Re*Im) and both reductions
// must carry the full complex value, not just its real part.
func TestComplexNormMatchesDot(t *testing.T) {
	err := commlocal.Run(2, func(rank int, c comm.Communicator) error {
		v := newTestVectorT[complex128](t, c, nil, nil)
		defer v.Close()

		v.Set(complex(1, 2))

		n := v.Norm()
		nSq := n * n
		d := v.Dot(v)
		assert.InDelta(t, real(d), real(nSq), 1e-9)
		assert.InDelta(t, imag(d), imag(nSq), 1e-9)
		return nil
	})
	require.NoError(t, err)
}

// TestDotMismatchWarnsOnDiagStream reproduces the original's
// fprintf(stderr, "TACSBVec: Dot sizes must be the same") behavior: a
// size mismatch returns a zero dot product and, when a Stream is
// configured, reports it.
func TestDotMismatchWarnsOnDiagStream(t *testing.T) {
	err := commlocal.Run(2, func(rank int, c comm.Communicator) error {
		var buf bytes.Buffer
		stream := diag.New(rank, &buf)
		stream.DisableColor()

		owner, err := ownermap.New(c, []int64{0, 2, 4})
		require.NoError(t, err)
		v, err := New(Config[float64]{Comm: c, Owner: owner, B: 2, Diag: stream})
		require.NoError(t, err)
		defer v.Close()

		other, err := New(Config[float64]{Comm: c, Owner: owner, B: 1})
		require.NoError(t, err)
		defer other.Close()

		got := v.Dot(other)
		assert.Equal(t, 0.0, got)
		assert.True(t, strings.Contains(buf.String(), "Dot sizes must be the same"))
		return nil
	})
	require.NoError(t, err)
}

// TestNormRecordsCollectiveMetric confirms a BlockVector built with a
// Metrics collector reports its AllReduceSum calls through it, rather
// than silently holding a dead collector.
func TestNormRecordsCollectiveMetric(t *testing.T) {
	collector := &metrics.Basic{}
	err := commlocal.Run(2, func(rank int, c comm.Communicator) error {
		owner, err := ownermap.New(c, []int64{0, 2, 4})
		require.NoError(t, err)
		v, err := New(Config[float64]{Comm: c, Owner: owner, B: 2, Metrics: collector})
		require.NoError(t, err)
		defer v.Close()

		v.Set(1.0)
		_ = v.Norm()
		return nil
	})
	require.NoError(t, err)

	snap := collector.Snapshot()
	assert.Equal(t, int64(2), snap.CollectiveOps)
	assert.Equal(t, int64(0), snap.CollectiveErrs)
}
