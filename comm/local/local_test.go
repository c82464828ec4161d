package local

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeiyonArulampalam/tacs/comm"
	"github.com/SeiyonArulampalam/tacs/metrics"
)

func TestAllReduceSum(t *testing.T) {
	err := Run(4, func(rank int, c comm.Communicator) error {
		sum, err := c.AllReduceSum([]float64{float64(rank), 1})
		if err != nil {
			return err
		}
		assert.Equal(t, []float64{6, 4}, sum)
		return nil
	})
	require.NoError(t, err)
}

func TestBcast(t *testing.T) {
	err := Run(3, func(rank int, c comm.Communicator) error {
		var payload []byte
		if rank == 1 {
			payload = []byte("hello")
		}
		out, err := c.Bcast(payload, 1)
		if err != nil {
			return err
		}
		assert.Equal(t, "hello", string(out))
		return nil
	})
	require.NoError(t, err)
}

func TestBarrierReleasesAllRanks(t *testing.T) {
	err := Run(5, func(rank int, c comm.Communicator) error {
		return c.Barrier()
	})
	require.NoError(t, err)
}

func TestISendIRecvRoundTrip(t *testing.T) {
	err := Run(2, func(rank int, c comm.Communicator) error {
		if rank == 0 {
			req, err := c.ISend(1, 42, []byte("ping"))
			if err != nil {
				return err
			}
			return req.Wait()
		}
		buf := make([]byte, 4)
		req, err := c.IRecv(0, 42, buf)
		if err != nil {
			return err
		}
		if err := req.Wait(); err != nil {
			return err
		}
		if string(buf) != "ping" {
			return fmt.Errorf("got %q", buf)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRunWithMetricsRecordsEveryCollective(t *testing.T) {
	collector := &metrics.Basic{}
	err := RunWithMetrics(3, collector, func(rank int, c comm.Communicator) error {
		if _, err := c.AllReduceSum([]float64{1}); err != nil {
			return err
		}
		if _, err := c.Bcast(nil, 0); err != nil {
			return err
		}
		return c.Barrier()
	})
	require.NoError(t, err)

	snap := collector.Snapshot()
	// 3 ranks * 3 collectives each.
	assert.Equal(t, int64(9), snap.CollectiveOps)
	assert.Equal(t, int64(0), snap.CollectiveErrs)
}

func TestRunPropagatesFirstError(t *testing.T) {
	err := Run(3, func(rank int, c comm.Communicator) error {
		if rank == 2 {
			return fmt.Errorf("boom")
		}
		return nil
	})
	assert.Error(t, err)
}
