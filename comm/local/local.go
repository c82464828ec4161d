// Package local is an in-process reference implementation of
// comm.Communicator: one goroutine per simulated rank, point-to-point
// messages delivered over buffered channels, collectives implemented
// as generation barriers. It has no notion of network latency or
// partial failure; it exists so the rest of this module can be
// exercised and tested without a real MPI runtime, the same way the
// teacher exercises its OCCA kernels against a local device rather
// than a cluster.
package local

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SeiyonArulampalam/tacs/comm"
	"github.com/SeiyonArulampalam/tacs/metrics"
)

// Group is the shared state of a simulated SPMD communicator.
type Group struct {
	n int

	mailboxMu sync.Mutex
	mailboxes map[mailboxKey]chan []byte

	reduce *barrier[[]float64]
	bcast  *barrier[[]byte]
	sync_  *barrier[struct{}]

	collector metrics.MetricsCollector
}

type mailboxKey struct {
	src, dst, tag int
}

// barrier is a reusable generation rendezvous: every one of n
// participants calls arrive with its contribution; the last arrival
// computes the shared result via combine and wakes everyone else.
type barrier[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	round    int
	arrived  int
	contribs []T
	result   T
}

func newBarrier[T any](n int) *barrier[T] {
	b := &barrier[T]{contribs: make([]T, n)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier[T]) arrive(rank int, value T, combine func([]T) T) T {
	b.mu.Lock()
	defer b.mu.Unlock()
	round := b.round
	b.contribs[rank] = value
	b.arrived++
	if b.arrived == len(b.contribs) {
		b.result = combine(b.contribs)
		b.arrived = 0
		b.round++
		b.cond.Broadcast()
	} else {
		for b.round == round {
			b.cond.Wait()
		}
	}
	return b.result
}

// NewGroup creates a Group of n simulated ranks and returns one
// Communicator handle per rank.
func NewGroup(n int) []comm.Communicator {
	return NewGroupWithMetrics(n, metrics.Noop())
}

// NewGroupWithMetrics is NewGroup with an explicit MetricsCollector
// instrumenting every collective (AllReduceSum, Bcast, Barrier).
func NewGroupWithMetrics(n int, collector metrics.MetricsCollector) []comm.Communicator {
	if n <= 0 {
		panic("local: group size must be positive")
	}
	if collector == nil {
		collector = metrics.Noop()
	}
	g := &Group{
		n:         n,
		mailboxes: make(map[mailboxKey]chan []byte),
		reduce:    newBarrier[[]float64](n),
		bcast:     newBarrier[[]byte](n),
		sync_:     newBarrier[struct{}](n),
		collector: collector,
	}
	comms := make([]comm.Communicator, n)
	for r := 0; r < n; r++ {
		comms[r] = &Communicator{group: g, rank: r}
	}
	return comms
}

// Run spawns one goroutine per rank of a fresh n-rank Group and runs
// fn on each, collecting the first error via errgroup. Run returns only
// after every rank's fn has returned; a failing rank does not cancel
// the others, so a rank blocked in a collective or receive that the
// failed rank never joins stays blocked.
func Run(n int, fn func(rank int, c comm.Communicator) error) error {
	return RunWithMetrics(n, metrics.Noop(), fn)
}

// RunWithMetrics is Run with an explicit MetricsCollector instrumenting
// every collective every rank performs.
func RunWithMetrics(n int, collector metrics.MetricsCollector, fn func(rank int, c comm.Communicator) error) error {
	comms := NewGroupWithMetrics(n, collector)
	var g errgroup.Group
	for r, c := range comms {
		r, c := r, c
		g.Go(func() error {
			return fn(r, c)
		})
	}
	return g.Wait()
}

func (g *Group) mailbox(src, dst, tag int) chan []byte {
	key := mailboxKey{src, dst, tag}
	g.mailboxMu.Lock()
	defer g.mailboxMu.Unlock()
	ch, ok := g.mailboxes[key]
	if !ok {
		ch = make(chan []byte, 1)
		g.mailboxes[key] = ch
	}
	return ch
}

// Communicator is one rank's handle on a Group.
type Communicator struct {
	group *Group
	rank  int
}

var _ comm.Communicator = (*Communicator)(nil)

func (c *Communicator) Rank() int { return c.rank }
func (c *Communicator) Size() int { return c.group.n }

func (c *Communicator) AllReduceSum(local []float64) (out []float64, err error) {
	start := time.Now()
	defer func() { c.group.collector.RecordCollective("allreduce", time.Since(start), err) }()

	cp := append([]float64(nil), local...)
	sum := c.group.reduce.arrive(c.rank, cp, func(contribs [][]float64) []float64 {
		width := len(contribs[0])
		for _, v := range contribs {
			if len(v) != width {
				width = -1
				break
			}
		}
		if width < 0 {
			return nil
		}
		res := make([]float64, width)
		for _, v := range contribs {
			for i, x := range v {
				res[i] += x
			}
		}
		return res
	})
	if sum == nil && len(local) != 0 {
		err = fmt.Errorf("local: AllReduceSum length mismatch across ranks")
		return nil, err
	}
	out = append([]float64(nil), sum...)
	return out, nil
}

func (c *Communicator) Bcast(data []byte, root int) (out []byte, err error) {
	start := time.Now()
	defer func() { c.group.collector.RecordCollective("bcast", time.Since(start), err) }()

	if root < 0 || root >= c.group.n {
		err = fmt.Errorf("local: Bcast invalid root rank %d", root)
		return nil, err
	}

	var payload []byte
	if c.rank == root {
		payload = append([]byte(nil), data...)
	}
	res := c.group.bcast.arrive(c.rank, payload, func(contribs [][]byte) []byte {
		return contribs[root]
	})
	out = append([]byte(nil), res...)
	return out, nil
}

func (c *Communicator) Barrier() (err error) {
	start := time.Now()
	defer func() { c.group.collector.RecordCollective("barrier", time.Since(start), err) }()

	c.group.sync_.arrive(c.rank, struct{}{}, func([]struct{}) struct{} { return struct{}{} })
	return nil
}

func (c *Communicator) ISend(dest, tag int, data []byte) (comm.Request, error) {
	if dest < 0 || dest >= c.group.n {
		return nil, fmt.Errorf("local: ISend invalid destination rank %d", dest)
	}
	buf := append([]byte(nil), data...)
	ch := c.group.mailbox(c.rank, dest, tag)
	done := make(chan error, 1)
	go func() {
		ch <- buf
		done <- nil
	}()
	return &request{done: done}, nil
}

func (c *Communicator) IRecv(source, tag int, buf []byte) (comm.Request, error) {
	if source < 0 || source >= c.group.n {
		return nil, fmt.Errorf("local: IRecv invalid source rank %d", source)
	}
	ch := c.group.mailbox(source, c.rank, tag)
	done := make(chan error, 1)
	go func() {
		data := <-ch
		if len(data) != len(buf) {
			done <- fmt.Errorf("local: IRecv size mismatch: got %d want %d", len(data), len(buf))
			return
		}
		copy(buf, data)
		done <- nil
	}()
	return &request{done: done}, nil
}

type request struct {
	done chan error
	once sync.Once
	err  error
}

func (r *request) Wait() error {
	r.once.Do(func() {
		r.err = <-r.done
	})
	return r.err
}
