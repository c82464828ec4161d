// Package local is a reference DistributionPlan implementation. It
// discovers the forward/reverse peer schedule with a two-phase
// all-to-all exchange over comm.Communicator (exchange counts, then
// exchange the requested index lists), fanned out per peer with
// errgroup, and drives begin/end exchanges with point-to-point
// ISend/IRecv posted in order and waited on together in End*.
package local

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SeiyonArulampalam/tacs/comm"
	"github.com/SeiyonArulampalam/tacs/distplan"
	"github.com/SeiyonArulampalam/tacs/ghostset"
	"github.com/SeiyonArulampalam/tacs/metrics"
	"github.com/SeiyonArulampalam/tacs/ownermap"
	"github.com/SeiyonArulampalam/tacs/scalar"
)

const (
	tagCount   = 0x1000
	tagIndices = 0x2000
)

// peerSchedule is one peer's contribution to this rank's forward/
// reverse exchange.
type peerSchedule struct {
	rank int
	// ghostPositions: offsets into this rank's ghost[] array,
	// populated when rank is the owner of these nodes (recv peers).
	ghostPositions []int
	// localPositions: offsets into this rank's local[] array,
	// populated when rank ghosts these nodes owned by us (send peers).
	localPositions []int
}

// Plan is the scalar-agnostic schedule: which peers this rank
// exchanges ghost data with and at which offsets. It is built once
// per (OwnerMap, GhostIndexSet) pair and may be shared by many
// vectors via CreateContext, matching spec §5's shared-collaborator
// model.
type Plan struct {
	c          comm.Communicator
	ghostCount int

	// recvPeers: ranks that own nodes this rank ghosts. Forward:
	// receive from them. Reverse: send to them.
	recvPeers []peerSchedule
	// sendPeers: ranks that ghost nodes this rank owns. Forward:
	// send to them. Reverse: receive from them.
	sendPeers []peerSchedule

	nextContextID atomic.Int32
	collector     metrics.MetricsCollector
}

// Build discovers the exchange schedule for ghosts against owner.
func Build(c comm.Communicator, owner *ownermap.OwnerMap, ghosts *ghostset.GhostIndexSet) (*Plan, error) {
	return BuildWithMetrics(c, owner, ghosts, metrics.Noop())
}

// BuildWithMetrics is Build with an explicit MetricsCollector that
// records every send and receive posted by BeginForward/BeginReverse.
func BuildWithMetrics(c comm.Communicator, owner *ownermap.OwnerMap, ghosts *ghostset.GhostIndexSet, collector metrics.MetricsCollector) (*Plan, error) {
	if collector == nil {
		collector = metrics.Noop()
	}
	p := c.Size()
	rank := c.Rank()

	wantFrom := make([][]int64, p)
	wantFromPos := make([][]int, p)
	for j, g := range ghosts.Indices() {
		owr := owner.OwnerOf(g)
		if owr < 0 {
			return nil, fmt.Errorf("distplan/local: ghost index %d has no owner", g)
		}
		wantFrom[owr] = append(wantFrom[owr], g)
		wantFromPos[owr] = append(wantFromPos[owr], j)
	}

	// Phase 1: exchange counts with every peer.
	counts := make([]int64, p)
	{
		var g errgroup.Group
		sendBufs := make([][8]byte, p)
		recvBufs := make([][8]byte, p)
		for peer := 0; peer < p; peer++ {
			if peer == rank {
				continue
			}
			peer := peer
			binary.LittleEndian.PutUint64(sendBufs[peer][:], uint64(len(wantFrom[peer])))
			g.Go(func() error {
				sreq, err := c.ISend(peer, tagCount, sendBufs[peer][:])
				if err != nil {
					return err
				}
				rreq, err := c.IRecv(peer, tagCount, recvBufs[peer][:])
				if err != nil {
					return err
				}
				if err := sreq.Wait(); err != nil {
					return err
				}
				return rreq.Wait()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("distplan/local: count exchange failed: %w", err)
		}
		for peer := 0; peer < p; peer++ {
			if peer == rank {
				continue
			}
			counts[peer] = int64(binary.LittleEndian.Uint64(recvBufs[peer][:]))
		}
	}

	// Phase 2: exchange the actual requested index lists.
	recvIndexLists := make([][]int64, p)
	{
		var g errgroup.Group
		for peer := 0; peer < p; peer++ {
			if peer == rank {
				continue
			}
			peer := peer
			if len(wantFrom[peer]) > 0 {
				g.Go(func() error {
					buf := encodeInt64s(wantFrom[peer])
					req, err := c.ISend(peer, tagIndices, buf)
					if err != nil {
						return err
					}
					return req.Wait()
				})
			}
			if counts[peer] > 0 {
				g.Go(func() error {
					buf := make([]byte, counts[peer]*8)
					req, err := c.IRecv(peer, tagIndices, buf)
					if err != nil {
						return err
					}
					if err := req.Wait(); err != nil {
						return err
					}
					recvIndexLists[peer] = decodeInt64s(buf)
					return nil
				})
			}
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("distplan/local: index exchange failed: %w", err)
		}
	}

	plan := &Plan{c: c, ghostCount: ghosts.Size(), collector: collector}

	for peer := 0; peer < p; peer++ {
		if len(wantFromPos[peer]) > 0 {
			plan.recvPeers = append(plan.recvPeers, peerSchedule{rank: peer, ghostPositions: wantFromPos[peer]})
		}
	}
	sort.Slice(plan.recvPeers, func(i, j int) bool { return plan.recvPeers[i].rank < plan.recvPeers[j].rank })

	ownerRange := owner.GetOwnerRange()
	myStart := ownerRange[rank]
	for peer := 0; peer < p; peer++ {
		if len(recvIndexLists[peer]) == 0 {
			continue
		}
		localPositions := make([]int, len(recvIndexLists[peer]))
		for k, g := range recvIndexLists[peer] {
			localPositions[k] = int(g - myStart)
		}
		plan.sendPeers = append(plan.sendPeers, peerSchedule{rank: peer, localPositions: localPositions})
	}
	sort.Slice(plan.sendPeers, func(i, j int) bool { return plan.sendPeers[i].rank < plan.sendPeers[j].rank })

	return plan, nil
}

func encodeInt64s(vs []int64) []byte {
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

func decodeInt64s(buf []byte) []int64 {
	out := make([]int64, len(buf)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}

// Size implements distplan.DistributionPlan.
func (p *Plan) Size() int { return p.ghostCount }

// Typed adapts a scalar-agnostic Plan to distplan.DistributionPlan[T]
// for a concrete scalar type T.
func Typed[T scalar.Type](p *Plan) distplan.DistributionPlan[T] {
	return &typedPlan[T]{Plan: p}
}

type typedPlan[T scalar.Type] struct {
	*Plan
}

type exchangeContext struct {
	id     uuid.UUID
	blockB int
	lanes  int

	// one send/recv byte buffer per peer, indexed the same way as
	// Plan.recvPeers/sendPeers.
	recvBufs [][]byte
	sendBufs [][]byte

	inFlight []comm.Request
	tag      int32
}

func (c *exchangeContext) Close() {}

// CreateContext implements distplan.DistributionPlan.
func (p *typedPlan[T]) CreateContext(blockSize int) distplan.Context {
	lanes := scalar.LanesPerValue[T]()
	ctx := &exchangeContext{
		id:     uuid.New(),
		blockB: blockSize,
		lanes:  lanes,
		tag:    p.nextContextID.Add(1),
	}
	ctx.recvBufs = make([][]byte, len(p.recvPeers))
	for i, peer := range p.recvPeers {
		ctx.recvBufs[i] = make([]byte, len(peer.ghostPositions)*blockSize*lanes*8)
	}
	ctx.sendBufs = make([][]byte, len(p.sendPeers))
	for i, peer := range p.sendPeers {
		ctx.sendBufs[i] = make([]byte, len(peer.localPositions)*blockSize*lanes*8)
	}
	return ctx
}

func asExchangeContext(ctx distplan.Context) (*exchangeContext, error) {
	ec, ok := ctx.(*exchangeContext)
	if !ok {
		return nil, fmt.Errorf("distplan/local: context was not created by this plan")
	}
	return ec, nil
}

func packBlock[T scalar.Type](dst []byte, v []T) {
	lanes := scalar.LanesPerValue[T]()
	for i, x := range v {
		re, im := scalar.ToFloat64Pair(x)
		binary.LittleEndian.PutUint64(dst[i*lanes*8:], math.Float64bits(re))
		if lanes == 2 {
			binary.LittleEndian.PutUint64(dst[i*lanes*8+8:], math.Float64bits(im))
		}
	}
}

func unpackBlock[T scalar.Type](src []byte, v []T) {
	lanes := scalar.LanesPerValue[T]()
	for i := range v {
		re := math.Float64frombits(binary.LittleEndian.Uint64(src[i*lanes*8:]))
		var im float64
		if lanes == 2 {
			im = math.Float64frombits(binary.LittleEndian.Uint64(src[i*lanes*8+8:]))
		}
		v[i] = scalar.FromFloat64Pair[T](re, im)
	}
}

// BeginForward implements distplan.DistributionPlan: gather this
// rank's owned data for every peer that ghosts it, and post the
// receives for this rank's own ghost data.
func (p *typedPlan[T]) BeginForward(ctxIn distplan.Context, local, ghost []T) error {
	ctx, err := asExchangeContext(ctxIn)
	if err != nil {
		return err
	}
	ctx.inFlight = ctx.inFlight[:0]
	B := ctx.blockB

	for i, peer := range p.sendPeers {
		gather(local, peer.localPositions, B, ctx.sendBufs[i])
		req, err := p.c.ISend(peer.rank, int(ctx.tag), ctx.sendBufs[i])
		if err != nil {
			return err
		}
		ctx.inFlight = append(ctx.inFlight, req)
		p.collector.RecordExchange("forward-send", len(ctx.sendBufs[i]))
	}
	for i, peer := range p.recvPeers {
		req, err := p.c.IRecv(peer.rank, int(ctx.tag), ctx.recvBufs[i])
		if err != nil {
			return err
		}
		ctx.inFlight = append(ctx.inFlight, req)
		p.collector.RecordExchange("forward-recv", len(ctx.recvBufs[i]))
	}
	return nil
}

// EndForward implements distplan.DistributionPlan.
func (p *typedPlan[T]) EndForward(ctxIn distplan.Context, local, ghost []T) error {
	ctx, err := asExchangeContext(ctxIn)
	if err != nil {
		return err
	}
	if err := waitAll(ctx.inFlight); err != nil {
		return err
	}
	B := ctx.blockB
	for i, peer := range p.recvPeers {
		scatterInsert(ghost, peer.ghostPositions, B, ctx.recvBufs[i])
	}
	return nil
}

// BeginReverse implements distplan.DistributionPlan: send this rank's
// ghost contributions to their owners, and post the receives for
// contributions other ranks are sending to our owned nodes.
func (p *typedPlan[T]) BeginReverse(ctxIn distplan.Context, ghost, local []T, op distplan.Op) error {
	ctx, err := asExchangeContext(ctxIn)
	if err != nil {
		return err
	}
	ctx.inFlight = ctx.inFlight[:0]
	B := ctx.blockB

	for i, peer := range p.recvPeers {
		gather(ghost, peer.ghostPositions, B, ctx.recvBufs[i])
		req, err := p.c.ISend(peer.rank, int(ctx.tag)+1, ctx.recvBufs[i])
		if err != nil {
			return err
		}
		ctx.inFlight = append(ctx.inFlight, req)
		p.collector.RecordExchange("reverse-send", len(ctx.recvBufs[i]))
	}
	for i, peer := range p.sendPeers {
		req, err := p.c.IRecv(peer.rank, int(ctx.tag)+1, ctx.sendBufs[i])
		if err != nil {
			return err
		}
		ctx.inFlight = append(ctx.inFlight, req)
		p.collector.RecordExchange("reverse-recv", len(ctx.sendBufs[i]))
	}
	return nil
}

// EndReverse implements distplan.DistributionPlan.
func (p *typedPlan[T]) EndReverse(ctxIn distplan.Context, ghost, local []T, op distplan.Op) error {
	ctx, err := asExchangeContext(ctxIn)
	if err != nil {
		return err
	}
	if err := waitAll(ctx.inFlight); err != nil {
		return err
	}
	B := ctx.blockB
	for i, peer := range p.sendPeers {
		switch op {
		case distplan.Add:
			scatterAdd(local, peer.localPositions, B, ctx.sendBufs[i])
		default:
			scatterInsert(local, peer.localPositions, B, ctx.sendBufs[i])
		}
	}
	return nil
}

func waitAll(reqs []comm.Request) error {
	var firstErr error
	for _, r := range reqs {
		if err := r.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func gather[T scalar.Type](src []T, positions []int, B int, dst []byte) {
	lanes := scalar.LanesPerValue[T]()
	block := make([]T, B)
	for k, pos := range positions {
		copy(block, src[pos*B:pos*B+B])
		packBlock(dst[k*B*lanes*8:(k+1)*B*lanes*8], block)
	}
}

func scatterInsert[T scalar.Type](dst []T, positions []int, B int, src []byte) {
	lanes := scalar.LanesPerValue[T]()
	block := make([]T, B)
	for k, pos := range positions {
		unpackBlock(src[k*B*lanes*8:(k+1)*B*lanes*8], block)
		copy(dst[pos*B:pos*B+B], block)
	}
}

func scatterAdd[T scalar.Type](dst []T, positions []int, B int, src []byte) {
	lanes := scalar.LanesPerValue[T]()
	block := make([]T, B)
	for k, pos := range positions {
		unpackBlock(src[k*B*lanes*8:(k+1)*B*lanes*8], block)
		for j := 0; j < B; j++ {
			dst[pos*B+j] += block[j]
		}
	}
}
