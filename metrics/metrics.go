// Package metrics defines the MetricsCollector instrumentation points
// for the ghost-exchange protocol (spec §7), following the same
// collector-interface-plus-noop-plus-basic-plus-Prometheus shape used
// throughout the retrieved examples for operational metrics.
package metrics

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives a callback for every send or receive a
// DistributionPlan posts in its begin exchange calls, plus collective
// operations a Communicator performs. Implement this to wire in an external
// monitoring system.
type MetricsCollector interface {
	// RecordExchange is called once per BeginForward/BeginReverse
	// send or recv posted, tagged by direction ("forward-send",
	// "forward-recv", "reverse-send", "reverse-recv") with the
	// payload size in bytes.
	RecordExchange(direction string, bytes int)

	// RecordCollective is called after a Barrier, Bcast, or
	// AllReduceSum completes.
	RecordCollective(op string, duration time.Duration, err error)
}

// noopCollector discards every call.
type noopCollector struct{}

func (noopCollector) RecordExchange(string, int)                  {}
func (noopCollector) RecordCollective(string, time.Duration, error) {}

// Noop returns a MetricsCollector that does nothing, for callers that
// don't want instrumentation overhead.
func Noop() MetricsCollector { return noopCollector{} }

// Basic is a simple in-memory MetricsCollector, useful for debugging
// and tests without pulling in Prometheus.
type Basic struct {
	ExchangeCount  atomic.Int64
	ExchangeBytes  atomic.Int64
	CollectiveOps  atomic.Int64
	CollectiveErrs atomic.Int64
}

// RecordExchange implements MetricsCollector.
func (b *Basic) RecordExchange(_ string, bytes int) {
	b.ExchangeCount.Add(1)
	b.ExchangeBytes.Add(int64(bytes))
}

// RecordCollective implements MetricsCollector.
func (b *Basic) RecordCollective(_ string, _ time.Duration, err error) {
	b.CollectiveOps.Add(1)
	if err != nil {
		b.CollectiveErrs.Add(1)
	}
}

// Snapshot is a point-in-time copy of a Basic collector's counters.
type Snapshot struct {
	ExchangeCount  int64
	ExchangeBytes  int64
	CollectiveOps  int64
	CollectiveErrs int64
}

// Snapshot returns the current counter values.
func (b *Basic) Snapshot() Snapshot {
	return Snapshot{
		ExchangeCount:  b.ExchangeCount.Load(),
		ExchangeBytes:  b.ExchangeBytes.Load(),
		CollectiveOps:  b.CollectiveOps.Load(),
		CollectiveErrs: b.CollectiveErrs.Load(),
	}
}
