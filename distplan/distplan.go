// Package distplan specifies the DistributionPlan/Context external
// interfaces (spec §6, §4.4): the precomputed forward/reverse exchange
// schedule and its per-vector scratch context. The plan itself is
// treated as a given input in spec §1 ("the distribution plan... is
// an input; only its required contract is specified"); distplan/local
// supplies a reference implementation so the protocol can be built and
// tested end to end.
package distplan

import "github.com/SeiyonArulampalam/tacs/scalar"

// Op selects how an incoming block combines with the destination
// slot during the reverse exchange (spec §6).
type Op int

const (
	// Insert overwrites the destination with the incoming value.
	Insert Op = iota
	// Add accumulates the incoming value into the destination.
	Add
)

func (op Op) String() string {
	switch op {
	case Insert:
		return "INSERT_VALUES"
	case Add:
		return "ADD_VALUES"
	default:
		return "UNKNOWN_OP"
	}
}

// Context is the opaque per-vector scratch state created by
// CreateContext: send/recv buffers and in-flight request handles
// reused across begin/end pairs.
type Context interface {
	// Close releases the context's buffers. Safe to call multiple
	// times.
	Close()
}

// DistributionPlan is the collaborator a BlockVector exchanges its
// ghost region through. Size must match the vector's GhostIndexSet.
type DistributionPlan[T scalar.Type] interface {
	// Size returns G, the ghost count this plan was built for.
	Size() int

	// CreateContext allocates a Context sized for block size B.
	CreateContext(blockSize int) Context

	// BeginForward posts the owner-to-ghost broadcast: each owner's
	// local[g] will be copied into every ghosting rank's ghost[j].
	BeginForward(ctx Context, local, ghost []T) error
	// EndForward waits for the forward exchange and leaves ghost
	// populated.
	EndForward(ctx Context, local, ghost []T) error

	// BeginReverse posts the ghost-to-owner combine: each ghost[j] is
	// combined by op into its owner's local[g].
	BeginReverse(ctx Context, ghost, local []T, op Op) error
	// EndReverse waits for the reverse exchange to complete.
	EndReverse(ctx Context, ghost, local []T, op Op) error
}
