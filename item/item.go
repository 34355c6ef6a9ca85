// Package item defines the Item contract every managed resource
// implements, and ItemWrapper, the type-erasing holder CmdBlocks drive
// over a FlowGraph of heterogeneous Items.
//
// Go interfaces already erase concrete types structurally, so rather than
// boxing every state value behind `any` and down-casting on every call (as
// ItemWrapper's erasure implies), the erasure point is pushed to exactly
// where the CmdBlock layer needs it: Wrapper exposes `any`-typed state in
// and out, while the generic wrapper[P, Pt, S, D, Dt] adapts one concrete
// Item[P, Pt, S, D, Dt] to it. This keeps concrete Items fully typed and
// confines the type assertions (with their panic-at-most-once contract) to
// one file (wrapper.go), grounded on the teacher's executor.Registry
// pattern of holding heterogeneous Executors behind one Executor interface
// (executor/executor.go).
package item

import (
	"context"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// FnCtx is threaded through apply_dry/apply: the caller's cancellation
// context plus the Sender the Item must periodically tick while it
// performs I/O.
type FnCtx struct {
	Ctx      context.Context
	Progress *progress.Sender
}

// ApplyCheckKind discriminates ApplyCheck.
type ApplyCheckKind int

const (
	// ExecNotRequired means the current and target states already match;
	// apply/apply_dry must not be called.
	ExecNotRequired ApplyCheckKind = iota
	// ExecRequired means apply/apply_dry must run to reconcile the diff.
	ExecRequired
)

// ApplyCheck is the decision surface ApplyExecCmdBlock acts on: whether an
// Item's apply must run given its StateDiff, and if so, how far its
// progress sender is expected to climb.
type ApplyCheck struct {
	Kind          ApplyCheckKind
	ProgressLimit *progress.Limit // only meaningful when Kind == ExecRequired
}

// InteractionKind locates an ItemInteraction for rendering.
type InteractionKind int

const (
	InteractionLocalhost InteractionKind = iota
	InteractionHost
	InteractionPath
)

// ItemInteraction is one declarative location an Item's apply will touch,
// used purely for rendering a location graph; it carries no execution
// semantics.
type ItemInteraction struct {
	Kind InteractionKind
	// Location is the host address (InteractionHost) or filesystem path
	// (InteractionPath); empty for InteractionLocalhost.
	Location string
}

// Item is the lifecycle contract every managed resource implements. P is
// the fully-resolved params type, Pt its possibly-partial counterpart, S
// the state type, D the state-diff type, and Dt the process-wide
// collaborator data an Item's setup() registers into Resources (e.g. a
// client handle).
type Item[P any, Pt any, S any, D any, Dt any] interface {
	// ID returns the item's stable identifier within its Flow.
	ID() ids.ItemId

	// Setup registers any process-wide collaborators this Item needs
	// (clients, caches) into resources, so later stages can retrieve them
	// by type via resources.Borrow[ts.SetUp, Dt].
	Setup(r *resources.Resources[ts.SetUp]) error

	// StateExample returns a representative state value with no side
	// effects, used for documentation and dry rendering.
	StateExample(params P, data Dt) S

	// TryStateCurrent discovers current state using a possibly-incomplete
	// params view; ok is false when discovery cannot proceed (e.g. an
	// unresolved required field), which is not itself an error.
	TryStateCurrent(ctx context.Context, partial Pt, data Dt) (state S, ok bool, err error)

	// StateCurrent authoritatively discovers current state.
	StateCurrent(ctx context.Context, params P, data Dt) (S, error)

	// TryStateGoal is TryStateCurrent's counterpart for the desired state.
	TryStateGoal(ctx context.Context, partial Pt, data Dt) (state S, ok bool, err error)

	// StateGoal authoritatively computes the desired state.
	StateGoal(ctx context.Context, params P, data Dt) (S, error)

	// StateDiff compares two states (typically current vs. goal).
	StateDiff(ctx context.Context, partial Pt, data Dt, stateA, stateB S) (D, error)

	// StateClean returns the state representing "fully removed".
	StateClean(ctx context.Context, partial Pt, data Dt) (S, error)

	// ApplyCheck decides whether apply/apply_dry must run given diff.
	ApplyCheck(params P, data Dt, stateCurrent, stateTarget S, diff D) (ApplyCheck, error)

	// ApplyDry simulates reconciliation without mutating the external
	// resource, returning the state apply would have produced.
	ApplyDry(fnCtx FnCtx, params P, data Dt, stateCurrent, stateTarget S, diff D) (S, error)

	// Apply reconciles stateCurrent towards stateTarget, returning the
	// resulting state. It may suspend on I/O and must periodically tick
	// fnCtx.Progress.
	Apply(fnCtx FnCtx, params P, data Dt, stateCurrent, stateTarget S, diff D) (S, error)

	// Interactions returns the declarative location graph apply will
	// touch, for rendering.
	Interactions(params P, data Dt) []ItemInteraction
}
