package item

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// Wrapper is the type-erased form of an Item[P, Pt, S, D, Dt] bound to one
// concrete set of Params/Partial/Data: a FlowGraph of Items is a
// flowgraph.Graph[Wrapper]. Params, Partial, and Data are resolved once
// (by a paramsresolve step run before the graph is built, not by any
// CmdBlock — see DESIGN.md) and captured at construction, so the erased
// surface only needs to carry State/StateDiff values across CmdBlock
// boundaries; that keeps the per-call erasure (and its downcasts) to
// exactly the values that actually flow between blocks through
// Resources, instead of re-erasing Params/Data on every call.
type Wrapper interface {
	ID() ids.ItemId
	Setup(r *resources.Resources[ts.SetUp]) error

	// StateTypeName and DiffTypeName return the concrete Item's state and
	// diff type names, for CmdBlock diagnostics when a downcast fails.
	StateTypeName() string
	DiffTypeName() string

	StateExample() any
	TryStateCurrent(ctx context.Context) (state any, ok bool, err error)
	StateCurrent(ctx context.Context) (any, error)
	TryStateGoal(ctx context.Context) (state any, ok bool, err error)
	StateGoal(ctx context.Context) (any, error)
	StateDiff(ctx context.Context, stateA, stateB any) (any, error)
	StateClean(ctx context.Context) (any, error)
	ApplyCheck(stateCurrent, stateTarget, diff any) (ApplyCheck, error)
	ApplyDry(fnCtx FnCtx, stateCurrent, stateTarget, diff any) (any, error)
	Apply(fnCtx FnCtx, stateCurrent, stateTarget, diff any) (any, error)
	Interactions() []ItemInteraction
}

type wrapper[P any, Pt any, S any, D any, Dt any] struct {
	item    Item[P, Pt, S, D, Dt]
	params  P
	partial Pt
	data    Dt

	mu       sync.Mutex
	poisoned bool
}

// NewWrapper erases it behind the Wrapper interface, binding params,
// partial, and data for the lifetime of the wrapper.
func NewWrapper[P any, Pt any, S any, D any, Dt any](it Item[P, Pt, S, D, Dt], params P, partial Pt, data Dt) Wrapper {
	return &wrapper[P, Pt, S, D, Dt]{item: it, params: params, partial: partial, data: data}
}

// panicOnce enforces the "panic-at-most-once" downcast contract: the
// first bad downcast panics with a framework-bug message; any downcast
// failure after that on the same wrapper returns quietly instead of
// panicking again, since the execution is already unwinding.
func (w *wrapper[P, Pt, S, D, Dt]) panicOnce(msg string) {
	w.mu.Lock()
	if w.poisoned {
		w.mu.Unlock()
		return
	}
	w.poisoned = true
	w.mu.Unlock()
	panic(msg)
}

func downcast[T any](w interface{ panicOnce(string) }, v any, field string) T {
	var zero T
	if v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		w.panicOnce(fmt.Sprintf("bug in the framework: expected %s of type %T, got %T", field, zero, v))
		return zero
	}
	return t
}

func (w *wrapper[P, Pt, S, D, Dt]) ID() ids.ItemId { return w.item.ID() }

func (w *wrapper[P, Pt, S, D, Dt]) Setup(r *resources.Resources[ts.SetUp]) error {
	return w.item.Setup(r)
}

func (w *wrapper[P, Pt, S, D, Dt]) StateTypeName() string {
	return reflect.TypeFor[S]().String()
}

func (w *wrapper[P, Pt, S, D, Dt]) DiffTypeName() string {
	return reflect.TypeFor[D]().String()
}

func (w *wrapper[P, Pt, S, D, Dt]) StateExample() any {
	return w.item.StateExample(w.params, w.data)
}

func (w *wrapper[P, Pt, S, D, Dt]) TryStateCurrent(ctx context.Context) (any, bool, error) {
	return w.item.TryStateCurrent(ctx, w.partial, w.data)
}

func (w *wrapper[P, Pt, S, D, Dt]) StateCurrent(ctx context.Context) (any, error) {
	return w.item.StateCurrent(ctx, w.params, w.data)
}

func (w *wrapper[P, Pt, S, D, Dt]) TryStateGoal(ctx context.Context) (any, bool, error) {
	return w.item.TryStateGoal(ctx, w.partial, w.data)
}

func (w *wrapper[P, Pt, S, D, Dt]) StateGoal(ctx context.Context) (any, error) {
	return w.item.StateGoal(ctx, w.params, w.data)
}

func (w *wrapper[P, Pt, S, D, Dt]) StateDiff(ctx context.Context, stateA, stateB any) (any, error) {
	a := downcast[S](w, stateA, "state")
	b := downcast[S](w, stateB, "state")
	return w.item.StateDiff(ctx, w.partial, w.data, a, b)
}

func (w *wrapper[P, Pt, S, D, Dt]) StateClean(ctx context.Context) (any, error) {
	return w.item.StateClean(ctx, w.partial, w.data)
}

func (w *wrapper[P, Pt, S, D, Dt]) ApplyCheck(stateCurrent, stateTarget, diff any) (ApplyCheck, error) {
	cur := downcast[S](w, stateCurrent, "state")
	tgt := downcast[S](w, stateTarget, "state")
	df := downcast[D](w, diff, "diff")
	return w.item.ApplyCheck(w.params, w.data, cur, tgt, df)
}

func (w *wrapper[P, Pt, S, D, Dt]) ApplyDry(fnCtx FnCtx, stateCurrent, stateTarget, diff any) (any, error) {
	cur := downcast[S](w, stateCurrent, "state")
	tgt := downcast[S](w, stateTarget, "state")
	df := downcast[D](w, diff, "diff")
	return w.item.ApplyDry(fnCtx, w.params, w.data, cur, tgt, df)
}

func (w *wrapper[P, Pt, S, D, Dt]) Apply(fnCtx FnCtx, stateCurrent, stateTarget, diff any) (any, error) {
	cur := downcast[S](w, stateCurrent, "state")
	tgt := downcast[S](w, stateTarget, "state")
	df := downcast[D](w, diff, "diff")
	return w.item.Apply(fnCtx, w.params, w.data, cur, tgt, df)
}

func (w *wrapper[P, Pt, S, D, Dt]) Interactions() []ItemInteraction {
	return w.item.Interactions(w.params, w.data)
}
