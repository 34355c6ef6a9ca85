package blocks

import (
	"context"

	"github.com/flowrt/flowrt/cmdblock"
	"github.com/flowrt/flowrt/flowgraph"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/interrupt"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
	"github.com/flowrt/flowrt/statemodel"
)

// ApplyDirection picks which way ApplyExecBlock/CleanBlock stream the
// graph: Forward follows Logic-edge dependency order (apply creates a
// depended-on Item before its dependent), Reverse unwinds it
// (CleanCmdBlock tears down a dependent before what it depends on).
type ApplyDirection int

const (
	DirectionForward ApplyDirection = iota
	DirectionReverse
)

// ApplyExecBlock is ApplyExecCmdBlock{dry, direction}: per item it calls
// apply_check, and when ExecRequired calls apply_dry or apply, updating
// StatesCurrent in place with the returned state.
type ApplyExecBlock struct {
	Graph     *flowgraph.Graph[item.Wrapper]
	Dry       bool
	Direction ApplyDirection
}

func (b *ApplyExecBlock) Desc() string {
	if b.Dry {
		return "apply_exec_dry"
	}
	return "apply_exec"
}

func (b *ApplyExecBlock) InputTypeNames() []string {
	return []string{
		resources.TypeName[*statemodel.StatesCurrent](),
		resources.TypeName[*statemodel.StatesGoal](),
		resources.TypeName[*statemodel.StateDiffs](),
	}
}

func (b *ApplyExecBlock) OutcomeTypeNames() []string {
	return []string{resources.TypeName[*statemodel.StatesCurrent]()}
}

func (b *ApplyExecBlock) Run(
	ctx context.Context,
	r *resources.Resources[ts.Any],
	progressTx chan<- progress.CmdProgressUpdate,
	interruptState interrupt.State,
) (cmdblock.Outcome, error) {
	current, err := resources.BorrowMut[ts.Any, *statemodel.StatesCurrent](r)
	if err != nil {
		return cmdblock.Outcome{}, &cmdblock.InputFetchError{BlockDesc: b.Desc(), Required: b.InputTypeNames(), Cause: err}
	}
	defer current.Release()
	goal, err := resources.Borrow[ts.Any, *statemodel.StatesGoal](r)
	if err != nil {
		return cmdblock.Outcome{}, &cmdblock.InputFetchError{BlockDesc: b.Desc(), Required: b.InputTypeNames(), Cause: err}
	}
	defer goal.Release()
	diffs, err := resources.Borrow[ts.Any, *statemodel.StateDiffs](r)
	if err != nil {
		return cmdblock.Outcome{}, &cmdblock.InputFetchError{BlockDesc: b.Desc(), Required: b.InputTypeNames(), Cause: err}
	}
	defer diffs.Release()

	cur, gl, df := current.Get(), goal.Get(), diffs.Get()

	perItem := func(ctx context.Context, id ids.ItemId, w item.Wrapper) (any, error) {
		// Interrupt is polled between ready-set dequeues by RunGraph/
		// RunGraphRev already; apply_check itself is cheap and in-memory,
		// but the contract also polls immediately before the apply call
		// (spec.md §4.10) since that is the expensive, possibly-suspending
		// step.
		curState, _ := cur.Get(id)
		goalState, _ := gl.Get(id)
		diff, ok := df.Get(id)
		if !ok {
			return nil, &statemodel.MissingEntryError{ItemID: id, Kind: "diff"}
		}

		check, err := w.ApplyCheck(curState, goalState, diff)
		if err != nil {
			return nil, err
		}
		if check.Kind != item.ExecRequired {
			return curState, nil
		}
		if interruptState.Poll() {
			return nil, context.Canceled
		}

		sender := progress.NewSender(ctx, id, progressTx)
		fnCtx := item.FnCtx{Ctx: ctx, Progress: sender}
		if b.Dry {
			return w.ApplyDry(fnCtx, curState, goalState, diff)
		}
		return w.Apply(fnCtx, curState, goalState, diff)
	}

	fold := func(acc int, id ids.ItemId, partial any) int {
		cur.Insert(id, partial)
		return acc + 1
	}

	var outcome cmdblock.Outcome
	if b.Direction == DirectionReverse {
		outcome = cmdblock.RunGraphRev[int, any](ctx, b.Graph, interruptState, progressTx, b.Desc(), 0, perItem, fold, false)
	} else {
		outcome = cmdblock.RunGraph[int, any](ctx, b.Graph, interruptState, progressTx, b.Desc(), 0, perItem, fold, false)
	}
	outcome.Value = cur
	return outcome, nil
}
