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

// CleanBlock is CleanCmdBlock: the same per-item apply_check/apply_dry/
// apply sequence as ApplyExecBlock, but it computes its own target via
// state_clean rather than reading a precomputed StatesGoal/StateDiffs
// pair from Resources, and always streams the clean-direction (reverse)
// traversal so a dependent Item is torn down before what it depends on.
type CleanBlock struct {
	Graph *flowgraph.Graph[item.Wrapper]
	Dry   bool
}

func (b *CleanBlock) Desc() string {
	if b.Dry {
		return "clean_dry"
	}
	return "clean"
}

func (b *CleanBlock) InputTypeNames() []string {
	return []string{resources.TypeName[*statemodel.StatesCurrent]()}
}

func (b *CleanBlock) OutcomeTypeNames() []string {
	return []string{resources.TypeName[*statemodel.StatesCurrent]()}
}

func (b *CleanBlock) Run(
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
	cur := current.Get()

	perItem := func(ctx context.Context, id ids.ItemId, w item.Wrapper) (any, error) {
		curState, ok := cur.Get(id)
		if !ok {
			return nil, &statemodel.MissingEntryError{ItemID: id, Kind: "current"}
		}
		cleanState, err := w.StateClean(ctx)
		if err != nil {
			return nil, err
		}
		diff, err := w.StateDiff(ctx, curState, cleanState)
		if err != nil {
			return nil, err
		}
		check, err := w.ApplyCheck(curState, cleanState, diff)
		if err != nil {
			return nil, err
		}
		if check.Kind != item.ExecRequired {
			return cleanState, nil
		}
		if interruptState.Poll() {
			return nil, context.Canceled
		}

		sender := progress.NewSender(ctx, id, progressTx)
		fnCtx := item.FnCtx{Ctx: ctx, Progress: sender}
		if b.Dry {
			return w.ApplyDry(fnCtx, curState, cleanState, diff)
		}
		return w.Apply(fnCtx, curState, cleanState, diff)
	}

	fold := func(acc int, id ids.ItemId, partial any) int {
		cur.Insert(id, partial)
		return acc + 1
	}

	outcome := cmdblock.RunGraphRev[int, any](ctx, b.Graph, interruptState, progressTx, b.Desc(), 0, perItem, fold, false)
	outcome.Value = cur
	return outcome, nil
}
