package blocks

import (
	"context"
	"fmt"
	"reflect"

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

// StateDivergedError reports that an Item's previously-persisted current
// state no longer matches what was just discovered — someone or
// something changed the managed resource out of band since the plan
// this CmdExecution is about to apply was drawn up.
type StateDivergedError struct {
	ItemID ids.ItemId
	Saved  any
	Found  any
}

func (e *StateDivergedError) Error() string {
	return fmt.Sprintf("item %s: saved current state %#v no longer matches discovered state %#v", e.ItemID, e.Saved, e.Found)
}

// SyncCheckBlock is ApplyStateSyncCheckCmdBlock: it compares the
// previously-persisted StatesCurrent (LoadSaved, wired to workspace
// storage) against the freshly-discovered StatesCurrent already sitting
// in Resources, aborting the item on any divergence so a stale plan is
// never applied over state that moved underneath it.
type SyncCheckBlock struct {
	Graph     *flowgraph.Graph[item.Wrapper]
	LoadSaved func() (*statemodel.StatesCurrent, error)
}

func (b *SyncCheckBlock) Desc() string { return "apply_state_sync_check" }

func (b *SyncCheckBlock) InputTypeNames() []string {
	return []string{resources.TypeName[*statemodel.StatesCurrent]()}
}

func (b *SyncCheckBlock) OutcomeTypeNames() []string { return nil }

func (b *SyncCheckBlock) Run(
	ctx context.Context,
	r *resources.Resources[ts.Any],
	progressTx chan<- progress.CmdProgressUpdate,
	interruptState interrupt.State,
) (cmdblock.Outcome, error) {
	discovered, err := resources.Borrow[ts.Any, *statemodel.StatesCurrent](r)
	if err != nil {
		return cmdblock.Outcome{}, &cmdblock.InputFetchError{BlockDesc: b.Desc(), Required: b.InputTypeNames(), Cause: err}
	}
	defer discovered.Release()

	saved, err := b.LoadSaved()
	if err != nil {
		return cmdblock.Outcome{}, fmt.Errorf("%s: loading saved current state: %w", b.Desc(), err)
	}

	disc := discovered.Get()
	outcome := cmdblock.RunGraph[int, struct{}](
		ctx, b.Graph, interruptState, progressTx, b.Desc(), 0,
		func(ctx context.Context, id ids.ItemId, w item.Wrapper) (struct{}, error) {
			savedState, ok := saved.Get(id)
			if !ok {
				// No prior run recorded this item; nothing to diverge from.
				return struct{}{}, nil
			}
			foundState, ok := disc.Get(id)
			if !ok {
				return struct{}{}, &statemodel.MissingEntryError{ItemID: id, Kind: "current"}
			}
			if !reflect.DeepEqual(savedState, foundState) {
				return struct{}{}, &StateDivergedError{ItemID: id, Saved: savedState, Found: foundState}
			}
			return struct{}{}, nil
		},
		func(acc int, id ids.ItemId, _ struct{}) int { return acc + 1 },
		// Apply-phase policy: stop at the first divergence.
		false,
	)
	return outcome, nil
}
