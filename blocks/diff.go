package blocks

import (
	"context"
	"fmt"

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

// DiffBlock is DiffCmdBlock<Ts0, Ts1>: it borrows States<Tag0> and
// States<Tag1> from Resources, invokes state_diff per item, and inserts
// the resulting StateDiffs. Tag0/Tag1 are Borrowed rather than consumed
// (unlike the contract's default try_remove input_fetch), since a later
// block in the same CmdExecution — ApplyStateSyncCheckCmdBlock, in
// particular — still needs the freshly-discovered StatesCurrent to
// compare against what was last persisted; see DESIGN.md.
type DiffBlock[Tag0 any, Tag1 any] struct {
	Graph *flowgraph.Graph[item.Wrapper]
}

func (b *DiffBlock[Tag0, Tag1]) Desc() string { return "diff" }

func (b *DiffBlock[Tag0, Tag1]) InputTypeNames() []string {
	return []string{resources.TypeName[*statemodel.Map[Tag0]](), resources.TypeName[*statemodel.Map[Tag1]]()}
}

func (b *DiffBlock[Tag0, Tag1]) OutcomeTypeNames() []string {
	return []string{resources.TypeName[*statemodel.StateDiffs]()}
}

func (b *DiffBlock[Tag0, Tag1]) Run(
	ctx context.Context,
	r *resources.Resources[ts.Any],
	progressTx chan<- progress.CmdProgressUpdate,
	interruptState interrupt.State,
) (cmdblock.Outcome, error) {
	g0, err := resources.Borrow[ts.Any, *statemodel.Map[Tag0]](r)
	if err != nil {
		return cmdblock.Outcome{}, &cmdblock.InputFetchError{BlockDesc: b.Desc(), Required: b.InputTypeNames(), Cause: err}
	}
	defer g0.Release()
	g1, err := resources.Borrow[ts.Any, *statemodel.Map[Tag1]](r)
	if err != nil {
		return cmdblock.Outcome{}, &cmdblock.InputFetchError{BlockDesc: b.Desc(), Required: b.InputTypeNames(), Cause: err}
	}
	defer g1.Release()

	m0, m1 := g0.Get(), g1.Get()
	diffs := statemodel.New[statemodel.DiffTag]()

	outcome := cmdblock.RunGraph[int, any](
		ctx, b.Graph, interruptState, progressTx, b.Desc(), 0,
		func(ctx context.Context, id ids.ItemId, w item.Wrapper) (any, error) {
			a, ok := m0.Get(id)
			if !ok {
				return nil, fmt.Errorf("diff: %w", &statemodel.MissingEntryError{ItemID: id, Kind: "source-0"})
			}
			c, ok := m1.Get(id)
			if !ok {
				return nil, fmt.Errorf("diff: %w", &statemodel.MissingEntryError{ItemID: id, Kind: "source-1"})
			}
			return w.StateDiff(ctx, a, c)
		},
		func(acc int, id ids.ItemId, partial any) int {
			diffs.Insert(id, partial)
			return acc + 1
		},
		// Diffing is a pure computation over already-discovered state, not
		// an apply-phase; continue past a single item's diff error so the
		// caller sees every item's diff failure in one pass.
		true,
	)
	outcome.Value = diffs
	if outcome.Kind == cmdblock.OutcomeComplete {
		resources.Insert(r, diffs)
	}
	return outcome, nil
}
