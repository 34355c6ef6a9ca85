// Package blocks implements the built-in CmdBlocks of SPEC_FULL.md §4.9:
// state discovery, diffing, the pre-apply sync check, apply execution
// (dry and real), and clean. Each is a cmdblock.Step grounded on the
// shared cmdblock.RunGraph exec engine.
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

// DiscoverMode selects which of state_current/state_goal
// StatesDiscoverCmdBlock invokes.
type DiscoverMode int

const (
	DiscoverCurrent DiscoverMode = iota
	DiscoverGoal
	DiscoverCurrentAndGoal
)

// DiscoverResult is StatesDiscoverCmdBlock's Outcome.Value: whichever of
// Current/Goal the block's Mode produced is non-nil.
type DiscoverResult struct {
	Current *statemodel.StatesCurrent
	Goal    *statemodel.StatesGoal
}

// StatesDiscoverBlock runs state_current and/or state_goal over every
// Item in Graph, accumulating into StatesCurrent and/or StatesGoal, then
// inserting the resulting map(s) into Resources. If Persist is set, it is
// called with the discovered result before insertion — wired to
// workspace storage so discovery also durably records state to disk.
type StatesDiscoverBlock struct {
	Mode    DiscoverMode
	Graph   *flowgraph.Graph[item.Wrapper]
	Persist func(DiscoverResult) error
}

func (b *StatesDiscoverBlock) Desc() string {
	switch b.Mode {
	case DiscoverCurrent:
		return "states_discover_current"
	case DiscoverGoal:
		return "states_discover_goal"
	default:
		return "states_discover_current_and_goal"
	}
}

func (b *StatesDiscoverBlock) InputTypeNames() []string { return nil }

func (b *StatesDiscoverBlock) OutcomeTypeNames() []string {
	switch b.Mode {
	case DiscoverCurrent:
		return []string{"statemodel.StatesCurrent"}
	case DiscoverGoal:
		return []string{"statemodel.StatesGoal"}
	default:
		return []string{"statemodel.StatesCurrent", "statemodel.StatesGoal"}
	}
}

type discoverPartial struct {
	current, goal any
}

func (b *StatesDiscoverBlock) Run(
	ctx context.Context,
	r *resources.Resources[ts.Any],
	progressTx chan<- progress.CmdProgressUpdate,
	interruptState interrupt.State,
) (cmdblock.Outcome, error) {
	current := statemodel.New[statemodel.CurrentTag]()
	goal := statemodel.New[statemodel.GoalTag]()

	outcome := cmdblock.RunGraph[int, discoverPartial](
		ctx, b.Graph, interruptState, progressTx, b.Desc(), 0,
		func(ctx context.Context, id ids.ItemId, w item.Wrapper) (discoverPartial, error) {
			var p discoverPartial
			if b.Mode == DiscoverCurrent || b.Mode == DiscoverCurrentAndGoal {
				s, err := w.StateCurrent(ctx)
				if err != nil {
					return p, err
				}
				p.current = s
			}
			if b.Mode == DiscoverGoal || b.Mode == DiscoverCurrentAndGoal {
				s, err := w.StateGoal(ctx)
				if err != nil {
					return p, err
				}
				p.goal = s
			}
			return p, nil
		},
		func(acc int, id ids.ItemId, p discoverPartial) int {
			if p.current != nil {
				current.Insert(id, p.current)
			}
			if p.goal != nil {
				goal.Insert(id, p.goal)
			}
			return acc + 1
		},
		// Discovery is a pure-read phase: one Item erroring should not
		// block discovering the rest (SPEC_FULL.md §4.6 step 4 policy).
		true,
	)

	result := DiscoverResult{}
	if b.Mode == DiscoverCurrent || b.Mode == DiscoverCurrentAndGoal {
		result.Current = current
	}
	if b.Mode == DiscoverGoal || b.Mode == DiscoverCurrentAndGoal {
		result.Goal = goal
	}
	outcome.Value = result

	if outcome.Kind != cmdblock.OutcomeComplete {
		return outcome, nil
	}

	if b.Persist != nil {
		if err := b.Persist(result); err != nil {
			return cmdblock.Outcome{}, err
		}
	}
	if result.Current != nil {
		resources.Insert(r, result.Current)
	}
	if result.Goal != nil {
		resources.Insert(r, result.Goal)
	}
	return outcome, nil
}
