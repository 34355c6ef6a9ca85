// Package cmdexecution implements CmdExecution, the ordered queue of
// CmdBlocks that make up one run of a Flow (SPEC_FULL.md §4.7): discover,
// diff, sync-check, apply, or the equivalent clean sequence.
package cmdexecution

import (
	"context"

	"github.com/flowrt/flowrt/cmdblock"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/interrupt"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// OutcomeKind discriminates Outcome.
type OutcomeKind int

const (
	OutcomeComplete OutcomeKind = iota
	OutcomeItemError
	OutcomeBlockInterrupted
	OutcomeExecutionInterrupted
)

// Outcome is CmdExecution's result: the first of item error, block
// interrupt, or execution interrupt to occur, else Complete
// (SPEC_FULL.md §4.7 step 4).
type Outcome struct {
	Kind OutcomeKind

	// Value is the last successfully produced block Outcome.Value,
	// downcast by the caller to its declared Outcome type.
	Value any

	// ItemErrors is populated on OutcomeItemError.
	ItemErrors map[ids.ItemId]error

	// BlocksProcessed and BlocksRemaining are populated on
	// OutcomeExecutionInterrupted and OutcomeBlockInterrupted: the block
	// descriptions already run (including the interrupted block) and those
	// that were queued but never started.
	BlocksProcessed []string
	BlocksRemaining []string
}

// Execution owns an ordered queue of Steps and the shared Resources store
// they thread state through.
type Execution struct {
	steps []cmdblock.Step
}

// New returns an Execution that will run steps in order.
func New(steps ...cmdblock.Step) *Execution {
	return &Execution{steps: steps}
}

// Run drives the full block queue against r, rendering progress through
// output as it goes (SPEC_FULL.md §4.7 steps 1-5). trackers must already
// contain one Tracker per Item that will appear across every step.
func (e *Execution) Run(
	ctx context.Context,
	r *resources.Resources[ts.Any],
	trackers map[ids.ItemId]*progress.Tracker,
	output progress.Output,
	interruptState interrupt.State,
) Outcome {
	progressCh := make(chan progress.CmdProgressUpdate, len(trackers)+1)
	renderDone := make(chan error, 1)
	go func() {
		renderDone <- progress.Render(trackers, progressCh, output)
	}()

	var (
		processed []string
		last      any
	)

	outcome := Outcome{Kind: OutcomeComplete}

	for i, step := range e.steps {
		if interruptState.Poll() {
			outcome = Outcome{
				Kind:            OutcomeExecutionInterrupted,
				Value:           last,
				BlocksProcessed: processed,
				BlocksRemaining: remainingDescs(e.steps[i:]),
			}
			break
		}

		blockOutcome, err := step.Run(ctx, r, progressCh, interruptState)
		if err != nil {
			// Input fetch failure is execution-fatal; report it as an
			// item-less item error so callers have one place to look.
			outcome = Outcome{
				Kind:       OutcomeItemError,
				Value:      last,
				ItemErrors: map[ids.ItemId]error{"": err},
			}
			break
		}

		processed = append(processed, step.Desc())
		last = blockOutcome.Value

		switch blockOutcome.Kind {
		case cmdblock.OutcomeComplete:
			outcome = Outcome{Kind: OutcomeComplete, Value: last}
			continue
		case cmdblock.OutcomeItemError:
			outcome = Outcome{Kind: OutcomeItemError, Value: last, ItemErrors: blockOutcome.ItemErrors}
		case cmdblock.OutcomeBlockInterrupted:
			outcome = Outcome{
				Kind:            OutcomeBlockInterrupted,
				Value:           last,
				BlocksProcessed: processed,
				BlocksRemaining: remainingDescs(e.steps[i+1:]),
			}
		}
		break
	}

	close(progressCh)
	<-renderDone

	return outcome
}

func remainingDescs(steps []cmdblock.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Desc()
	}
	return out
}
