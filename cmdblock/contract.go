package cmdblock

import (
	"context"

	"github.com/flowrt/flowrt/interrupt"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// Step is the erased form of one CmdBlock phase that CmdExecution queues
// and runs: it owns its own input_fetch and outcome_insert (both
// overridable per SPEC_FULL.md §4.6, default try_remove/insert on the
// concrete block's declared types), so CmdExecution only needs to hand it
// the shared store and collect the result.
//
// Resources[ts.Any] is the erasure point for the per-block compile-time
// type-state proof: a heterogeneous queue of blocks, each expecting a
// different guaranteed-present resource, cannot be expressed with a
// distinct Resources[TS] per entry without one queue-element type per
// block (defeating the point of a queue). Concrete blocks in the blocks
// package still document their expected/produced tag and may be
// unit-tested against the stricter generic Resources[TS] form directly.
type Step interface {
	// Desc is a short block name for diagnostics (ResourceFetchError,
	// progress CmdBlockStart payloads).
	Desc() string

	// InputTypeNames and OutcomeTypeNames name this block's declared
	// input/outcome types, checked against what input_fetch/outcome_insert
	// actually touch when a fetch fails.
	InputTypeNames() []string
	OutcomeTypeNames() []string

	// Run fetches this block's input from r, executes it over its items,
	// inserts the outcome back into r on success, and returns the result.
	// A non-nil error is execution-fatal: most often the input could not
	// be fetched at all (*InputFetchError), but a block may also return
	// other errors, such as a failure to load or persist saved state.
	// Per-item failures are reported inside Outcome instead.
	Run(ctx context.Context, r *resources.Resources[ts.Any], progressTx chan<- progress.CmdProgressUpdate, interruptState interrupt.State) (Outcome, error)
}
