// Package output implements the OutputWrite collaborator contract of
// spec.md §6: two concrete writers a CmdExecution can render progress
// through, grounded on the teacher's coordinator package.
package output

import (
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/progress"
)

// Writer is the full OutputWrite contract: progress.Output (the three
// methods progress.Render drives during a CmdExecution) plus the
// execution-bracketing and final-result methods spec.md §6 also names
// (progress_begin, progress_end, present, write_err). Split from
// progress.Output so progress has no dependency on this package; a
// caller that holds a concrete Writer can call the bracketing methods
// directly around cmdexecution.Execution.Run, which only needs the
// narrower progress.Output.
type Writer interface {
	progress.Output

	// ProgressBegin announces that a CmdExecution is starting.
	ProgressBegin(flow ids.FlowId, blockCount int) error
	// ProgressEnd announces that a CmdExecution has finished, successfully
	// or not.
	ProgressEnd(flow ids.FlowId) error
	// Present renders a final human-facing summary of outcome.
	Present(summary Summary) error
	// WriteErr logs a non-fatal error: a failed write to this Writer itself
	// must never abort execution (spec.md §6), so callers route output
	// errors here instead of propagating them.
	WriteErr(err error)
}

// Summary is the terminal-result payload Present renders. It deliberately
// does not depend on cmdexecution.Outcome's Value field (an erased any),
// since rendering a human summary only needs the shape every Outcome
// carries regardless of which blocks ran.
type Summary struct {
	Flow            ids.FlowId
	Complete        bool
	ItemErrors      map[ids.ItemId]error
	BlocksProcessed []string
	BlocksRemaining []string
}
