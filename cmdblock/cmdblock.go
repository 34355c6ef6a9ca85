// Package cmdblock implements the CmdBlock contract: one phase over a
// FlowGraph of Items (SPEC_FULL.md §4.6). A goroutine is launched per
// ready Item and fanned in over a channel, substituting for the source's
// single-threaded cooperative async scheduling, per SPEC_FULL.md §5's
// Go-specific substitutions note.
package cmdblock

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowrt/flowrt/flowgraph"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/interrupt"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/progress"
)

// InputFetchError reports that a CmdBlock's declared input type was not
// present in Resources when the block started; this is fatal to the
// enclosing CmdExecution.
type InputFetchError struct {
	BlockDesc string
	Required  []string
	Cause     error
}

func (e *InputFetchError) Error() string {
	return fmt.Sprintf("%s: required input %v not available in resources: %v", e.BlockDesc, e.Required, e.Cause)
}

func (e *InputFetchError) Unwrap() error { return e.Cause }

// OutcomeKind discriminates Outcome.
type OutcomeKind int

const (
	OutcomeComplete OutcomeKind = iota
	OutcomeItemError
	OutcomeBlockInterrupted
)

// Outcome is a CmdBlock's result, erased to `any` the same way
// item.Wrapper erases Item's associated types: concrete blocks in the
// blocks package know their own OutcomeAcc type and downcast accordingly.
type Outcome struct {
	Kind OutcomeKind

	// Value holds the folded OutcomeAcc, present on OutcomeComplete and
	// (as a best-effort partial fold) on OutcomeItemError and
	// OutcomeBlockInterrupted.
	Value any

	// ItemErrors is populated on OutcomeItemError: the per-item failures
	// collected before the block gave up.
	ItemErrors map[ids.ItemId]error
}

// PerItemFunc runs one Item's operation for this CmdBlock phase,
// returning its partial contribution to OutcomeAcc.
type PerItemFunc[OutcomePartial any] func(ctx context.Context, id ids.ItemId, w item.Wrapper) (OutcomePartial, error)

// FoldFunc accumulates one item's partial result into the running
// OutcomeAcc.
type FoldFunc[OutcomeAcc any, OutcomePartial any] func(acc OutcomeAcc, id ids.ItemId, partial OutcomePartial) OutcomeAcc

// RunGraph implements the exec protocol shared by every built-in CmdBlock
// (SPEC_FULL.md §4.6 steps 2-5): stream the graph, run perItem on each
// ready node from its own goroutine, fold results as they complete, honor
// interruption, and stop at the first item error unless continueOnError.
func RunGraph[OutcomeAcc any, OutcomePartial any](
	ctx context.Context,
	g *flowgraph.Graph[item.Wrapper],
	interruptState interrupt.State,
	progressTx chan<- progress.CmdProgressUpdate,
	interactionType string,
	seed OutcomeAcc,
	perItem PerItemFunc[OutcomePartial],
	fold FoldFunc[OutcomeAcc, OutcomePartial],
	continueOnError bool,
) Outcome {
	return runGraph(ctx, g, false, interruptState, progressTx, interactionType, seed, perItem, fold, continueOnError)
}

// RunGraphRev is RunGraph but streams the graph against Logic-edge
// direction (flowgraph.Graph.StreamRev), for the clean-direction
// traversal ApplyExecCmdBlock/CleanCmdBlock use when unwinding a Flow in
// dependency-reverse order (spec.md §4.9).
func RunGraphRev[OutcomeAcc any, OutcomePartial any](
	ctx context.Context,
	g *flowgraph.Graph[item.Wrapper],
	interruptState interrupt.State,
	progressTx chan<- progress.CmdProgressUpdate,
	interactionType string,
	seed OutcomeAcc,
	perItem PerItemFunc[OutcomePartial],
	fold FoldFunc[OutcomeAcc, OutcomePartial],
	continueOnError bool,
) Outcome {
	return runGraph(ctx, g, true, interruptState, progressTx, interactionType, seed, perItem, fold, continueOnError)
}

func runGraph[OutcomeAcc any, OutcomePartial any](
	ctx context.Context,
	g *flowgraph.Graph[item.Wrapper],
	reverse bool,
	interruptState interrupt.State,
	progressTx chan<- progress.CmdProgressUpdate,
	interactionType string,
	seed OutcomeAcc,
	perItem PerItemFunc[OutcomePartial],
	fold FoldFunc[OutcomeAcc, OutcomePartial],
	continueOnError bool,
) Outcome {
	if progressTx != nil {
		select {
		case progressTx <- progress.CmdProgressUpdate{
			Kind:    progress.UpdateCmdBlockStart,
			Payload: progress.CmdBlockStartPayload{InteractionType: interactionType},
		}:
		case <-ctx.Done():
		}
	}

	type result struct {
		id      ids.ItemId
		partial OutcomePartial
		err     error
		ready   *flowgraph.Ready[item.Wrapper]
	}

	var stream *flowgraph.Stream[item.Wrapper]
	if reverse {
		stream = g.StreamRev()
	} else {
		stream = g.Stream()
	}
	// Buffered to the graph's full size: perItem goroutines launched
	// before an early stop (item error or interrupt) must never block on
	// this send, since nothing may be left reading it.
	results := make(chan result, g.Len())

	go func() {
		var wg sync.WaitGroup
		for {
			if interruptState.Poll() {
				break
			}
			ready, ok, err := stream.Next(ctx)
			if err != nil || !ok {
				break
			}
			wg.Add(1)
			go func(ready *flowgraph.Ready[item.Wrapper]) {
				defer wg.Done()
				partial, err := perItem(ctx, ready.ID, ready.Node)
				results <- result{id: ready.ID, partial: partial, err: err, ready: ready}
			}(ready)
		}
		wg.Wait()
		close(results)
	}()

	acc := seed
	itemErrors := map[ids.ItemId]error{}
	interrupted := false

	for r := range results {
		if r.err != nil {
			itemErrors[r.id] = r.err
			r.ready.Complete()
			if !continueOnError {
				break
			}
			continue
		}
		acc = fold(acc, r.id, r.partial)
		r.ready.Complete()
		if interruptState.Poll() {
			interrupted = true
			break
		}
	}

	if len(itemErrors) > 0 {
		return Outcome{Kind: OutcomeItemError, Value: acc, ItemErrors: itemErrors}
	}
	if interrupted {
		return Outcome{Kind: OutcomeBlockInterrupted, Value: acc}
	}
	return Outcome{Kind: OutcomeComplete, Value: acc}
}
