// Package interrupt implements InterruptibilityState, the cooperative
// cancellation handle CmdBlocks poll between ready-set items and before
// each apply invocation (SPEC_FULL.md §4.10).
//
// The source models this as an owned value wrapping a receiver that
// yields once, with a `reborrow()` to hand out a temporary non-owning
// view without consuming the original — a concession to a language with
// linear ownership. Go has no ownership to reborrow from: a
// context.Context is already a freely shareable, safely read-many handle
// whose Done() channel closes (not "yields a value") exactly once, so
// InterruptibilityState is a thin value type over one, and any number of
// call sites can hold and poll the same one concurrently with no borrow
// accounting at all.
package interrupt

import "context"

// State is either non-interruptible (Done never fires) or wraps a
// context whose cancellation is the interrupt signal. The zero value is
// non-interruptible.
type State struct {
	ctx context.Context
}

// NonInterruptible returns a State that can never be interrupted.
func NonInterruptible() State {
	return State{}
}

// FromContext returns a State whose interrupt signal is ctx's
// cancellation.
func FromContext(ctx context.Context) State {
	return State{ctx: ctx}
}

// Interruptible reports whether this State can ever fire.
func (s State) Interruptible() bool {
	return s.ctx != nil
}

// Done returns the channel that closes when the interrupt fires, or nil
// (which blocks forever in a select) if this State is non-interruptible.
func (s State) Done() <-chan struct{} {
	if s.ctx == nil {
		return nil
	}
	return s.ctx.Done()
}

// Poll reports whether the interrupt has already fired, without
// blocking.
func (s State) Poll() bool {
	if s.ctx == nil {
		return false
	}
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// Reborrow returns s unchanged. It exists so call sites translating the
// reborrow-before-passing-down pattern read the same way the source does;
// in Go, sharing s directly would be equally correct.
func (s State) Reborrow() State {
	return s
}
