// Package shellcmd implements a reference Item whose managed resource is
// the observable stdout of a shell command, grounded on the teacher's
// common.ShellExecute (bash -c, capture stdout/stderr, wrap the error with
// stderr content). Unlike the teacher's standalone helper, a ShellCommand
// Item distinguishes a read-only check command (state discovery) from an
// apply command (reconciliation), matching spec.md's split between
// state_current/state_goal and apply.
package shellcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// Params is the fully-resolved configuration of one ShellCommand Item.
type Params struct {
	// CheckCmd is run (via "bash -c") to discover the current state; its
	// trimmed stdout is State.Stdout.
	CheckCmd string
	// ApplyCmd is run to reconcile current state toward GoalStdout.
	ApplyCmd string
	// GoalStdout is the desired trimmed stdout of CheckCmd.
	GoalStdout string
}

// PartialParams is Params with every field optionally known, used by
// TryStateCurrent/TryStateGoal/StateDiff/StateClean before every field has
// been resolved.
type PartialParams struct {
	CheckCmd   *string
	ApplyCmd   *string
	GoalStdout *string
}

// State is the observable result of running CheckCmd once.
type State struct {
	Stdout   string
	ExitCode int
}

// Diff reports whether two States differ.
type Diff struct {
	Changed bool
}

// Data is the process-wide collaborator a ShellCommand Item needs; none,
// since os/exec needs no client handle, so Setup is a no-op.
type Data struct{}

// Item runs shell commands to discover and reconcile state.
type Item struct {
	id ids.ItemId
}

var _ item.Item[Params, PartialParams, State, Diff, Data] = (*Item)(nil)

// New returns a ShellCommand Item identified by id.
func New(id ids.ItemId) *Item { return &Item{id: id} }

func (i *Item) ID() ids.ItemId { return i.id }

func (i *Item) Setup(r *resources.Resources[ts.SetUp]) error {
	resources.Insert[ts.SetUp](r, Data{})
	return nil
}

func (i *Item) StateExample(Params, Data) State {
	return State{Stdout: "example output", ExitCode: 0}
}

func (i *Item) TryStateCurrent(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	if partial.CheckCmd == nil {
		return State{}, false, nil
	}
	st, err := i.StateCurrent(ctx, Params{CheckCmd: *partial.CheckCmd}, data)
	return st, true, err
}

func (i *Item) StateCurrent(ctx context.Context, params Params, data Data) (State, error) {
	return run(ctx, params.CheckCmd)
}

func (i *Item) TryStateGoal(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	if partial.GoalStdout == nil {
		return State{}, false, nil
	}
	return State{Stdout: *partial.GoalStdout, ExitCode: 0}, true, nil
}

func (i *Item) StateGoal(ctx context.Context, params Params, data Data) (State, error) {
	return State{Stdout: params.GoalStdout, ExitCode: 0}, nil
}

func (i *Item) StateDiff(ctx context.Context, partial PartialParams, data Data, stateA, stateB State) (Diff, error) {
	return Diff{Changed: stateA.Stdout != stateB.Stdout || stateA.ExitCode != stateB.ExitCode}, nil
}

func (i *Item) StateClean(ctx context.Context, partial PartialParams, data Data) (State, error) {
	return State{}, nil
}

func (i *Item) ApplyCheck(params Params, data Data, stateCurrent, stateTarget State, diff Diff) (item.ApplyCheck, error) {
	if !diff.Changed {
		return item.ApplyCheck{Kind: item.ExecNotRequired}, nil
	}
	return item.ApplyCheck{Kind: item.ExecRequired}, nil
}

func (i *Item) ApplyDry(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: fmt.Sprintf("would run: %s", params.ApplyCmd)})
	return stateTarget, nil
}

func (i *Item) Apply(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: fmt.Sprintf("running: %s", params.ApplyCmd)})
	if _, err := run(fnCtx.Ctx, params.ApplyCmd); err != nil {
		return State{}, err
	}
	fnCtx.Progress.Inc(1, progress.MsgUpdate{})
	return run(fnCtx.Ctx, params.CheckCmd)
}

func (i *Item) Interactions(params Params, data Data) []item.ItemInteraction {
	return []item.ItemInteraction{{Kind: item.InteractionLocalhost}}
}

// run executes cmdToRun via "bash -c", grounded on common.ShellExecute's
// stdout/stderr capture and error-wrapping shape.
func run(ctx context.Context, cmdToRun string) (State, error) {
	cmd := exec.CommandContext(ctx, "bash", "-c", cmdToRun)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return State{}, fmt.Errorf("shellcmd: running %q: %w, stderr: %s", cmdToRun, err, stderr.String())
	}
	return State{Stdout: trimTrailingNewline(stdout.String()), ExitCode: exitCode}, nil
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
