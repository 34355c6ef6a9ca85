package cmdexecution_test

import (
	"context"
	"testing"

	"github.com/flowrt/flowrt/cmdblock"
	"github.com/flowrt/flowrt/cmdexecution"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/interrupt"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStep struct {
	desc    string
	outcome cmdblock.Outcome
	err     error
	ran     *bool
}

func (s *fakeStep) Desc() string              { return s.desc }
func (s *fakeStep) InputTypeNames() []string   { return nil }
func (s *fakeStep) OutcomeTypeNames() []string { return nil }

func (s *fakeStep) Run(ctx context.Context, r *resources.Resources[ts.Any], progressTx chan<- progress.CmdProgressUpdate, interruptState interrupt.State) (cmdblock.Outcome, error) {
	if s.ran != nil {
		*s.ran = true
	}
	return s.outcome, s.err
}

type noopOutput struct{}

func (noopOutput) CmdBlockStart(string) error             { return nil }
func (noopOutput) ItemProgress(progress.Snapshot) error    { return nil }
func (noopOutput) ItemLocationState(ids.ItemId, any) error { return nil }

func mustID(t *testing.T, s string) ids.ItemId {
	t.Helper()
	id, err := ids.NewItemId(s)
	require.NoError(t, err)
	return id
}

func TestExecutionRunsAllStepsToCompletion(t *testing.T) {
	var ran1, ran2 bool
	steps := []cmdblock.Step{
		&fakeStep{desc: "discover", outcome: cmdblock.Outcome{Kind: cmdblock.OutcomeComplete, Value: 1}, ran: &ran1},
		&fakeStep{desc: "diff", outcome: cmdblock.Outcome{Kind: cmdblock.OutcomeComplete, Value: 2}, ran: &ran2},
	}
	exec := cmdexecution.New(steps...)
	r := resources.New[ts.Any]()
	trackers := map[ids.ItemId]*progress.Tracker{mustID(t, "a"): progress.NewTracker(mustID(t, "a"))}

	outcome := exec.Run(context.Background(), r, trackers, noopOutput{}, interrupt.NonInterruptible())
	assert.Equal(t, cmdexecution.OutcomeComplete, outcome.Kind)
	assert.Equal(t, 2, outcome.Value)
	assert.True(t, ran1)
	assert.True(t, ran2)
}

func TestExecutionStopsAtItemError(t *testing.T) {
	var ran2 bool
	failID := mustID(t, "bad")
	steps := []cmdblock.Step{
		&fakeStep{desc: "discover", outcome: cmdblock.Outcome{
			Kind:       cmdblock.OutcomeItemError,
			ItemErrors: map[ids.ItemId]error{failID: assertErr{}},
		}},
		&fakeStep{desc: "diff", outcome: cmdblock.Outcome{Kind: cmdblock.OutcomeComplete}, ran: &ran2},
	}
	exec := cmdexecution.New(steps...)
	r := resources.New[ts.Any]()

	outcome := exec.Run(context.Background(), r, nil, noopOutput{}, interrupt.NonInterruptible())
	assert.Equal(t, cmdexecution.OutcomeItemError, outcome.Kind)
	require.Contains(t, outcome.ItemErrors, failID)
	assert.False(t, ran2, "subsequent blocks must not run after an item error")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestExecutionStopsOnExecutionInterrupt(t *testing.T) {
	var ran bool
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps := []cmdblock.Step{
		&fakeStep{desc: "discover", outcome: cmdblock.Outcome{Kind: cmdblock.OutcomeComplete}, ran: &ran},
	}
	exec := cmdexecution.New(steps...)
	r := resources.New[ts.Any]()

	outcome := exec.Run(ctx, r, nil, noopOutput{}, interrupt.FromContext(ctx))
	assert.Equal(t, cmdexecution.OutcomeExecutionInterrupted, outcome.Kind)
	assert.False(t, ran)
	assert.Equal(t, []string{"discover"}, outcome.BlocksRemaining)
}
