package shellcmd_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/items/shellcmd"
	"github.com/flowrt/flowrt/progress"
)

func mustID(t *testing.T) ids.ItemId {
	t.Helper()
	id, err := ids.NewItemId("echo_check")
	require.NoError(t, err)
	return id
}

func TestStateCurrentCapturesTrimmedStdout(t *testing.T) {
	it := shellcmd.New(mustID(t))
	st, err := it.StateCurrent(context.Background(), shellcmd.Params{CheckCmd: "echo hello"}, shellcmd.Data{})
	require.NoError(t, err)
	assert.Equal(t, "hello", st.Stdout)
	assert.Equal(t, 0, st.ExitCode)
}

func TestStateCurrentReportsNonZeroExit(t *testing.T) {
	it := shellcmd.New(mustID(t))
	st, err := it.StateCurrent(context.Background(), shellcmd.Params{CheckCmd: "exit 3"}, shellcmd.Data{})
	require.NoError(t, err)
	assert.Equal(t, 3, st.ExitCode)
}

func TestStateDiffDetectsChange(t *testing.T) {
	it := shellcmd.New(mustID(t))
	diff, err := it.StateDiff(context.Background(), shellcmd.PartialParams{}, shellcmd.Data{},
		shellcmd.State{Stdout: "a"}, shellcmd.State{Stdout: "b"})
	require.NoError(t, err)
	assert.True(t, diff.Changed)
}

func TestApplyCheckExecNotRequiredWhenUnchanged(t *testing.T) {
	it := shellcmd.New(mustID(t))
	chk, err := it.ApplyCheck(shellcmd.Params{}, shellcmd.Data{}, shellcmd.State{Stdout: "a"}, shellcmd.State{Stdout: "a"}, shellcmd.Diff{Changed: false})
	require.NoError(t, err)
	assert.Equal(t, item.ExecNotRequired, chk.Kind)
}

func TestApplyRunsApplyCmdThenRechecks(t *testing.T) {
	it := shellcmd.New(mustID(t))
	ch := make(chan progress.CmdProgressUpdate, 8)
	sender := progress.NewSender(context.Background(), mustID(t), ch)

	params := shellcmd.Params{CheckCmd: "cat /tmp/flowrt-shellcmd-test-marker 2>/dev/null || echo missing", ApplyCmd: "echo present > /tmp/flowrt-shellcmd-test-marker"}
	fnCtx := item.FnCtx{Ctx: context.Background(), Progress: sender}

	st, err := it.Apply(fnCtx, params, shellcmd.Data{}, shellcmd.State{}, shellcmd.State{Stdout: "present"}, shellcmd.Diff{Changed: true})
	require.NoError(t, err)
	assert.Equal(t, "present", st.Stdout)
}

func TestStateCleanReturnsZeroState(t *testing.T) {
	it := shellcmd.New(mustID(t))
	st, err := it.StateClean(context.Background(), shellcmd.PartialParams{}, shellcmd.Data{})
	require.NoError(t, err)
	assert.Equal(t, shellcmd.State{}, st)
}
