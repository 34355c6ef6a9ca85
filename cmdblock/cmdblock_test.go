package cmdblock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flowrt/flowrt/cmdblock"
	"github.com/flowrt/flowrt/flowgraph"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/interrupt"
	"github.com/flowrt/flowrt/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustID(t *testing.T, s string) ids.ItemId {
	t.Helper()
	id, err := ids.NewItemId(s)
	require.NoError(t, err)
	return id
}

func buildGraph(t *testing.T, names ...string) *flowgraph.Graph[item.Wrapper] {
	t.Helper()
	g := flowgraph.New[item.Wrapper]()
	for _, n := range names {
		require.NoError(t, g.Add(mustID(t, n), nil))
	}
	for i := 0; i+1 < len(names); i++ {
		require.NoError(t, g.AddEdge(mustID(t, names[i]), mustID(t, names[i+1]), flowgraph.Logic))
	}
	return g
}

func TestRunGraphCompletesAndFolds(t *testing.T) {
	g := buildGraph(t, "a", "b", "c")

	outcome := cmdblock.RunGraph[int, int](
		context.Background(),
		g,
		interrupt.NonInterruptible(),
		nil,
		"discover",
		0,
		func(ctx context.Context, id ids.ItemId, w item.Wrapper) (int, error) {
			return 1, nil
		},
		func(acc int, id ids.ItemId, partial int) int { return acc + partial },
		false,
	)

	assert.Equal(t, cmdblock.OutcomeComplete, outcome.Kind)
	assert.Equal(t, 3, outcome.Value)
}

func TestRunGraphStopsAtFirstErrorByDefault(t *testing.T) {
	g := buildGraph(t, "a", "b", "c")
	failing := mustID(t, "b")

	outcome := cmdblock.RunGraph[int, int](
		context.Background(),
		g,
		interrupt.NonInterruptible(),
		nil,
		"apply",
		0,
		func(ctx context.Context, id ids.ItemId, w item.Wrapper) (int, error) {
			if id == failing {
				return 0, errors.New("boom")
			}
			return 1, nil
		},
		func(acc int, id ids.ItemId, partial int) int { return acc + partial },
		false,
	)

	assert.Equal(t, cmdblock.OutcomeItemError, outcome.Kind)
	require.Contains(t, outcome.ItemErrors, failing)
}

func TestRunGraphContinuesOnErrorWhenPolicyAllows(t *testing.T) {
	g := buildGraph(t, "a", "b", "c")
	failing := mustID(t, "b")

	outcome := cmdblock.RunGraph[int, int](
		context.Background(),
		g,
		interrupt.NonInterruptible(),
		nil,
		"discover",
		0,
		func(ctx context.Context, id ids.ItemId, w item.Wrapper) (int, error) {
			if id == failing {
				return 0, errors.New("boom")
			}
			return 1, nil
		},
		func(acc int, id ids.ItemId, partial int) int { return acc + partial },
		true,
	)

	assert.Equal(t, cmdblock.OutcomeItemError, outcome.Kind)
	assert.Equal(t, 2, outcome.Value)
	require.Contains(t, outcome.ItemErrors, failing)
}

func TestRunGraphInterrupted(t *testing.T) {
	g := buildGraph(t, "a", "b", "c")
	ctx, cancel := context.WithCancel(context.Background())
	interruptState := interrupt.FromContext(ctx)

	outcome := cmdblock.RunGraph[int, int](
		ctx,
		g,
		interruptState,
		nil,
		"apply",
		0,
		func(ctx context.Context, id ids.ItemId, w item.Wrapper) (int, error) {
			if id == mustID(t, "a") {
				cancel()
			}
			return 1, nil
		},
		func(acc int, id ids.ItemId, partial int) int { return acc + partial },
		false,
	)

	assert.Equal(t, cmdblock.OutcomeBlockInterrupted, outcome.Kind)
}
