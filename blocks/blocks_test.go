package blocks_test

import (
	"context"
	"testing"

	"github.com/flowrt/flowrt/blocks"
	"github.com/flowrt/flowrt/flowgraph"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/interrupt"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
	"github.com/flowrt/flowrt/statemodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testParams struct{ N int }
type testPartial struct{ N int }
type testState struct{ N int }
type testDiff struct{ Delta int }
type testData struct{}

type counterItem struct{ id ids.ItemId }

func (c *counterItem) ID() ids.ItemId { return c.id }
func (c *counterItem) Setup(r *resources.Resources[ts.SetUp]) error { return nil }
func (c *counterItem) StateExample(params testParams, data testData) testState {
	return testState{}
}
func (c *counterItem) TryStateCurrent(ctx context.Context, partial testPartial, data testData) (testState, bool, error) {
	return testState{N: partial.N}, true, nil
}
func (c *counterItem) StateCurrent(ctx context.Context, params testParams, data testData) (testState, error) {
	return testState{N: params.N}, nil
}
func (c *counterItem) TryStateGoal(ctx context.Context, partial testPartial, data testData) (testState, bool, error) {
	return c.TryStateCurrent(ctx, partial, data)
}
func (c *counterItem) StateGoal(ctx context.Context, params testParams, data testData) (testState, error) {
	return c.StateCurrent(ctx, params, data)
}
func (c *counterItem) StateDiff(ctx context.Context, partial testPartial, data testData, a, b testState) (testDiff, error) {
	return testDiff{Delta: b.N - a.N}, nil
}
func (c *counterItem) StateClean(ctx context.Context, partial testPartial, data testData) (testState, error) {
	return testState{N: 0}, nil
}
func (c *counterItem) ApplyCheck(params testParams, data testData, current, target testState, diff testDiff) (item.ApplyCheck, error) {
	if diff.Delta == 0 {
		return item.ApplyCheck{Kind: item.ExecNotRequired}, nil
	}
	return item.ApplyCheck{Kind: item.ExecRequired}, nil
}
func (c *counterItem) ApplyDry(fnCtx item.FnCtx, params testParams, data testData, current, target testState, diff testDiff) (testState, error) {
	return target, nil
}
func (c *counterItem) Apply(fnCtx item.FnCtx, params testParams, data testData, current, target testState, diff testDiff) (testState, error) {
	return target, nil
}
func (c *counterItem) Interactions(params testParams, data testData) []item.ItemInteraction {
	return nil
}

func mustID(t *testing.T, s string) ids.ItemId {
	t.Helper()
	id, err := ids.NewItemId(s)
	require.NoError(t, err)
	return id
}

func wrapped(id ids.ItemId, n int) item.Wrapper {
	return item.NewWrapper[testParams, testPartial, testState, testDiff, testData](
		&counterItem{id: id}, testParams{N: n}, testPartial{N: n}, testData{})
}

func buildGraph(t *testing.T, params map[string]int) *flowgraph.Graph[item.Wrapper] {
	t.Helper()
	g := flowgraph.New[item.Wrapper]()
	var prev ids.ItemId
	first := true
	for name, n := range params {
		id := mustID(t, name)
		require.NoError(t, g.Add(id, wrapped(id, n)))
		if !first {
			require.NoError(t, g.AddEdge(prev, id, flowgraph.Logic))
		}
		prev, first = id, false
	}
	return g
}

func TestStatesDiscoverCurrentInsertsIntoResources(t *testing.T) {
	g := buildGraph(t, map[string]int{"a": 1, "b": 2})
	r := resources.New[ts.Any]()
	block := &blocks.StatesDiscoverBlock{Mode: blocks.DiscoverCurrent, Graph: g}

	outcome, err := block.Run(context.Background(), r, nil, interrupt.NonInterruptible())
	require.NoError(t, err)

	result, ok := outcome.Value.(blocks.DiscoverResult)
	require.True(t, ok)
	require.NotNil(t, result.Current)
	assert.Nil(t, result.Goal)

	v, ok := result.Current.Get(mustID(t, "a"))
	require.True(t, ok)
	assert.Equal(t, testState{N: 1}, v)

	borrowed, err := resources.Borrow[ts.Any, *statemodel.StatesCurrent](r)
	require.NoError(t, err)
	defer borrowed.Release()
	assert.Equal(t, result.Current, borrowed.Get())
}

func TestDiffBlockComputesPerItemDelta(t *testing.T) {
	g := buildGraph(t, map[string]int{"a": 1})
	id := mustID(t, "a")

	r := resources.New[ts.Any]()
	cur := statemodel.New[statemodel.CurrentTag]()
	cur.Insert(id, testState{N: 1})
	goal := statemodel.New[statemodel.GoalTag]()
	goal.Insert(id, testState{N: 4})
	resources.Insert(r, cur)
	resources.Insert(r, goal)

	block := &blocks.DiffBlock[statemodel.CurrentTag, statemodel.GoalTag]{Graph: g}
	outcome, err := block.Run(context.Background(), r, nil, interrupt.NonInterruptible())
	require.NoError(t, err)

	diffs, ok := outcome.Value.(*statemodel.StateDiffs)
	require.True(t, ok)
	v, ok := diffs.Get(id)
	require.True(t, ok)
	assert.Equal(t, testDiff{Delta: 3}, v)
}

func TestApplyExecBlockUpdatesCurrentWhenExecRequired(t *testing.T) {
	g := buildGraph(t, map[string]int{"a": 1})
	id := mustID(t, "a")

	r := resources.New[ts.Any]()
	cur := statemodel.New[statemodel.CurrentTag]()
	cur.Insert(id, testState{N: 1})
	goal := statemodel.New[statemodel.GoalTag]()
	goal.Insert(id, testState{N: 9})
	diffs := statemodel.New[statemodel.DiffTag]()
	diffs.Insert(id, testDiff{Delta: 8})
	resources.Insert(r, cur)
	resources.Insert(r, goal)
	resources.Insert(r, diffs)

	block := &blocks.ApplyExecBlock{Graph: g, Dry: false, Direction: blocks.DirectionForward}
	outcome, err := block.Run(context.Background(), r, nil, interrupt.NonInterruptible())
	require.NoError(t, err)

	updated, ok := outcome.Value.(*statemodel.StatesCurrent)
	require.True(t, ok)
	v, ok := updated.Get(id)
	require.True(t, ok)
	assert.Equal(t, testState{N: 9}, v)
}

func TestCleanBlockDrivesStateToZero(t *testing.T) {
	g := buildGraph(t, map[string]int{"a": 5})
	id := mustID(t, "a")

	r := resources.New[ts.Any]()
	cur := statemodel.New[statemodel.CurrentTag]()
	cur.Insert(id, testState{N: 5})
	resources.Insert(r, cur)

	block := &blocks.CleanBlock{Graph: g}
	outcome, err := block.Run(context.Background(), r, nil, interrupt.NonInterruptible())
	require.NoError(t, err)

	updated, ok := outcome.Value.(*statemodel.StatesCurrent)
	require.True(t, ok)
	v, ok := updated.Get(id)
	require.True(t, ok)
	assert.Equal(t, testState{N: 0}, v)
}

func TestSyncCheckBlockAbortsOnDivergence(t *testing.T) {
	g := buildGraph(t, map[string]int{"a": 1})
	id := mustID(t, "a")

	r := resources.New[ts.Any]()
	discovered := statemodel.New[statemodel.CurrentTag]()
	discovered.Insert(id, testState{N: 1})
	resources.Insert(r, discovered)

	saved := statemodel.New[statemodel.CurrentTag]()
	saved.Insert(id, testState{N: 999})

	block := &blocks.SyncCheckBlock{
		Graph:     g,
		LoadSaved: func() (*statemodel.StatesCurrent, error) { return saved, nil },
	}
	outcome, err := block.Run(context.Background(), r, nil, interrupt.NonInterruptible())
	require.NoError(t, err)
	assert.Equal(t, 1, len(outcome.ItemErrors))
	var divergedErr *blocks.StateDivergedError
	require.ErrorAs(t, outcome.ItemErrors[id], &divergedErr)
}

func TestSyncCheckBlockPassesWhenUnchanged(t *testing.T) {
	g := buildGraph(t, map[string]int{"a": 1})
	id := mustID(t, "a")

	r := resources.New[ts.Any]()
	discovered := statemodel.New[statemodel.CurrentTag]()
	discovered.Insert(id, testState{N: 1})
	resources.Insert(r, discovered)

	saved := statemodel.New[statemodel.CurrentTag]()
	saved.Insert(id, testState{N: 1})

	block := &blocks.SyncCheckBlock{
		Graph:     g,
		LoadSaved: func() (*statemodel.StatesCurrent, error) { return saved, nil },
	}
	outcome, err := block.Run(context.Background(), r, nil, interrupt.NonInterruptible())
	require.NoError(t, err)
	assert.Empty(t, outcome.ItemErrors)
}

func TestResolveParamsSpecsLiteralAndFromState(t *testing.T) {
	a, b := mustID(t, "a"), mustID(t, "b")
	discovered := statemodel.New[statemodel.CurrentTag]()
	discovered.Insert(a, testState{N: 42})

	specs := statemodel.ParamsSpecs{
		a: {Kind: statemodel.ValueLiteral, Literal: 7},
		b: {Kind: statemodel.ValueFromState, FromStateItem: a, FromStateField: "N"},
	}

	out, err := blocks.ResolveParamsSpecs([]ids.ItemId{a, b}, specs, discovered, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, out[a])
	assert.Equal(t, 42, out[b])
}

func TestResolveParamsSpecsUnresolvableFromState(t *testing.T) {
	a, b := mustID(t, "a"), mustID(t, "b")
	discovered := statemodel.New[statemodel.CurrentTag]()

	specs := statemodel.ParamsSpecs{
		b: {Kind: statemodel.ValueFromState, FromStateItem: a, FromStateField: "N"},
	}
	_, err := blocks.ResolveParamsSpecs([]ids.ItemId{a, b}, specs, discovered, nil)
	require.Error(t, err)
}
