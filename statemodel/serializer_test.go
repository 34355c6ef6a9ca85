package statemodel_test

import (
	"strings"
	"testing"

	"github.com/flowrt/flowrt/flowgraph"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/statemodel"
	"github.com/flowrt/flowrt/typereg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vecState struct {
	Values []int `yaml:"values"`
}

func buildGraph(t *testing.T) *flowgraph.Graph[item.Wrapper] {
	t.Helper()
	g := flowgraph.New[item.Wrapper]()
	a, b, c := mustID(t, "a"), mustID(t, "b"), mustID(t, "c")
	require.NoError(t, g.Add(a, nil))
	require.NoError(t, g.Add(b, nil))
	require.NoError(t, g.Add(c, nil))
	require.NoError(t, g.AddEdge(a, b, flowgraph.Logic))
	require.NoError(t, g.AddEdge(b, c, flowgraph.Logic))
	return g
}

func TestSerializeStatesWritesNullForMissingEntries(t *testing.T) {
	g := buildGraph(t)
	m := statemodel.New[statemodel.CurrentTag]()
	m.Insert(mustID(t, "a"), vecState{Values: []int{1, 2}})
	m.Insert(mustID(t, "c"), vecState{Values: []int{9}})
	// "b" intentionally has no entry.

	var buf strings.Builder
	require.NoError(t, statemodel.SerializeStates(&buf, g, m))

	out := buf.String()
	assert.Contains(t, out, "a:")
	assert.Contains(t, out, "b: null")
	assert.Contains(t, out, "c:")
}

func TestSerializeDeserializeStatesRoundTrip(t *testing.T) {
	g := buildGraph(t)
	m := statemodel.New[statemodel.CurrentTag]()
	m.Insert(mustID(t, "a"), vecState{Values: []int{1, 2, 3}})
	m.Insert(mustID(t, "b"), vecState{Values: []int{4}})

	var buf strings.Builder
	require.NoError(t, statemodel.SerializeStates(&buf, g, m))

	reg := typereg.New()
	typereg.Register[vecState](reg, "a")
	typereg.Register[vecState](reg, "b")
	typereg.Register[vecState](reg, "c")

	got, err := statemodel.DeserializeStates[statemodel.CurrentTag](strings.NewReader(buf.String()), reg)
	require.NoError(t, err)

	v, ok := got.Get(mustID(t, "a"))
	require.True(t, ok)
	state, ok := v.(*vecState)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, state.Values)

	cv, ok := got.Get(mustID(t, "c"))
	require.True(t, ok)
	assert.Nil(t, cv)
}

func TestParamsSpecsSerializeDeserializeAndMissingDetection(t *testing.T) {
	a, b, c := mustID(t, "a"), mustID(t, "b"), mustID(t, "c")
	order := []ids.ItemId{a, b, c}

	specs := statemodel.ParamsSpecs{
		a: {Kind: statemodel.ValueLiteral, Literal: "pinned"},
		b: {Kind: statemodel.ValueFromState, FromStateItem: a, FromStateField: "ip"},
	}

	var buf strings.Builder
	require.NoError(t, statemodel.SerializeParamsSpecs(&buf, order, specs))

	got, err := statemodel.DeserializeParamsSpecs(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, statemodel.ValueLiteral, got[a].Kind)
	assert.Equal(t, "pinned", got[a].Literal)
	assert.Equal(t, a, got[b].FromStateItem)

	missing := statemodel.MissingSpecs(order, got)
	assert.Equal(t, []ids.ItemId{c}, missing)
}
