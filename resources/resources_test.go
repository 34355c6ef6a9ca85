package resources_test

import (
	"testing"

	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vecState struct{ Values []int }

func TestInsertRemoveContains(t *testing.T) {
	r := resources.New[ts.Empty]()

	assert.False(t, resources.Contains[ts.Empty, vecState](r))

	resources.Insert(r, vecState{Values: []int{1, 2, 3}})
	assert.True(t, resources.Contains[ts.Empty, vecState](r))

	v, ok := resources.Remove[ts.Empty, vecState](r)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, v.Values)

	assert.False(t, resources.Contains[ts.Empty, vecState](r))
	_, ok = resources.Remove[ts.Empty, vecState](r)
	assert.False(t, ok)
}

func TestTryRemoveFailsWhenAbsent(t *testing.T) {
	r := resources.New[ts.Empty]()
	_, err := resources.TryRemove[ts.Empty, vecState](r)
	require.Error(t, err)

	var fetchErr *resources.ResourceFetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestInsertOverwrites(t *testing.T) {
	r := resources.New[ts.Empty]()
	resources.Insert(r, vecState{Values: []int{1}})
	resources.Insert(r, vecState{Values: []int{2, 3}})

	v, ok := resources.Remove[ts.Empty, vecState](r)
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, v.Values)
}

func TestBorrowAndBorrowMut(t *testing.T) {
	r := resources.New[ts.Empty]()
	resources.Insert(r, vecState{Values: []int{1}})

	guard, err := resources.Borrow[ts.Empty, vecState](r)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, guard.Get().Values)
	guard.Release()

	mutGuard, err := resources.BorrowMut[ts.Empty, vecState](r)
	require.NoError(t, err)
	mutGuard.Set(vecState{Values: []int{9, 9}})
	mutGuard.Release()

	v, ok := resources.Remove[ts.Empty, vecState](r)
	require.True(t, ok)
	assert.Equal(t, []int{9, 9}, v.Values)
}

func TestAdvancePreservesStore(t *testing.T) {
	r := resources.New[ts.Empty]()
	resources.Insert(r, vecState{Values: []int{42}})

	setUp := resources.Advance[ts.Empty, ts.SetUp](r)
	v, ok := resources.Remove[ts.SetUp, vecState](setUp)
	require.True(t, ok)
	assert.Equal(t, []int{42}, v.Values)
}
