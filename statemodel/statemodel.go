// Package statemodel implements the States/StateDiffs maps, ParamsSpecs,
// and their YAML serializers (SPEC_FULL.md §4.11). Each map is phase-
// tagged the same way resources.Resources is: Map[CurrentTag],
// Map[GoalTag], and so on are distinct Go types even though they share an
// implementation, so a CmdBlock fetching the wrong phase's map from
// Resources fails to compile rather than silently reading stale data.
package statemodel

import (
	"fmt"
	"sync"

	"github.com/flowrt/flowrt/ids"
)

// Map is an ItemId -> boxed-value map, phase-tagged by Tag. Insert
// overwrites; Get reports presence so callers can distinguish "opted out"
// (absent key, invariant 2 in SPEC_FULL.md §3) from a present nil.
type Map[Tag any] struct {
	mu     sync.RWMutex
	values map[ids.ItemId]any
}

// New returns an empty Map.
func New[Tag any]() *Map[Tag] {
	return &Map[Tag]{values: make(map[ids.ItemId]any)}
}

// Insert stores v under id, overwriting any existing entry.
func (m *Map[Tag]) Insert(id ids.ItemId, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[id] = v
}

// Get returns the value stored under id, if any.
func (m *Map[Tag]) Get(id ids.ItemId) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[id]
	return v, ok
}

// Len reports how many items have an entry.
func (m *Map[Tag]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// IDs returns the ids that currently have an entry, in no particular
// order.
func (m *Map[Tag]) IDs() []ids.ItemId {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ids.ItemId, 0, len(m.values))
	for id := range m.values {
		out = append(out, id)
	}
	return out
}

// CurrentTag, GoalTag, CleanedTag, and EnsuredTag distinguish the four
// States map phases; DiffTag distinguishes StateDiffs.
type (
	CurrentTag struct{}
	GoalTag    struct{}
	CleanedTag struct{}
	EnsuredTag struct{}
	DiffTag    struct{}
)

// StatesCurrent, StatesGoal, StatesCleaned, and StatesEnsured are the four
// States map phases named in SPEC_FULL.md §4 (the source's fifth phase,
// Previous, is not produced by any built-in CmdBlock in this spec and is
// intentionally not wired to a Resources slot).
type (
	StatesCurrent = Map[CurrentTag]
	StatesGoal    = Map[GoalTag]
	StatesCleaned = Map[CleanedTag]
	StatesEnsured = Map[EnsuredTag]
	StateDiffs    = Map[DiffTag]
)

// ResourceFetchError's sibling for a States map entry missing where the
// caller expected one; kept distinct from resources.ResourceFetchError
// since this is a missing map key, not a missing Resources type slot.
type MissingEntryError struct {
	ItemID ids.ItemId
	Kind   string // "current", "goal", "diff", ...
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("no %s state recorded for item %s", e.Kind, e.ItemID)
}
