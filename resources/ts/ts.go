// Package ts defines the phantom type-state markers used as the type
// parameter of resources.Resources[TS]. Each marker names a lifecycle stage
// a CmdExecution has reached; it carries no data and is never instantiated.
//
// The markers are a conservative lower bound (resources.Resources invariant
// 3 in SPEC_FULL.md §4): "WithStatesCurrent" means the StatesCurrent
// resource is guaranteed present, not that nothing else is.
package ts

// Empty is the tag for a freshly constructed, unpopulated Resources.
type Empty struct{}

// SetUp is the tag once every Item's setup() has registered its
// process-wide collaborators (clients, caches) into Resources.
type SetUp struct{}

// WithStatesCurrent guarantees a StatesCurrent resource is present.
type WithStatesCurrent struct{}

// WithStatesGoal guarantees a StatesGoal resource is present.
type WithStatesGoal struct{}

// WithStatesCurrentAndGoal guarantees both StatesCurrent and StatesGoal are
// present.
type WithStatesCurrentAndGoal struct{}

// WithStateDiffs guarantees a StateDiffs resource is present.
type WithStateDiffs struct{}

// WithStatesEnsured guarantees a StatesEnsured resource (the states
// produced after an apply) is present.
type WithStatesEnsured struct{}

// WithStatesCleaned guarantees a StatesCleaned resource is present.
type WithStatesCleaned struct{}

// Any is the erasure tag used at the CmdExecution/Step queue boundary,
// where a heterogeneous sequence of blocks each expecting a different
// guaranteed-present resource cannot be typed with one precise tag. It
// carries no compile-time guarantee beyond Empty; concrete blocks
// document (and may separately unit-test) their real precondition.
type Any struct{}
