package blocks

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/statemodel"
)

// UnresolvableSpecError reports that a ValueSpec could not be resolved:
// a FromState reference named an Item or field that does not exist, or a
// FromResource reference named a resource not present in namedResources.
type UnresolvableSpecError struct {
	ItemID ids.ItemId
	Reason string
}

func (e *UnresolvableSpecError) Error() string {
	return fmt.Sprintf("params spec for item %s unresolvable: %s", e.ItemID, e.Reason)
}

// ResolveParamsSpecs walks specs in order, resolving each ValueSpec to a
// concrete value: this is the paramsresolve step that runs once before
// Items are wrapped into a FlowGraph (see DESIGN.md's Params resolution
// timing decision), so that item.NewWrapper binds a stable, already-
// resolved P/Pt/Dt for the wrapper's lifetime rather than re-resolving on
// every CmdBlock call. discovered supplies the FromState source (the
// current run's freshly-discovered StatesCurrent, or a previous run's
// saved one); namedResources supplies the FromResource source.
//
// The returned value for a ValueFieldWise spec is a map[string]any of its
// resolved fields; callers in the items package type-assert/decode the
// per-item result into that Item's concrete Params struct.
func ResolveParamsSpecs(
	order []ids.ItemId,
	specs statemodel.ParamsSpecs,
	discovered *statemodel.StatesCurrent,
	namedResources map[string]any,
) (map[ids.ItemId]any, error) {
	out := make(map[ids.ItemId]any, len(order))
	for _, id := range order {
		spec, ok := specs[id]
		if !ok {
			continue
		}
		v, err := resolveValue(id, spec, discovered, namedResources)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

func resolveValue(
	id ids.ItemId,
	spec statemodel.ValueSpec,
	discovered *statemodel.StatesCurrent,
	namedResources map[string]any,
) (any, error) {
	switch spec.Kind {
	case statemodel.ValueLiteral:
		return spec.Literal, nil

	case statemodel.ValueFromState:
		if discovered == nil {
			return nil, &UnresolvableSpecError{ItemID: id, Reason: "no discovered state available"}
		}
		state, ok := discovered.Get(spec.FromStateItem)
		if !ok {
			return nil, &UnresolvableSpecError{ItemID: id, Reason: fmt.Sprintf("source item %s has no recorded current state", spec.FromStateItem)}
		}
		field, err := fieldByName(state, spec.FromStateField)
		if err != nil {
			return nil, &UnresolvableSpecError{ItemID: id, Reason: err.Error()}
		}
		return field, nil

	case statemodel.ValueFromResource:
		v, ok := namedResources[spec.FromResourceName]
		if !ok {
			return nil, &UnresolvableSpecError{ItemID: id, Reason: fmt.Sprintf("named resource %q not present", spec.FromResourceName)}
		}
		return v, nil

	case statemodel.ValueFieldWise:
		fields := make(map[string]any, len(spec.Fields))
		for name, sub := range spec.Fields {
			v, err := resolveValue(id, sub, discovered, namedResources)
			if err != nil {
				return nil, err
			}
			fields[name] = v
		}
		return fields, nil

	default:
		return nil, &UnresolvableSpecError{ItemID: id, Reason: fmt.Sprintf("unknown value spec kind %d", spec.Kind)}
	}
}

// fieldByName reads a struct field out of state by Go field name
// (case-insensitive), unwrapping one layer of pointer first. State is
// typically a *ConcreteState produced by typereg deserialization.
func fieldByName(state any, name string) (any, error) {
	v := reflect.ValueOf(state)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("state is a nil pointer")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("state is not a struct, got %s", v.Kind())
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if strings.EqualFold(f.Name, name) {
			return v.Field(i).Interface(), nil
		}
	}
	return nil, fmt.Errorf("state type %s has no field %q", t.Name(), name)
}
