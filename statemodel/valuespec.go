package statemodel

import (
	"fmt"
	"io"

	"github.com/flowrt/flowrt/ids"
	"gopkg.in/yaml.v3"
)

// ValueSpecKind discriminates ValueSpec.
type ValueSpecKind int

const (
	// ValueLiteral carries a fixed value, stored as-is.
	ValueLiteral ValueSpecKind = iota
	// ValueFromState resolves by reading a field out of another Item's
	// discovered state.
	ValueFromState
	// ValueFromResource resolves by name from a named process-wide
	// resource.
	ValueFromResource
	// ValueFieldWise composes one ValueSpec per field of a Params struct;
	// this is how a single ValueSpec describes an item whose fields
	// resolve independently.
	ValueFieldWise
)

// ValueSpec is the persisted description of how one Item's Params will be
// resolved at execution time (SPEC_FULL.md §4, "ParamsSpecs").
type ValueSpec struct {
	Kind ValueSpecKind `yaml:"kind"`

	// Literal holds Kind == ValueLiteral's fixed value.
	Literal any `yaml:"literal,omitempty"`

	// FromStateItem/FromStateField hold Kind == ValueFromState's source:
	// read FromStateField out of FromStateItem's current state.
	FromStateItem  ids.ItemId `yaml:"from_state_item,omitempty"`
	FromStateField string     `yaml:"from_state_field,omitempty"`

	// FromResourceName holds Kind == ValueFromResource's lookup key.
	FromResourceName string `yaml:"from_resource_name,omitempty"`

	// Fields holds Kind == ValueFieldWise's per-field resolution plans.
	Fields map[string]ValueSpec `yaml:"fields,omitempty"`
}

// ParamsSpecs is the persisted ItemId -> ValueSpec map (SPEC_FULL.md §4).
type ParamsSpecs map[ids.ItemId]ValueSpec

// SerializeParamsSpecs writes specs in the given order (null for an id
// with no entry), the same shape SerializeStates uses; passing the
// graph's topological order makes the two files line up by position. ValueSpec is one shared Go type across all items (unlike
// States, which is heterogeneous per item), so this needs no
// TypeRegistry — a plain yaml.Node walk is enough.
func SerializeParamsSpecs(w io.Writer, order []ids.ItemId, specs ParamsSpecs) error {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, id := range order {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id.String()}
		var valNode yaml.Node
		if spec, ok := specs[id]; ok {
			if err := valNode.Encode(spec); err != nil {
				return fmt.Errorf("encoding params spec for item %s: %w", id, err)
			}
		} else {
			valNode = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		}
		doc.Content = append(doc.Content, keyNode, &valNode)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(doc)
}

// DeserializeParamsSpecs reads a file previously written by
// SerializeParamsSpecs. An entry in order that is missing or null in the
// file is simply absent from the returned ParamsSpecs, rather than an
// error, so that renaming or adding an Item is detectable by the caller
// checking which of `order`'s ids have no entry, instead of a hard
// failure (SPEC_FULL.md §4.11).
func DeserializeParamsSpecs(r io.Reader) (ParamsSpecs, error) {
	var raw yaml.Node
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return ParamsSpecs{}, nil
		}
		return nil, fmt.Errorf("decoding params specs: %w", err)
	}

	doc := &raw
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return ParamsSpecs{}, nil
	}

	out := ParamsSpecs{}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode := doc.Content[i]
		valNode := doc.Content[i+1]

		id, err := ids.NewItemId(keyNode.Value)
		if err != nil {
			return nil, fmt.Errorf("stored params spec key %q is not a valid item id: %w", keyNode.Value, err)
		}
		if valNode.Tag == "!!null" {
			continue
		}
		var spec ValueSpec
		if err := valNode.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decoding params spec for item %s (line %d): %w", id, valNode.Line, err)
		}
		out[id] = spec
	}
	return out, nil
}

// MissingSpecs returns the ids in order that have no entry in specs —
// the rename/add detection the "missing entries load as None" contract
// exists for.
func MissingSpecs(order []ids.ItemId, specs ParamsSpecs) []ids.ItemId {
	var missing []ids.ItemId
	for _, id := range order {
		if _, ok := specs[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
