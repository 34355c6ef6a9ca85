package statemodel

import (
	"fmt"
	"io"

	"github.com/flowrt/flowrt/flowgraph"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/typereg"
	"gopkg.in/yaml.v3"
)

// SerializeStates writes m in the graph's topological order: one `id:
// value` entry per node in g, in order, even for nodes with no entry in
// m (written as `id: null`) so the file always reflects the full graph
// (SPEC_FULL.md §4.11).
func SerializeStates[Tag any](w io.Writer, g *flowgraph.Graph[item.Wrapper], m *Map[Tag]) error {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for _, id := range g.TopoOrder() {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id.String()}

		v, ok := m.Get(id)
		var valNode yaml.Node
		if !ok || v == nil {
			valNode = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		} else if err := valNode.Encode(v); err != nil {
			return fmt.Errorf("encoding state for item %s: %w", id, err)
		}

		doc.Content = append(doc.Content, keyNode, &valNode)
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(doc)
}

// DeserializeStates reads a file previously written by SerializeStates,
// using reg to decode each item's heterogeneous state value by its
// ItemId, and returns the typed Map. A key present in the file that is
// not registered in reg fails with the originating typereg error, so its
// line/column information survives; a key that is not a valid ItemId
// fails with an error wrapping the ids validation error.
func DeserializeStates[Tag any](r io.Reader, reg *typereg.TypeRegistry) (*Map[Tag], error) {
	tm, err := reg.DeserializeMap(r)
	if err != nil {
		return nil, err
	}
	out := New[Tag]()
	for key, box := range tm {
		id, err := ids.NewItemId(key)
		if err != nil {
			return nil, fmt.Errorf("stored state key %q is not a valid item id: %w", key, err)
		}
		if box == nil {
			out.Insert(id, nil)
			continue
		}
		out.Insert(id, box.Value)
	}
	return out, nil
}
