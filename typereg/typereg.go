// Package typereg implements the per-key deserializer table (TypeRegistry)
// that lets the runtime persist and rehydrate a heterogeneous map of
// Item-specific State/StateDiff/ValueSpec values under one concrete
// document format (YAML), without the reader needing to know every
// concrete type up front.
package typereg

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// UnknownKeyError is returned when a document key has no registered
// deserializer. Line/Column are 1-indexed, as reported by the YAML decoder.
type UnknownKeyError struct {
	Key    string
	Line   int
	Column int
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %q at line %d, column %d: no deserializer registered", e.Key, e.Line, e.Column)
}

// DeserializeError wraps a per-key decode failure with the location the
// decoder reached, when the underlying source supports it.
type DeserializeError struct {
	Key     string
	Line    int
	Column  int
	Message string
	Cause   error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("failed to deserialize key %q at line %d, column %d: %s", e.Key, e.Line, e.Column, e.Message)
}

func (e *DeserializeError) Unwrap() error { return e.Cause }

// deserializeFunc decodes one YAML node into a freshly allocated boxed value.
type deserializeFunc func(node *yaml.Node) (any, error)

// Box holds one entry of a TypeMap. Value is nil when the key resolved to
// YAML null, or (for the permissive Opt variant) to a key with no
// registered deserializer.
type Box struct {
	Value any
}

// TypeMap is the type-erased result of decoding a YAML mapping through a
// TypeRegistry: document key -> boxed decoded value (or nil box contents).
type TypeMap map[string]*Box

// TypeRegistry maps a document key (typically an ItemId) to the
// deserialization function for the concrete type that Item produces.
type TypeRegistry struct {
	entries map[string]deserializeFunc
}

// New returns an empty TypeRegistry.
func New() *TypeRegistry {
	return &TypeRegistry{entries: make(map[string]deserializeFunc)}
}

// Register records the deserializer for T under key. A later call with the
// same key overwrites the previous registration.
func Register[T any](r *TypeRegistry, key string) {
	r.entries[key] = func(node *yaml.Node) (any, error) {
		var v T
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return &v, nil
	}
}

// Has reports whether key has a registered deserializer.
func (r *TypeRegistry) Has(key string) bool {
	_, ok := r.entries[key]
	return ok
}

// DeserializeMap decodes a YAML mapping from reader. Every document key
// must have a registered deserializer; an unregistered key fails the whole
// read with *UnknownKeyError.
func (r *TypeRegistry) DeserializeMap(reader io.Reader) (TypeMap, error) {
	return r.deserializeMap(reader, false)
}

// DeserializeMapOpt decodes like DeserializeMap, but a document key with no
// registered deserializer becomes a nil Box instead of failing.
func (r *TypeRegistry) DeserializeMapOpt(reader io.Reader) (TypeMap, error) {
	return r.deserializeMap(reader, true)
}

func (r *TypeRegistry) deserializeMap(reader io.Reader, tolerateUnknown bool) (TypeMap, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(reader)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return TypeMap{}, nil
		}
		return nil, fmt.Errorf("decode yaml document: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return TypeMap{}, nil
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a YAML mapping at document root, got kind %d", root.Kind)
	}

	out := make(TypeMap, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valNode := root.Content[i+1]
		key := keyNode.Value

		if valNode.Kind == yaml.ScalarNode && valNode.Tag == "!!null" {
			out[key] = &Box{Value: nil}
			continue
		}

		deser, ok := r.entries[key]
		if !ok {
			if tolerateUnknown {
				out[key] = &Box{Value: nil}
				continue
			}
			return nil, &UnknownKeyError{Key: key, Line: keyNode.Line, Column: keyNode.Column}
		}

		val, err := deser(valNode)
		if err != nil {
			return nil, &DeserializeError{
				Key: key, Line: valNode.Line, Column: valNode.Column,
				Message: err.Error(), Cause: err,
			}
		}
		out[key] = &Box{Value: val}
	}
	return out, nil
}
