// Package codec implements the JSON Codec component (spec.md §4.B):
// decoding gateway and REST payloads into a dynamic tree, and encoding
// typed request bodies against a caller-supplied field schema.
//
// Decoding is delegated to json-iterator/go's
// ConfigCompatibleWithStandardLibrary, the configuration the teacher
// standardizes on repo-wide (gateway/consts.go, main.go). The
// schema-driven encoder below is new: spec.md's string/bare/object/array
// descriptor table has no direct teacher equivalent (the teacher
// hand-writes one Go struct per endpoint instead), so it is written
// fresh in the teacher's idiom of small typed values and explicit json
// tags, with no reflection beyond what jsoniter already does.
package codec

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode parses raw bytes into a dynamic tree: map[string]interface{}
// for objects, []interface{} for arrays, and string/float64/bool/nil
// for scalars, matching encoding/json's untyped-decode shape.
func Decode(data []byte) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return v, nil
}

// DecodeInto parses raw bytes into a concrete Go value.
func DecodeInto(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Kind enumerates the descriptor variants a Schema field may carry
// (spec.md §4.B).
type Kind int

const (
	// KindString encodes the value as a JSON string.
	KindString Kind = iota
	// KindBare emits the value literally: numbers, booleans, and
	// pre-encoded json.RawMessage fragments pass through unquoted.
	KindBare
	// KindObject recursively encodes a nested mapping under a nested
	// Schema.
	KindObject
	// KindArray encodes each element of a slice under a single
	// element descriptor.
	KindArray
)

// Descriptor is one field's encoding instruction. Object descriptors
// carry a nested Schema; Array descriptors carry a single Element
// descriptor applied to every item.
type Descriptor struct {
	Kind    Kind
	Nested  Schema
	Element *Descriptor
}

// String is the string-typed descriptor.
func String() Descriptor { return Descriptor{Kind: KindString} }

// Bare is the literal-value descriptor.
func Bare() Descriptor { return Descriptor{Kind: KindBare} }

// Object is the nested-mapping descriptor.
func Object(schema Schema) Descriptor { return Descriptor{Kind: KindObject, Nested: schema} }

// Array is the homogeneous-sequence descriptor.
func Array(element Descriptor) Descriptor { return Descriptor{Kind: KindArray, Element: &element} }

// Schema maps a field name to the descriptor that governs how its
// value is encoded (spec.md §4.B, "JSON schema tables" — consumed as
// authoritative from the external collaborator, never inferred).
type Schema map[string]Descriptor

// Encode serializes a mapping of field name to raw value against a
// Schema, producing JSON bytes. Fields present in values but absent
// from schema are ignored, matching the "schema is authoritative"
// contract in spec.md §6: the core neither infers nor validates field
// shape beyond what the schema says.
//
// Round-trip laws (spec.md §8): an empty schema against any values
// yields "{}"; {id:"X"} under {id:String} yields {"id":"X"}; {id:X}
// under {id:Bare} yields {"id":X} when X is a number, boolean, or
// json.RawMessage (a Go string under Bare is still emitted quoted);
// arrays of strings under Array(String) serialize as JSON string arrays.
func Encode(values map[string]interface{}, schema Schema) ([]byte, error) {
	tree := make(map[string]interface{}, len(schema))

	for field, descriptor := range schema {
		v, ok := values[field]
		if !ok {
			continue
		}

		encoded, err := encodeValue(v, descriptor)
		if err != nil {
			return nil, err
		}

		tree[field] = encoded
	}

	return json.Marshal(tree)
}

func encodeValue(v interface{}, d Descriptor) (interface{}, error) {
	switch d.Kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}

		return fmt.Sprint(v), nil
	case KindBare:
		return v, nil
	case KindObject:
		nested, ok := v.(map[string]interface{})
		if !ok {
			return nil, &SchemaError{Field: "", Descriptor: d}
		}

		out := make(map[string]interface{}, len(d.Nested))

		for field, fd := range d.Nested {
			fv, ok := nested[field]
			if !ok {
				continue
			}

			ev, err := encodeValue(fv, fd)
			if err != nil {
				return nil, err
			}

			out[field] = ev
		}

		return out, nil
	case KindArray:
		items, ok := v.([]interface{})
		if !ok {
			return nil, &SchemaError{Field: "", Descriptor: d}
		}

		out := make([]interface{}, len(items))

		for i, item := range items {
			ev, err := encodeValue(item, *d.Element)
			if err != nil {
				return nil, err
			}

			out[i] = ev
		}

		return out, nil
	default:
		return nil, &SchemaError{Field: "", Descriptor: d}
	}
}

// SchemaError is returned when a value's runtime shape does not
// satisfy its descriptor (spec.md §7, ErrSchema).
type SchemaError struct {
	Field      string
	Descriptor Descriptor
}

func (e *SchemaError) Error() string {
	return "codec: value for field " + e.Field + " does not satisfy schema descriptor"
}
