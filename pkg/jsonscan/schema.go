// Package jsonscan takes a census of the value types used under every key of
// the objects stored in a directory tree of JSON array files.
package jsonscan

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// JSON value type names
const (
	TypeNull    = "Null"
	TypeBoolean = "Boolean"
	TypeNumber  = "Number"
	TypeString  = "String"
	TypeArray   = "Array"
	TypeObject  = "Object"
)

// TypeName returns the type name of a value decoded by encoding/json
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case json.Number, float64:
		return TypeNumber
	case string:
		return TypeString
	case []any:
		return TypeArray
	default:
		return TypeObject
	}
}

// TypeCounts maps a type name to its number of occurrences
type TypeCounts map[string]int

// Total is the sum of all counts
func (tc TypeCounts) Total() int {
	total := 0
	for _, n := range tc {
		total += n
	}
	return total
}

// Schema is the census of one or more files
type Schema struct {
	// Objects is the number of object elements seen
	Objects int
	Keys    map[string]TypeCounts
}

// NewSchema returns an empty schema
func NewSchema() *Schema {
	return &Schema{Keys: make(map[string]TypeCounts)}
}

// Add records one occurrence of key with a value of the given type
func (s *Schema) Add(key, typeName string) {
	counts, ok := s.Keys[key]
	if !ok {
		counts = make(TypeCounts)
		s.Keys[key] = counts
	}
	counts[typeName]++
}

// Merge adds other into s. Merging is associative and commutative.
func (s *Schema) Merge(other *Schema) {
	if other == nil {
		return
	}
	s.Objects += other.Objects
	for key, counts := range other.Keys {
		for typeName, n := range counts {
			if _, ok := s.Keys[key]; !ok {
				s.Keys[key] = make(TypeCounts)
			}
			s.Keys[key][typeName] += n
		}
	}
}

// Analyze reads one JSON document, which must be a top-level array, and
// counts the value types of the keys of its object elements. Elements that
// are not objects are ignored.
func Analyze(r io.Reader) (*Schema, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON array")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("failed to decode JSON array: trailing data after the array")
	}

	schema := NewSchema()
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		schema.Objects++
		for key, value := range obj {
			schema.Add(key, TypeName(value))
		}
	}
	return schema, nil
}
