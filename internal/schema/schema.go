// Package schema describes the required shape of model-produced records and
// validates parsed JSON values against it.
package schema

import (
	"errors"
	"fmt"
)

// Kind is the expected type of a record field.
type Kind int

const (
	KindString Kind = iota
	KindStringList
)

func (k Kind) String() string {
	if k == KindStringList {
		return "list of strings"
	}
	return "string"
}

// Field names one required record field and its expected kind.
type Field struct {
	Name string
	Kind Kind
}

// Schema is an ordered required-field descriptor. The first field is treated
// as the record's display name by downstream stages.
type Schema struct {
	Name   string
	Fields []Field
}

// Record is a validated, schema-conforming item.
type Record map[string]any

// String returns the named field as a string, or "" when absent.
func (r Record) String(name string) string {
	s, _ := r[name].(string)
	return s
}

// StringList returns the named field as a []string, or nil when absent.
func (r Record) StringList(name string) []string {
	list, ok := r[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// MinimalIdea is the two-field idea schema.
var MinimalIdea = Schema{
	Name: "idea",
	Fields: []Field{
		{Name: "Idea", Kind: KindString},
		{Name: "Details", Kind: KindString},
	},
}

// RichIdea is the six-field idea schema.
var RichIdea = Schema{
	Name: "idea",
	Fields: []Field{
		{Name: "Product Idea", Kind: KindString},
		{Name: "Problem it solves", Kind: KindString},
		{Name: "Software Techstack", Kind: KindStringList},
		{Name: "Target hardware expectations", Kind: KindStringList},
		{Name: "Company profile", Kind: KindString},
		{Name: "Engineering profile", Kind: KindString},
	},
}

// ErrNoItems is returned when a well-formed response yields zero records.
var ErrNoItems = errors.New("schema: no valid items")

// Validate coerces a parsed JSON value into a list of records and checks every
// item against the schema. A single object is treated as a one-element list;
// an object wrapping exactly one list-valued field (e.g. {"ideas": [...]}) is
// unwrapped first. Validation is all-or-nothing: the first missing field or
// type mismatch fails the whole batch.
func (s Schema) Validate(v any) ([]Record, error) {
	items, err := coerceList(v)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema: item %d is not an object", i)
		}
		for _, f := range s.Fields {
			val, ok := m[f.Name]
			if !ok {
				return nil, fmt.Errorf("schema: item %d: missing field %q", i, f.Name)
			}
			if err := checkKind(val, f.Kind); err != nil {
				return nil, fmt.Errorf("schema: item %d: field %q: %w", i, f.Name, err)
			}
		}
		out = append(out, Record(m))
	}
	if len(out) == 0 {
		return nil, ErrNoItems
	}
	return out, nil
}

// Strings coerces a parsed JSON value into a flat list of strings, with the
// same single-object wrap and nested-list unwrap tolerance as Validate.
func Strings(v any) ([]string, error) {
	items, err := coerceList(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("schema: item %d is not a string", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func checkKind(v any, k Kind) error {
	switch k {
	case KindString:
		if _, ok := v.(string); !ok {
			return errors.New("expected string")
		}
	case KindStringList:
		list, ok := v.([]any)
		if !ok {
			return errors.New("expected list of strings")
		}
		for j, el := range list {
			if _, ok := el.(string); !ok {
				return fmt.Errorf("element %d is not a string", j)
			}
		}
	}
	return nil
}

// coerceList normalizes the shapes models actually return: a bare list, a
// single object, or an object with the list nested under a wrapper key.
func coerceList(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case map[string]any:
		var nested [][]any
		for _, vv := range x {
			if list, ok := vv.([]any); ok {
				nested = append(nested, list)
			}
		}
		if len(nested) == 1 {
			return nested[0], nil
		}
		return []any{x}, nil
	default:
		return nil, fmt.Errorf("schema: expected a list or object, got %T", v)
	}
}
