package domain

import (
	"reflect"
)

// Order is the direction of a sort key. It serializes to the wire protocol's
// signed integer convention.
type Order int

const (
	// Ascending sorts smallest first.
	Ascending Order = 1
	// Descending sorts largest first.
	Descending Order = -1
)

// FieldSpec describes one declared attribute of a model type: its Go name,
// its wire alias and, for embedded models, the nested schema.
type FieldSpec struct {
	// Name is the Go struct field name.
	Name string
	// Alias is the wire name the field is stored under. The identity
	// field declares the alias "_id".
	Alias string
	// Index is the struct field index used for reflective access.
	Index int
	// Type is the declared Go type of the field.
	Type reflect.Type
	// Required reports whether a value must be present on full
	// validation. Pointer fields are optional.
	Required bool
	// Embedded holds the nested schema when the field is an embedded
	// model, or nil for leaf fields.
	Embedded *ModelSchema
}

// Textual reports whether the field holds text, which is what pattern
// operators require.
func (f *FieldSpec) Textual() bool {
	t := f.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.String
}

// ModelSchema is the static field registry of a model type, built once per
// type at collection construction. It maps attribute names to field specs
// and remembers the identity field.
type ModelSchema struct {
	// Name is the model type name, used in error messages.
	Name string
	// Type is the model struct type.
	Type reflect.Type
	// ID is the identity field (alias "_id"), or nil if the model does
	// not declare one.
	ID *FieldSpec
	// Fields maps Go attribute names to their specs.
	Fields map[string]*FieldSpec
	// Names holds attribute names in declaration order.
	Names []string
}

// Lookup returns the spec declared under the given attribute name.
func (s *ModelSchema) Lookup(name string) (*FieldSpec, bool) {
	f, ok := s.Fields[name]
	return f, ok
}
