// Package validator contains the default [domain.Validator] implementation.
//
// Validation is schema-driven: each supplied value is checked and coerced
// against the declared Go type of its field, embedded models recursively.
// Failures are collected per field and reported together as a
// [domain.ValidationError], never one at a time.
package validator

import (
	"fmt"
	"reflect"
	"time"

	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Validator implements [domain.Validator].
type Validator struct{}

// NewValidator returns a new implementation of [domain.Validator].
func NewValidator() domain.Validator {
	return &Validator{}
}

// Validate implements [domain.Validator]. The returned document is keyed
// by wire alias. In partial mode only supplied fields are checked and
// names the schema does not declare are dropped silently; in full mode
// every required field must be present.
func (v *Validator) Validate(sch *domain.ModelSchema, raw bson.M, partial bool) (bson.M, error) {
	out, errs := v.validate(sch, raw, partial, "")
	if len(errs) > 0 {
		return nil, domain.ValidationError{Fields: errs}
	}
	return out, nil
}

func (v *Validator) validate(sch *domain.ModelSchema, raw bson.M, partial bool, prefix string) (bson.M, []domain.FieldError) {
	out := make(bson.M, len(raw))
	var errs []domain.FieldError

	for _, name := range sch.Names {
		spec := sch.Fields[name]
		if spec == sch.ID {
			// Identity is transport-assigned, never validated.
			continue
		}
		path := prefix + spec.Alias

		value, supplied := lookup(raw, spec)
		if !supplied {
			if !partial && spec.Required {
				errs = append(errs, domain.FieldError{Path: path, Message: "field required"})
			}
			continue
		}

		typed, sub := v.coerce(spec, value, partial, path)
		if len(sub) > 0 {
			errs = append(errs, sub...)
			continue
		}
		out[spec.Alias] = typed
	}

	return out, errs
}

func (v *Validator) coerce(spec *domain.FieldSpec, value any, partial bool, path string) (any, []domain.FieldError) {
	t := spec.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if value == nil {
		if spec.Required {
			return nil, []domain.FieldError{{Path: path, Message: "none is not an allowed value"}}
		}
		return nil, nil
	}

	if spec.Embedded != nil {
		sub, ok := asDocument(value)
		if !ok {
			return nil, []domain.FieldError{{Path: path, Message: fmt.Sprintf("expected document, got %T", value)}}
		}
		// Embedded documents always validate against their full
		// schema; a partial embedded write would leave the stored
		// sub-document in a half-declared state.
		typed, errs := v.validate(spec.Embedded, sub, false, path+".")
		return typed, errs
	}

	if typed, ok := coerceScalar(t, value); ok {
		return typed, nil
	}
	return nil, []domain.FieldError{{
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %T", t, value),
	}}
}

func coerceScalar(t reflect.Type, value any) (any, bool) {
	rv := reflect.ValueOf(value)
	if rv.Type() == t {
		return value, true
	}
	if rv.Type().AssignableTo(t) {
		return value, true
	}

	switch t {
	case reflect.TypeOf(time.Time{}):
		if dt, ok := value.(primitive.DateTime); ok {
			return dt.Time(), true
		}
		return nil, false
	case reflect.TypeOf(primitive.ObjectID{}):
		if s, ok := value.(string); ok {
			id, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return nil, false
			}
			return id, true
		}
		return nil, false
	}

	// Cross-numeric coercion only; Go's reflect would happily convert
	// int to string, which is never what a caller means.
	if isNumeric(t.Kind()) && isNumeric(rv.Kind()) {
		return rv.Convert(t).Interface(), true
	}

	if t.Kind() == reflect.Slice {
		if a, ok := asArray(value); ok {
			return a, true
		}
	}

	return nil, false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func lookup(raw bson.M, spec *domain.FieldSpec) (any, bool) {
	if v, ok := raw[spec.Name]; ok {
		return v, true
	}
	v, ok := raw[spec.Alias]
	return v, ok
}

func asDocument(v any) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]any:
		return d, true
	}
	return nil, false
}

func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case bson.A:
		return a, true
	}
	return nil, false
}
