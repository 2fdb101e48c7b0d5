// Package schema builds the static field registry of a model type.
//
// A model is a plain struct whose fields carry bson tags naming their wire
// aliases. The field declared under the alias "_id" is the identity field.
// Struct-typed fields (other than well-known scalar structs such as
// [time.Time] and [primitive.ObjectID]) are embedded models and get a
// nested schema of their own, which is what makes dotted-path resolution
// through arbitrarily deep embeddings possible.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDAlias is the wire alias of the identity field.
const IDAlias = "_id"

var registry sync.Map // reflect.Type -> *domain.ModelSchema

var (
	timeType     = reflect.TypeOf(time.Time{})
	objectIDType = reflect.TypeOf(primitive.ObjectID{})
)

// Build returns the schema of the given model type, constructing and
// registering it on first use. Schemas are pure functions of the type, so
// the registry is shared process-wide.
func Build(t reflect.Type) (*domain.ModelSchema, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if sch, ok := registry.Load(t); ok {
		return sch.(*domain.ModelSchema), nil
	}
	sch, err := build(t, make(map[reflect.Type]*domain.ModelSchema))
	if err != nil {
		return nil, err
	}
	registry.Store(t, sch)
	return sch, nil
}

func build(t reflect.Type, seen map[reflect.Type]*domain.ModelSchema) (*domain.ModelSchema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model type %s is not a struct", t)
	}
	if sch, ok := seen[t]; ok {
		// Self-referential embedding through a pointer; reuse the
		// schema under construction so the parent chain stays
		// cycle-free.
		return sch, nil
	}

	sch := &domain.ModelSchema{
		Name:   t.Name(),
		Type:   t,
		Fields: make(map[string]*domain.FieldSpec, t.NumField()),
	}
	seen[t] = sch

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		alias, omitEmpty, skip := parseTag(field)
		if skip {
			continue
		}

		spec := &domain.FieldSpec{
			Name:     field.Name,
			Alias:    alias,
			Index:    i,
			Type:     field.Type,
			Required: !omitEmpty && field.Type.Kind() != reflect.Ptr,
		}

		if nested := embeddedType(field.Type); nested != nil {
			sub, err := build(nested, seen)
			if err != nil {
				return nil, err
			}
			spec.Embedded = sub
		}

		if alias == IDAlias {
			spec.Required = false
			sch.ID = spec
		}

		sch.Fields[field.Name] = spec
		sch.Names = append(sch.Names, field.Name)
	}

	return sch, nil
}

// Resolve returns the spec declared under the given name, accepting either
// the Go attribute name or the wire alias.
func Resolve(sch *domain.ModelSchema, name string) (*domain.FieldSpec, error) {
	if spec, ok := sch.Lookup(name); ok {
		return spec, nil
	}
	for _, attr := range sch.Names {
		if sch.Fields[attr].Alias == name {
			return sch.Fields[attr], nil
		}
	}
	return nil, domain.ErrInvalidKey{Model: sch.Name, Name: name}
}

// Marshal serializes a typed model instance into a plain wire document
// keyed by field alias, recursing into embedded models. With excludeID set
// the identity field is left out, which is the serialize half of the
// external contract.
func Marshal(sch *domain.ModelSchema, v any, excludeID bool) (bson.M, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, domain.ErrTargetNil
		}
		rv = rv.Elem()
	}
	if rv.Type() != sch.Type {
		return nil, domain.ErrInvalidKey{Model: sch.Name, Name: rv.Type().String()}
	}

	doc := make(bson.M, len(sch.Names))
	for _, name := range sch.Names {
		spec := sch.Fields[name]
		if excludeID && spec == sch.ID {
			continue
		}

		fv := rv.Field(spec.Index)
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				doc[spec.Alias] = nil
				continue
			}
			fv = fv.Elem()
		}

		if spec.Embedded != nil {
			sub, err := Marshal(spec.Embedded, fv.Interface(), false)
			if err != nil {
				return nil, err
			}
			doc[spec.Alias] = sub
			continue
		}

		doc[spec.Alias] = fv.Interface()
	}

	return doc, nil
}

// ID returns the identity value of an instance and whether it is set.
func ID(sch *domain.ModelSchema, v any) (any, bool) {
	if sch.ID == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	fv := rv.Field(sch.ID.Index)
	if fv.IsZero() {
		return nil, false
	}
	return fv.Interface(), true
}

// SetID back-fills the transport-assigned identifier onto an instance.
func SetID(sch *domain.ModelSchema, v any, id any) error {
	if sch.ID == nil || id == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return domain.ErrNonPointer
	}
	fv := rv.Elem().Field(sch.ID.Index)

	iv := reflect.ValueOf(id)
	if fv.Kind() == reflect.Ptr {
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(iv)
		fv.Set(p)
		return nil
	}
	if !iv.Type().AssignableTo(fv.Type()) {
		return domain.ErrInvalidObjectID{Value: reflect.TypeOf(id).String()}
	}
	fv.Set(iv)
	return nil
}

func parseTag(field reflect.StructField) (alias string, omitEmpty, skip bool) {
	alias = strings.ToLower(field.Name)
	tag, ok := field.Tag.Lookup("bson")
	if !ok {
		return alias, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" {
		return "", false, true
	}
	if parts[0] != "" {
		alias = parts[0]
	}
	for _, p := range parts[1:] {
		if p == "omitempty" {
			omitEmpty = true
		}
	}
	return alias, omitEmpty, false
}

// embeddedType returns the struct type to treat as an embedded model, or
// nil when the field is a leaf.
func embeddedType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	if t == timeType || t == objectIDType {
		return nil
	}
	return t
}
