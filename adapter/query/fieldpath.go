package query

import (
	"strings"

	"github.com/monqlabs/monq/adapter/schema"
	"github.com/monqlabs/monq/domain"
)

// FieldPath is a resolved, dotted addressable location within a possibly
// nested document schema. Values are immutable; a path exclusively owns
// the reference to its parent and parents are never mutated after
// construction.
type FieldPath struct {
	spec   *domain.FieldSpec
	parent *FieldPath
	name   string
}

// NewPath resolves a chain of attribute names starting at the root schema,
// one level per name. Either Go attribute names or wire aliases are
// accepted. An undeclared name fails with [domain.ErrInvalidKey].
func NewPath(sch *domain.ModelSchema, names ...string) (FieldPath, error) {
	if len(names) == 0 {
		return FieldPath{}, domain.ErrInvalidKey{Model: sch.Name, Name: ""}
	}
	spec, err := schema.Resolve(sch, names[0])
	if err != nil {
		return FieldPath{}, err
	}
	p := FieldPath{spec: spec, name: spec.Alias}
	for _, name := range names[1:] {
		p, err = p.Child(name)
		if err != nil {
			return FieldPath{}, err
		}
	}
	return p, nil
}

// Child resolves one further attribute on the embedded model nested at
// this path. Requesting a name the nested type does not declare, or any
// name on a leaf field, fails with [domain.ErrInvalidKey].
func (p FieldPath) Child(name string) (FieldPath, error) {
	if p.spec == nil || p.spec.Embedded == nil {
		model := p.name
		if p.spec != nil {
			model = p.spec.Type.String()
		}
		return FieldPath{}, domain.ErrInvalidKey{Model: model, Name: name}
	}
	spec, err := schema.Resolve(p.spec.Embedded, name)
	if err != nil {
		return FieldPath{}, err
	}
	parent := p
	return FieldPath{spec: spec, parent: &parent, name: spec.Alias}, nil
}

// Path compiles the dot-joined wire path from root to this field.
func (p FieldPath) Path() string {
	if p.parent == nil {
		return p.name
	}
	segments := []string{p.name}
	for q := p.parent; q != nil; q = q.parent {
		segments = append(segments, q.name)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, ".")
}

// Spec returns the declared field spec at this path.
func (p FieldPath) Spec() *domain.FieldSpec {
	return p.spec
}

// Textual reports whether the field at this path holds text.
func (p FieldPath) Textual() bool {
	return p.spec != nil && p.spec.Textual()
}

// Equals builds an equality predicate on this path.
func (p FieldPath) Equals(value any) Expression {
	return Expression{Key: p.Path(), Operator: OpEq, Value: value}
}

// NotEquals builds a negated equality predicate on this path.
func (p FieldPath) NotEquals(value any) Expression {
	return Expression{Key: p.Path(), Operator: OpNe, Value: value}
}

// LessThan builds a strict upper bound predicate on this path.
func (p FieldPath) LessThan(value any) Expression {
	return Expression{Key: p.Path(), Operator: OpLt, Value: value}
}

// LessThanOrEqual builds an inclusive upper bound predicate on this path.
func (p FieldPath) LessThanOrEqual(value any) Expression {
	return Expression{Key: p.Path(), Operator: OpLte, Value: value}
}

// GreaterThan builds a strict lower bound predicate on this path.
func (p FieldPath) GreaterThan(value any) Expression {
	return Expression{Key: p.Path(), Operator: OpGt, Value: value}
}

// GreaterThanOrEqual builds an inclusive lower bound predicate on this
// path.
func (p FieldPath) GreaterThanOrEqual(value any) Expression {
	return Expression{Key: p.Path(), Operator: OpGte, Value: value}
}
