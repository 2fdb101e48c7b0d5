// Package monq provides a typed query builder and object-document mapper
// core for MongoDB-style document stores.
//
// A model is a plain struct with bson-tagged fields; [NewCollection] binds
// it to a [domain.Transport] and derives its field registry once. Queries
// are built fluently from typed field paths and the [Q] shortcut helpers,
// compiled into wire filter documents and executed through the transport:
//
//	movies, _ := monq.NewCollection[Movie](transport)
//	year, _ := movies.Field("year")
//	old, err := movies.Query(year.LessThan(1940)).Sort(year).All(ctx)
//
// Two transports ship with the package: adapter/transport/mongodb wraps a
// driver collection handle, and adapter/transport/memory provides an
// in-process collection with the same semantics, useful for tests.
package monq

import (
	"github.com/monqlabs/monq/adapter/decoder"
	"github.com/monqlabs/monq/adapter/query"
	"github.com/monqlabs/monq/adapter/validator"
	"github.com/monqlabs/monq/domain"
)

var (
	// ErrNoMatchFound is returned by [QuerySet.Get] when zero documents
	// match.
	ErrNoMatchFound = domain.ErrNoMatchFound
	// ErrMultipleMatchesFound is returned by [QuerySet.Get] when more
	// than one document matches.
	ErrMultipleMatchesFound = domain.ErrMultipleMatchesFound
	// ErrConstraintViolated is surfaced unchanged from transports that
	// enforce unique indexes.
	ErrConstraintViolated = domain.ErrConstraintViolated
	// ErrMissingID is returned by identity-keyed operations on an
	// instance whose identity field is unset.
	ErrMissingID = domain.ErrMissingID
)

// ErrInvalidKey represents an attribute path that does not exist on the
// referenced model type.
type ErrInvalidKey = domain.ErrInvalidKey

// ErrInvalidFieldType is returned when an operator is applied to a field
// of an incompatible declared type.
type ErrInvalidFieldType = domain.ErrInvalidFieldType

// ErrInvalidObjectID represents a malformed identifier string.
type ErrInvalidObjectID = domain.ErrInvalidObjectID

// ErrInvalidPredicate is returned when a query argument is neither a raw
// filter mapping nor a query expression.
type ErrInvalidPredicate = domain.ErrInvalidPredicate

// ValidationError aggregates field-level validation failures.
type ValidationError = domain.ValidationError

// FieldError is one field-level validation failure.
type FieldError = domain.FieldError

// Order is the direction of a sort key.
type Order = domain.Order

// Sort directions.
const (
	Ascending  = domain.Ascending
	Descending = domain.Descending
)

// Expression is a single `field operator value` predicate.
type Expression = query.Expression

// SortExpression is a single `field direction` ordering fragment.
type SortExpression = query.SortExpression

// FieldPath is a resolved, dotted addressable location within the model
// schema.
type FieldPath = query.FieldPath

// Transport is the storage boundary terminal operations execute against.
type Transport = domain.Transport

// Q bundles the query shortcut constructors.
var Q q

type q struct{}

// Asc builds an ascending ordering fragment from a string key or a
// [FieldPath].
func (q) Asc(key any) SortExpression {
	return query.Asc(key)
}

// Desc builds a descending ordering fragment.
func (q) Desc(key any) SortExpression {
	return query.Desc(key)
}

// In builds a membership predicate.
func (q) In(key any, values ...any) Expression {
	return query.In(key, values)
}

// NotIn builds a negated membership predicate.
func (q) NotIn(key any, values ...any) Expression {
	return query.NotIn(key, values)
}

// And combines expressions or raw filter mappings under $and. A boolean
// argument is a programming error and panics immediately.
func (q) And(preds ...any) Expression {
	return query.And(preds...)
}

// Or combines expressions or raw filter mappings under $or, with the same
// argument contract as [q.And].
func (q) Or(preds ...any) Expression {
	return query.Or(preds...)
}

// Contains builds a substring predicate on a textual field, degrading to
// equality on any other field type.
func (q) Contains(field FieldPath, value any) Expression {
	return query.Contains(field, value)
}

// Regex builds a pattern predicate on a textual field. The pattern may be
// a compiled regular expression or a raw string. A non-textual field
// fails with [ErrInvalidFieldType].
func (q) Regex(field FieldPath, pattern any) (Expression, error) {
	return query.Regex(field, pattern)
}

// Option configures a collection.
type Option func(*settings)

type settings struct {
	validator domain.Validator
	decoder   domain.Decoder
}

// WithValidator replaces the validation contract implementation.
func WithValidator(v domain.Validator) Option {
	return func(s *settings) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithDecoder replaces the deserialization contract implementation.
func WithDecoder(d domain.Decoder) Option {
	return func(s *settings) {
		if d != nil {
			s.decoder = d
		}
	}
}

func newSettings(options []Option) settings {
	s := settings{
		validator: validator.NewValidator(),
		decoder:   decoder.NewDecoder(),
	}
	for _, option := range options {
		option(&s)
	}
	return s
}
