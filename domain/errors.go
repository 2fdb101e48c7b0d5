package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatchFound is returned by single-document terminals when zero
	// documents match and exactly one was expected.
	ErrNoMatchFound = errors.New("no match found")
	// ErrMultipleMatchesFound is returned when more than one document
	// matches and at most one was expected.
	ErrMultipleMatchesFound = errors.New("multiple matches found")
	// ErrConstraintViolated is surfaced by a transport when an insert or
	// update would break a unique index.
	ErrConstraintViolated = errors.New("unique constraint violated")
	// ErrTargetNil is returned when a nil value is passed as a decode
	// target.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a decode target is not a pointer.
	ErrNonPointer = errors.New("target must be a non-nil pointer")
	// ErrMissingID is returned by identity-keyed operations when the
	// instance has no identity value set.
	ErrMissingID = errors.New("instance has no identity value")
)

// ErrInvalidKey represents an attribute path that does not exist on the
// referenced model type.
type ErrInvalidKey struct {
	Model string
	Name  string
}

func (e ErrInvalidKey) Error() string {
	return fmt.Sprintf("model %s has no field %q", e.Model, e.Name)
}

// ErrInvalidFieldType is returned when an operator is applied to a field
// whose declared type cannot support it, such as a pattern match on a
// numeric field.
type ErrInvalidFieldType struct {
	Field string
	Want  string
}

func (e ErrInvalidFieldType) Error() string {
	return fmt.Sprintf("field %q is not of type %s", e.Field, e.Want)
}

// ErrInvalidObjectID represents a malformed identifier string.
type ErrInvalidObjectID struct {
	Value string
}

func (e ErrInvalidObjectID) Error() string {
	return fmt.Sprintf("invalid object id %q", e.Value)
}

// ErrInvalidPredicate is returned when a query argument is neither a raw
// filter mapping nor a query expression.
type ErrInvalidPredicate struct {
	Value any
}

func (e ErrInvalidPredicate) Error() string {
	return fmt.Sprintf("invalid query predicate of type %T", e.Value)
}

// ErrCannotCompare is returned when two values cannot be ordered relative
// to each other.
type ErrCannotCompare struct {
	A any
	B any
}

func (e ErrCannotCompare) Error() string {
	return fmt.Sprintf("cannot compare %T with %T", e.A, e.B)
}

// FieldError is one field-level validation failure.
type FieldError struct {
	// Path is the wire path of the offending field.
	Path string
	// Message describes the failure.
	Message string
}

// ValidationError aggregates the field-level failures reported by the
// validation contract for one document.
type ValidationError struct {
	Fields []FieldError
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for n, f := range e.Fields {
		msgs[n] = fmt.Sprintf("%s: %s", f.Path, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
