// Package domain contains the interfaces, entities and option types shared
// by the monq adapters.
//
// The package defines the boundary contracts the query core consumes: the
// storage transport, the validation and deserialization contracts used for
// materializing results, and the comparison/matching contracts used by the
// in-memory transport.
package domain

import (
	"context"
	"iter"

	"go.mongodb.org/mongo-driver/bson"
)

// Transport is the storage boundary the query core issues terminal
// operations against. Implementations must not be mutated by the core; a
// single transport handle is shared read-only by every query set bound to
// it.
//
// All methods honor context cancellation. Errors, including uniqueness
// constraint violations, propagate to the caller unchanged.
type Transport interface {
	// Find returns a single-pass sequence of raw documents matching the
	// filter, in sort order when one is configured.
	Find(ctx context.Context, filter bson.M, opts ...FindOption) (iter.Seq2[bson.M, error], error)
	// CountDocuments returns the number of documents matching the
	// filter.
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)
	// DeleteMany removes every document matching the filter and returns
	// the number removed.
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
	// UpdateMany applies the given field values as a $set to every
	// document matching the filter.
	UpdateMany(ctx context.Context, filter bson.M, set bson.M) error
	// FindOneAndUpdate atomically returns the document matching the
	// filter, inserting one built from the filter's equality data plus
	// the given $setOnInsert values when no match exists.
	FindOneAndUpdate(ctx context.Context, filter bson.M, setOnInsert bson.M) (bson.M, error)
	// InsertOne stores a document and returns its assigned identifier.
	InsertOne(ctx context.Context, doc bson.M) (any, error)
	// InsertMany stores documents in order and returns their assigned
	// identifiers in the same order.
	InsertMany(ctx context.Context, docs []bson.M) ([]any, error)
}

// Decoder materializes raw wire documents into typed model values. It is
// the construct half of the external deserialization contract.
type Decoder interface {
	// Decode converts source into target, which must be a non-nil
	// pointer.
	Decode(source any, target any) error
}

// Validator is the external data-validation contract. The query core only
// consumes it; it never validates values itself.
type Validator interface {
	// Validate checks raw field values against the schema and returns
	// the typed values keyed by wire alias. With partial set, only the
	// supplied fields are checked and unknown names are dropped
	// silently; otherwise the whole schema is enforced. Failures are
	// reported as a [ValidationError].
	Validate(sch *ModelSchema, raw bson.M, partial bool) (bson.M, error)
}

// Comparer provides ordering for wire values of mixed types.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two
	// values.
	Compare(a, b any) (int, error)
	// Comparable reports whether two values can be compared.
	Comparable(a, b any) bool
}

// Matcher evaluates a compiled filter document against a raw document. It
// understands exactly the operator grammar the expression compiler emits.
type Matcher interface {
	// Matches reports whether the document satisfies the filter.
	Matches(filter bson.M, doc bson.M) (bool, error)
}
