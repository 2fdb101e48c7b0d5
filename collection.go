package monq

import (
	"context"
	"fmt"
	"reflect"

	"github.com/monqlabs/monq/adapter/query"
	"github.com/monqlabs/monq/adapter/schema"
	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection binds a model type to a transport handle. It is the static
// query entry point for the type: it owns the schema registry entry, the
// validation and deserialization contracts, and hands out query sets and
// field paths. A Collection is safe for concurrent use; the query sets it
// creates are not.
type Collection[T any] struct {
	transport domain.Transport
	schema    *domain.ModelSchema
	validator domain.Validator
	decoder   domain.Decoder
}

// NewCollection derives the schema of T and binds it to the transport.
func NewCollection[T any](transport domain.Transport, options ...Option) (*Collection[T], error) {
	var zero T
	sch, err := schema.Build(reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}
	s := newSettings(options)
	return &Collection[T]{
		transport: transport,
		schema:    sch,
		validator: s.validator,
		decoder:   s.decoder,
	}, nil
}

// Schema returns the derived field registry of T.
func (c *Collection[T]) Schema() *domain.ModelSchema {
	return c.schema
}

// Field resolves a chain of attribute names into a typed field path, one
// name per nesting level. An undeclared name fails with [ErrInvalidKey].
func (c *Collection[T]) Field(names ...string) (FieldPath, error) {
	return query.NewPath(c.schema, names...)
}

// MustField is [Collection.Field] panicking on resolution failure, for
// paths known at compile time.
func (c *Collection[T]) MustField(names ...string) FieldPath {
	p, err := c.Field(names...)
	if err != nil {
		panic(err)
	}
	return p
}

// Query starts a query set, optionally seeded with filter predicates.
// Predicates may be expressions or raw filter mappings.
func (c *Collection[T]) Query(preds ...any) *QuerySet[T] {
	qs := &QuerySet[T]{coll: c}
	if len(preds) == 0 {
		return qs
	}
	return qs.Query(preds...)
}

// Insert stores the instance, excluding its identity field, and back-fills
// the identity assigned by the transport.
func (c *Collection[T]) Insert(ctx context.Context, instance *T) (*T, error) {
	if instance == nil {
		return nil, domain.ErrTargetNil
	}
	doc, err := schema.Marshal(c.schema, instance, true)
	if err != nil {
		return nil, err
	}
	id, err := c.transport.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := schema.SetID(c.schema, instance, id); err != nil {
		return nil, err
	}
	return instance, nil
}

// InsertMany bulk-stores the instances and back-fills each identity from
// the transport's per-document assignments, in input order. Instances
// stored before a mid-bulk failure keep their assigned identities.
func (c *Collection[T]) InsertMany(ctx context.Context, instances []*T) ([]*T, error) {
	docs := make([]bson.M, len(instances))
	for n, instance := range instances {
		if instance == nil {
			return nil, domain.ErrTargetNil
		}
		doc, err := schema.Marshal(c.schema, instance, true)
		if err != nil {
			return nil, err
		}
		docs[n] = doc
	}

	ids, insertErr := c.transport.InsertMany(ctx, docs)
	for n, id := range ids {
		if n >= len(instances) {
			break
		}
		if err := schema.SetID(c.schema, instances[n], id); err != nil {
			return nil, err
		}
	}
	if insertErr != nil {
		return nil, insertErr
	}
	return instances, nil
}

// Save replaces every non-identity field of the stored document keyed by
// the instance's identity, then reassigns the instance's fields from the
// just-saved values so coercion side effects cannot drift the two apart.
func (c *Collection[T]) Save(ctx context.Context, instance *T) (*T, error) {
	id, ok := schema.ID(c.schema, instance)
	if !ok {
		return nil, domain.ErrMissingID
	}
	doc, err := schema.Marshal(c.schema, instance, true)
	if err != nil {
		return nil, err
	}
	if err := c.transport.UpdateMany(ctx, c.identityFilter(id), doc); err != nil {
		return nil, err
	}
	if err := c.decoder.Decode(doc, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// Delete removes the single document matching the instance's identity and
// returns the deleted count.
func (c *Collection[T]) Delete(ctx context.Context, instance *T) (int64, error) {
	id, ok := schema.ID(c.schema, instance)
	if !ok {
		return 0, domain.ErrMissingID
	}
	return c.transport.DeleteMany(ctx, c.identityFilter(id))
}

// GetByID fetches the single document with the given identity, accepting
// a pre-typed [primitive.ObjectID] or its hex string form. A malformed
// string fails with [ErrInvalidObjectID]; a well-formed but absent
// identity fails with [ErrNoMatchFound].
func (c *Collection[T]) GetByID(ctx context.Context, id any) (*T, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return c.Query(bson.M{schema.IDAlias: oid}).Get(ctx)
}

func (c *Collection[T]) identityFilter(id any) bson.M {
	return bson.M{schema.IDAlias: bson.M{query.OpEq: id}}
}

func parseID(id any) (primitive.ObjectID, error) {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v, nil
	case string:
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return primitive.NilObjectID, domain.ErrInvalidObjectID{Value: v}
		}
		return oid, nil
	}
	return primitive.NilObjectID, domain.ErrInvalidObjectID{Value: fmt.Sprintf("%T", id)}
}
