package monq

import (
	"context"
	"iter"

	"github.com/monqlabs/monq/adapter/query"
	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
)

// QuerySet is the fluent builder accumulating filter, sort, skip and limit
// state for one collection. Builder calls mutate the receiver and return
// it for chaining; a QuerySet is therefore owned by a single logical flow
// and must not be shared across goroutines without external
// synchronization. Terminal calls are the only operations that suspend on
// the transport, and none of them mutates builder state before the
// transport confirms success.
//
// A predicate error poisons the builder and surfaces at the terminal call.
type QuerySet[T any] struct {
	coll   *Collection[T]
	filter []query.Expression
	sort   []query.SortExpression
	skip   int64
	limit  int64
	err    error
}

// Query appends filter predicates. Each predicate is an [Expression] or a
// raw filter mapping, which is unpacked into per-operator expressions;
// anything else fails the builder with [ErrInvalidPredicate].
func (qs *QuerySet[T]) Query(preds ...any) *QuerySet[T] {
	if qs.err != nil {
		return qs
	}
	exprs, err := query.Filter(preds...)
	if err != nil {
		qs.err = err
		return qs
	}
	qs.filter = append(qs.filter, exprs...)
	return qs
}

// Sort appends ordering keys. The key may be a [SortExpression], a slice
// of them, a [FieldPath] or a raw string, the latter two defaulting to
// ascending unless a direction is given. Later keys are lower-priority
// tie-breakers; Sort never replaces previously appended keys.
func (qs *QuerySet[T]) Sort(key any, direction ...Order) *QuerySet[T] {
	if qs.err != nil {
		return qs
	}
	dir := domain.Ascending
	if len(direction) > 0 {
		dir = direction[0]
	}
	switch k := key.(type) {
	case query.SortExpression:
		qs.sort = append(qs.sort, k)
	case []query.SortExpression:
		qs.sort = append(qs.sort, k...)
	case string, query.FieldPath, *query.FieldPath:
		qs.sort = append(qs.sort, query.NewSortExpression(k, dir))
	default:
		qs.err = domain.ErrInvalidPredicate{Value: key}
	}
	return qs
}

// Skip sets the number of documents to skip. Zero means no skip.
func (qs *QuerySet[T]) Skip(n int64) *QuerySet[T] {
	qs.skip = n
	return qs
}

// Limit sets the maximum number of documents to fetch. Zero means no
// limit.
func (qs *QuerySet[T]) Limit(n int64) *QuerySet[T] {
	qs.limit = n
	return qs
}

// All executes the query and materializes every matching document, in
// sort order. Each call re-executes the query fresh; the builder state is
// left untouched.
func (qs *QuerySet[T]) All(ctx context.Context) ([]*T, error) {
	var out []*T
	for instance, err := range qs.Iter(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

// Iter executes the query and streams matching documents as typed
// instances without materializing the full result. The sequence is
// single-pass and non-restartable; All is the restartable variant.
func (qs *QuerySet[T]) Iter(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		filter, opts, err := qs.compile()
		if err != nil {
			yield(nil, err)
			return
		}
		seq, err := qs.coll.transport.Find(ctx, filter, opts...)
		if err != nil {
			yield(nil, err)
			return
		}
		for doc, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			instance := new(T)
			if err := qs.coll.decoder.Decode(doc, instance); err != nil {
				yield(nil, err)
				return
			}
			if !yield(instance, nil) {
				return
			}
		}
	}
}

// First returns the first matching document, or nil without error when
// nothing matches.
func (qs *QuerySet[T]) First(ctx context.Context) (*T, error) {
	instances, err := qs.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, nil
	}
	return instances[0], nil
}

// Get returns the only matching document, failing with [ErrNoMatchFound]
// on zero matches and [ErrMultipleMatchesFound] on more than one. At most
// two documents are fetched; proving "more than one" never requires
// counting all matches.
func (qs *QuerySet[T]) Get(ctx context.Context) (*T, error) {
	instances, err := qs.Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(instances) {
	case 0:
		return nil, domain.ErrNoMatchFound
	case 1:
		return instances[0], nil
	}
	return nil, domain.ErrMultipleMatchesFound
}

// Count returns the transport-reported number of matching documents. Sort,
// skip and limit do not apply.
func (qs *QuerySet[T]) Count(ctx context.Context) (int64, error) {
	filter, _, err := qs.compile()
	if err != nil {
		return 0, err
	}
	return qs.coll.transport.CountDocuments(ctx, filter)
}

// Delete removes every matching document and returns the count removed.
func (qs *QuerySet[T]) Delete(ctx context.Context) (int64, error) {
	filter, _, err := qs.compile()
	if err != nil {
		return 0, err
	}
	return qs.coll.transport.DeleteMany(ctx, filter)
}

// Update validates the supplied field values against the model's declared
// fields and applies them as a wholesale field replacement to every
// matching document. Field names the schema does not declare are dropped
// silently. After the transport confirms the update, the builder's filter
// is replaced with one matching the just-applied values, so chained calls
// target the updated record set; the updated documents are returned.
func (qs *QuerySet[T]) Update(ctx context.Context, fields bson.M) ([]*T, error) {
	filter, _, err := qs.compile()
	if err != nil {
		return nil, err
	}
	validated, err := qs.coll.validator.Validate(qs.coll.schema, fields, true)
	if err != nil {
		return nil, err
	}
	if err := qs.coll.transport.UpdateMany(ctx, filter, validated); err != nil {
		return nil, err
	}

	replaced := make([]query.Expression, 0, len(validated))
	for key, value := range validated {
		replaced = append(replaced, query.Expression{Key: key, Operator: query.OpEq, Value: value})
	}
	qs.filter = replaced

	return qs.All(ctx)
}

// GetOrCreate returns the single document matching the current filter,
// atomically inserting one built from the filter's equality data merged
// with defaults when no match exists. The merged document is validated
// against the full schema first. Calling it twice with the same filter and
// defaults yields the same identity and creates exactly one document.
func (qs *QuerySet[T]) GetOrCreate(ctx context.Context, defaults bson.M) (*T, error) {
	filter, _, err := qs.compile()
	if err != nil {
		return nil, err
	}

	merged := make(bson.M, len(defaults)+len(qs.filter))
	for _, e := range qs.filter {
		if e.Operator == query.OpEq && !query.IsLogical(e.Key) {
			merged[e.Key] = e.Value
		}
	}
	for key, value := range defaults {
		merged[key] = value
	}

	validated, err := qs.coll.validator.Validate(qs.coll.schema, merged, false)
	if err != nil {
		return nil, err
	}

	doc, err := qs.coll.transport.FindOneAndUpdate(ctx, filter, validated)
	if err != nil {
		return nil, err
	}
	instance := new(T)
	if err := qs.coll.decoder.Decode(doc, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

func (qs *QuerySet[T]) compile() (bson.M, []domain.FindOption, error) {
	if qs.err != nil {
		return nil, nil, qs.err
	}
	filter, err := query.CompileMany(qs.filter)
	if err != nil {
		return nil, nil, err
	}
	var opts []domain.FindOption
	if len(qs.sort) > 0 {
		opts = append(opts, domain.WithSort(query.CompileSort(qs.sort)))
	}
	if qs.skip > 0 {
		opts = append(opts, domain.WithSkip(qs.skip))
	}
	if qs.limit > 0 {
		opts = append(opts, domain.WithLimit(qs.limit))
	}
	return filter, opts, nil
}
