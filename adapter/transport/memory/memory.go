// Package memory contains an in-process [domain.Transport] implementation.
//
// It stores documents in insertion order, evaluates compiled filters with
// the default matcher, supports unique indexes backed by an AVL tree and
// can snapshot its contents to an [io.Writer] as extended JSON, one
// document per line. It is the reference transport for tests and for
// callers that want collection semantics without a server.
package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/dolmen-go/contextio"
	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"

	"github.com/monqlabs/monq/adapter/comparer"
	"github.com/monqlabs/monq/adapter/matcher"
	"github.com/monqlabs/monq/adapter/query"
	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transport implements [domain.Transport] in memory. The zero value is not
// usable; call [NewTransport].
type Transport struct {
	mu       sync.RWMutex
	docs     []bson.M
	matcher  domain.Matcher
	comparer domain.Comparer
	indexes  map[string]bst.BST[any, bson.M]
}

// NewTransport returns a new in-memory transport.
func NewTransport(options ...Option) *Transport {
	t := &Transport{
		comparer: comparer.NewComparer(),
		indexes:  make(map[string]bst.BST[any, bson.M]),
	}
	for _, option := range options {
		option(t)
	}
	if t.matcher == nil {
		t.matcher = matcher.NewMatcher(matcher.WithComparer(t.comparer))
	}
	return t
}

// EnsureIndex creates a unique index over the given dotted field path,
// indexing the documents already stored. Inserting or updating a document
// whose key collides with an indexed one fails with
// [domain.ErrConstraintViolated].
func (t *Transport) EnsureIndex(ctx context.Context, field string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.indexes[field]; ok {
		return nil
	}
	tree := avl.NewBST(true, 8, newTreeComparer(t.comparer))
	for _, doc := range t.docs {
		if err := t.indexInsert(tree, field, doc); err != nil {
			return err
		}
	}
	t.indexes[field] = tree
	return nil
}

// Find implements [domain.Transport]. The returned sequence iterates over
// a snapshot taken under the read lock, so it stays valid while other
// callers mutate the collection.
func (t *Transport) Find(ctx context.Context, filter bson.M, opts ...domain.FindOption) (iter.Seq2[bson.M, error], error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	options := domain.FindOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	t.mu.RLock()
	matched := make([]bson.M, 0, len(t.docs))
	for _, doc := range t.docs {
		ok, err := t.matcher.Matches(filter, doc)
		if err != nil {
			t.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, clone(doc))
		}
	}
	t.mu.RUnlock()

	if len(options.Sort) > 0 {
		if err := t.sortDocs(matched, options.Sort); err != nil {
			return nil, err
		}
	}
	if options.Skip > 0 {
		if options.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[options.Skip:]
		}
	}
	if options.Limit > 0 && options.Limit < int64(len(matched)) {
		matched = matched[:options.Limit]
	}

	return func(yield func(bson.M, error) bool) {
		for _, doc := range matched {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			default:
			}
			if !yield(doc, nil) {
				return
			}
		}
	}, nil
}

// CountDocuments implements [domain.Transport].
func (t *Transport) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var count int64
	for _, doc := range t.docs {
		ok, err := t.matcher.Matches(filter, doc)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// DeleteMany implements [domain.Transport].
func (t *Transport) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.docs[:0:0]
	var deleted int64
	for _, doc := range t.docs {
		ok, err := t.matcher.Matches(filter, doc)
		if err != nil {
			return 0, err
		}
		if !ok {
			kept = append(kept, doc)
			continue
		}
		deleted++
		for field, tree := range t.indexes {
			t.indexRemove(tree, field, doc)
		}
	}
	t.docs = kept
	return deleted, nil
}

// UpdateMany implements [domain.Transport]. The set values replace fields
// wholesale on every matching document.
func (t *Transport) UpdateMany(ctx context.Context, filter bson.M, set bson.M) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for n, doc := range t.docs {
		ok, err := t.matcher.Matches(filter, doc)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		updated := clone(doc)
		for k, v := range set {
			setPath(updated, strings.Split(k, "."), v)
		}
		if err := t.reindex(doc, updated); err != nil {
			return err
		}
		t.docs[n] = updated
	}
	return nil
}

// FindOneAndUpdate implements [domain.Transport]. When a match exists it
// is returned untouched; otherwise a document built from the filter's
// equality data plus the setOnInsert values is stored and returned. The
// existence check and the insert happen under one critical section.
func (t *Transport) FindOneAndUpdate(ctx context.Context, filter bson.M, setOnInsert bson.M) (bson.M, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, doc := range t.docs {
		ok, err := t.matcher.Matches(filter, doc)
		if err != nil {
			return nil, err
		}
		if ok {
			return clone(doc), nil
		}
	}

	doc := equalityData(filter)
	for k, v := range setOnInsert {
		doc[k] = v
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	if err := t.insertLocked(doc); err != nil {
		return nil, err
	}
	return clone(doc), nil
}

// InsertOne implements [domain.Transport].
func (t *Transport) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := clone(doc)
	if _, ok := stored["_id"]; !ok {
		stored["_id"] = primitive.NewObjectID()
	}
	if err := t.insertLocked(stored); err != nil {
		return nil, err
	}
	return stored["_id"], nil
}

// InsertMany implements [domain.Transport]. Documents preceding the first
// failure stay inserted, matching the behavior of an unordered-free bulk
// insert.
func (t *Transport) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		stored := clone(doc)
		if _, ok := stored["_id"]; !ok {
			stored["_id"] = primitive.NewObjectID()
		}
		if err := t.insertLocked(stored); err != nil {
			return ids, err
		}
		ids = append(ids, stored["_id"])
	}
	return ids, nil
}

// Dump writes every stored document to w as canonical extended JSON, one
// document per line. The write is context-aware.
func (t *Transport) Dump(ctx context.Context, w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cw := contextio.NewWriter(ctx, w)
	for _, doc := range t.docs {
		line, err := bson.MarshalExtJSON(doc, true, false)
		if err != nil {
			return err
		}
		if _, err := cw.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the stored documents with the extended JSON lines read
// from r and rebuilds every index. The read is context-aware.
func (t *Transport) Load(ctx context.Context, r io.Reader) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var docs []bson.M
	scanner := bufio.NewScanner(contextio.NewReader(ctx, r))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc bson.M
		if err := bson.UnmarshalExtJSON(line, true, &doc); err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fields := make([]string, 0, len(t.indexes))
	for field := range t.indexes {
		fields = append(fields, field)
	}
	t.docs = nil
	t.indexes = make(map[string]bst.BST[any, bson.M], len(fields))
	for _, field := range fields {
		t.indexes[field] = avl.NewBST(true, 8, newTreeComparer(t.comparer))
	}
	for _, doc := range docs {
		if err := t.insertLocked(doc); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored documents.
func (t *Transport) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.docs)
}

func (t *Transport) insertLocked(doc bson.M) error {
	inserted := make([]string, 0, len(t.indexes))
	for field, tree := range t.indexes {
		if err := t.indexInsert(tree, field, doc); err != nil {
			for _, f := range inserted {
				t.indexRemove(t.indexes[f], f, doc)
			}
			return err
		}
		inserted = append(inserted, field)
	}
	t.docs = append(t.docs, doc)
	return nil
}

func (t *Transport) reindex(old, updated bson.M) error {
	for field, tree := range t.indexes {
		t.indexRemove(tree, field, old)
		if err := t.indexInsert(tree, field, updated); err != nil {
			_ = t.indexInsert(tree, field, old)
			return err
		}
	}
	return nil
}

func (t *Transport) indexInsert(tree bst.BST[any, bson.M], field string, doc bson.M) error {
	if err := tree.Insert(pathValue(doc, field), doc); err != nil {
		if e := new(bst.ErrUniqueViolated); errors.As(err, e) {
			return fmt.Errorf("%w: index %q: %w", domain.ErrConstraintViolated, field, err)
		}
		return err
	}
	return nil
}

func (t *Transport) indexRemove(tree bst.BST[any, bson.M], field string, doc bson.M) {
	d := doc
	// Delete errors on absent keys are ignorable here: the entry may
	// never have been indexed.
	_ = tree.Delete(pathValue(doc, field), &d)
}

func (t *Transport) sortDocs(docs []bson.M, keys bson.D) error {
	var sortErr error
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range keys {
			a := pathValue(docs[i], key.Key)
			b := pathValue(docs[j], key.Key)
			c, err := t.comparer.Compare(a, b)
			if err != nil {
				sortErr = err
				return false
			}
			if c == 0 {
				continue
			}
			if direction(key.Value) < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sortErr
}

func direction(v any) int {
	switch d := v.(type) {
	case int:
		return d
	case int32:
		return int(d)
	case int64:
		return int(d)
	case domain.Order:
		return int(d)
	}
	return 1
}

// equalityData extracts the plain `field equals value` pairs of a compiled
// filter, which is what an upsert seeds the inserted document with.
func equalityData(filter bson.M) bson.M {
	data := make(bson.M, len(filter))
	for key, cond := range filter {
		if query.IsLogical(key) || strings.HasPrefix(key, "$") {
			continue
		}
		sub, ok := cond.(bson.M)
		if !ok {
			data[key] = cond
			continue
		}
		if v, ok := sub[query.OpEq]; ok {
			data[key] = v
		}
	}
	return data
}

func pathValue(doc bson.M, field string) any {
	var v any = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := v.(bson.M)
		if !ok {
			if mm, ok := v.(map[string]any); ok {
				m = bson.M(mm)
			} else {
				return nil
			}
		}
		v = m[part]
	}
	return v
}

func setPath(doc bson.M, parts []string, value any) {
	for len(parts) > 1 {
		next, ok := doc[parts[0]].(bson.M)
		if !ok {
			next = make(bson.M)
			doc[parts[0]] = next
		}
		doc = next
		parts = parts[1:]
	}
	doc[parts[0]] = value
}

func clone(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return clone(t)
	case map[string]any:
		return clone(bson.M(t))
	case []any:
		out := make([]any, len(t))
		for n, el := range t {
			out[n] = cloneValue(el)
		}
		return out
	case bson.A:
		out := make(bson.A, len(t))
		for n, el := range t {
			out[n] = cloneValue(el)
		}
		return out
	}
	return v
}
