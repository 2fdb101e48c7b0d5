// Package mongodb adapts a [*mongo.Collection] to [domain.Transport].
//
// The adapter owns no connection state: client lifecycle, pooling and
// server selection remain the driver's business. Driver errors, including
// duplicate key errors from unique indexes, propagate to callers
// unchanged.
package mongodb

import (
	"context"
	"iter"

	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Transport implements [domain.Transport] over a driver collection handle.
type Transport struct {
	coll *mongo.Collection
}

// NewTransport returns a transport bound to the given collection handle.
func NewTransport(coll *mongo.Collection) *Transport {
	return &Transport{coll: coll}
}

// Find implements [domain.Transport]. The returned sequence streams from
// the server cursor and is single-pass; abandoning it closes the cursor.
func (t *Transport) Find(ctx context.Context, filter bson.M, opts ...domain.FindOption) (iter.Seq2[bson.M, error], error) {
	fo := domain.FindOptions{}
	for _, opt := range opts {
		opt(&fo)
	}

	findOpts := options.Find()
	if len(fo.Sort) > 0 {
		findOpts.SetSort(fo.Sort)
	}
	if fo.Skip > 0 {
		findOpts.SetSkip(fo.Skip)
	}
	if fo.Limit > 0 {
		findOpts.SetLimit(fo.Limit)
	}

	cur, err := t.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}

	return func(yield func(bson.M, error) bool) {
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var doc bson.M
			if err := cur.Decode(&doc); err != nil {
				yield(nil, err)
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, err)
		}
	}, nil
}

// CountDocuments implements [domain.Transport].
func (t *Transport) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return t.coll.CountDocuments(ctx, filter)
}

// DeleteMany implements [domain.Transport].
func (t *Transport) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := t.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UpdateMany implements [domain.Transport].
func (t *Transport) UpdateMany(ctx context.Context, filter bson.M, set bson.M) error {
	_, err := t.coll.UpdateMany(ctx, filter, bson.M{"$set": set})
	return err
}

// FindOneAndUpdate implements [domain.Transport]. The call is a single
// server-side find-and-modify with upsert, so the existence check and the
// insert cannot race.
func (t *Transport) FindOneAndUpdate(ctx context.Context, filter bson.M, setOnInsert bson.M) (bson.M, error) {
	if len(setOnInsert) == 0 {
		// The server rejects an empty update document; seeding the
		// identity keeps the upsert a no-op for existing matches.
		setOnInsert = bson.M{"_id": primitive.NewObjectID()}
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	res := t.coll.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": setOnInsert}, opts)
	if err := res.Err(); err != nil {
		return nil, err
	}
	var doc bson.M
	if err := res.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// InsertOne implements [domain.Transport].
func (t *Transport) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	res, err := t.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

// InsertMany implements [domain.Transport].
func (t *Transport) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	payload := make([]any, len(docs))
	for n, doc := range docs {
		payload[n] = doc
	}
	res, err := t.coll.InsertMany(ctx, payload)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}
