package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection is the subset of *mongo.Collection the store uses.
type MongoCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// MongoStore keeps one Mongo collection per document collection, keyed by _id.
type MongoStore struct {
	collection func(name string) MongoCollection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: func(name string) MongoCollection { return db.Collection(name) }}
}

// NewMongoStoreWith builds a store over arbitrary collections.
func NewMongoStoreWith(collection func(name string) MongoCollection) *MongoStore {
	return &MongoStore{collection: collection}
}

func (m *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := m.collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find %s/%s failed: %w", collection, id, err)
	}
	return FromBSON(raw), nil
}

func (m *MongoStore) Set(ctx context.Context, collection, id string, patch Document, opts SetOptions) error {
	filter := bson.M{"_id": id}
	coll := m.collection(collection)

	if !opts.Merge {
		doc := bson.M{}
		for k, v := range patch {
			doc[k] = v
		}
		if _, err := coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
			return fmt.Errorf("mongo replace %s/%s failed: %w", collection, id, err)
		}
		return nil
	}

	set := bson.M{}
	for k, v := range patch {
		if k == "_id" {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil
	}
	if _, err := coll.UpdateOne(ctx, filter, bson.M{"$set": set}, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("mongo update %s/%s failed: %w", collection, id, err)
	}
	return nil
}

// FromBSON converts a decoded Mongo document into a Document, dropping _id
// and turning BSON dates into time.Time.
func FromBSON(raw bson.M) Document {
	doc := Document{}
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		switch tv := v.(type) {
		case primitive.DateTime:
			doc[k] = tv.Time().UTC()
		case primitive.Timestamp:
			doc[k] = time.Unix(int64(tv.T), 0).UTC()
		default:
			doc[k] = v
		}
	}
	return doc
}
