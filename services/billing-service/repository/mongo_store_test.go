package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/chat-billing/services/billing-service/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeCollection struct {
	findDoc     interface{}
	findErr     error
	lastFilter  interface{}
	lastUpdate  interface{}
	lastReplace interface{}
	upserted    bool
	writeErr    error
}

func (f *fakeCollection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	f.lastFilter = filter
	doc := f.findDoc
	if doc == nil {
		doc = bson.D{}
	}
	return mongo.NewSingleResultFromDocument(doc, f.findErr, nil)
}

func (f *fakeCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.lastFilter, f.lastUpdate = filter, update
	for _, o := range opts {
		if o.Upsert != nil {
			f.upserted = *o.Upsert
		}
	}
	return &mongo.UpdateResult{MatchedCount: 1}, f.writeErr
}

func (f *fakeCollection) ReplaceOne(_ context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	f.lastFilter, f.lastReplace = filter, replacement
	for _, o := range opts {
		if o.Upsert != nil {
			f.upserted = *o.Upsert
		}
	}
	return &mongo.UpdateResult{MatchedCount: 1}, f.writeErr
}

func newMongoStore(coll *fakeCollection, seen *string) *repository.MongoStore {
	return repository.NewMongoStoreWith(func(name string) repository.MongoCollection {
		*seen = name
		return coll
	})
}

func TestMongoStore_Get(t *testing.T) {
	var name string
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	coll := &fakeCollection{findDoc: bson.M{"_id": "U1", "plan": "Pro", "updatedAt": primitive.NewDateTimeFromTime(updated)}}
	store := newMongoStore(coll, &name)

	doc, err := store.Get(context.Background(), "users", "U1")
	require.NoError(t, err)
	assert.Equal(t, "users", name)
	assert.Equal(t, bson.M{"_id": "U1"}, coll.lastFilter)
	assert.Equal(t, "Pro", doc["plan"])
	assert.Equal(t, updated, doc["updatedAt"])
	_, hasID := doc["_id"]
	assert.False(t, hasID)
}

func TestMongoStore_GetNotFound(t *testing.T) {
	var name string
	store := newMongoStore(&fakeCollection{findErr: mongo.ErrNoDocuments}, &name)

	_, err := store.Get(context.Background(), "users", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMongoStore_MergeUsesSetWithUpsert(t *testing.T) {
	var name string
	coll := &fakeCollection{}
	store := newMongoStore(coll, &name)

	err := store.Set(context.Background(), "stripeSubscriptions", "sub_1", repository.Document{"uid": "U1", "_id": "nope"}, repository.SetOptions{Merge: true})
	require.NoError(t, err)

	assert.Equal(t, "stripeSubscriptions", name)
	assert.Equal(t, bson.M{"$set": bson.M{"uid": "U1"}}, coll.lastUpdate)
	assert.True(t, coll.upserted)
	assert.Nil(t, coll.lastReplace)
}

func TestMongoStore_ReplaceAndErrors(t *testing.T) {
	var name string
	coll := &fakeCollection{}
	store := newMongoStore(coll, &name)

	require.NoError(t, store.Set(context.Background(), "users", "U1", repository.Document{"plan": "Team"}, repository.SetOptions{}))
	assert.Equal(t, bson.M{"plan": "Team"}, coll.lastReplace)
	assert.True(t, coll.upserted)

	coll.writeErr = errors.New("write concern")
	assert.ErrorContains(t, store.Set(context.Background(), "users", "U1", repository.Document{"plan": "Pro"}, repository.SetOptions{Merge: true}), "write concern")

	empty := &fakeCollection{}
	require.NoError(t, newMongoStore(empty, &name).Set(context.Background(), "users", "U1", repository.Document{}, repository.SetOptions{Merge: true}))
	assert.Nil(t, empty.lastUpdate)
}
