package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yashrajoria/chat-billing/services/billing-service/repository"
)

type fakeCursor struct {
	docs   []bson.M
	pos    int
	err    error
	closed bool
}

func (f *fakeCursor) Next(context.Context) bool {
	if f.pos >= len(f.docs) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeCursor) Decode(v interface{}) error {
	doc := f.docs[f.pos-1]
	if doc == nil {
		return errors.New("corrupt document")
	}
	*(v.(*bson.M)) = doc
	return nil
}

func (f *fakeCursor) Err() error                  { return f.err }
func (f *fakeCursor) Close(context.Context) error { f.closed = true; return nil }

type failingStore struct{ repository.DocumentStore }

func (failingStore) Set(context.Context, string, string, repository.Document, repository.SetOptions) error {
	return errors.New("throttled")
}

func TestMigrate_CopiesDocuments(t *testing.T) {
	ctx := context.Background()
	oid := primitive.NewObjectID()
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cur := &fakeCursor{docs: []bson.M{
		{"_id": "uid-1", "plan": "pro", "stripeCustomerId": "cus_1"},
		{"_id": oid, "plan": "free", "updatedAt": primitive.NewDateTimeFromTime(updated)},
		nil,
		{"plan": "team"},
	}}
	dst := repository.NewMemoryStore()

	n, err := migrate(ctx, cur, dst, "users", false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, cur.closed)
	assert.Equal(t, 2, dst.Len("users"))

	doc, err := dst.Get(ctx, "users", "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "pro", doc["plan"])
	assert.NotContains(t, doc, "_id")

	doc, err = dst.Get(ctx, "users", oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, updated, doc["updatedAt"])
}

func TestMigrate_DryRunWritesNothing(t *testing.T) {
	cur := &fakeCursor{docs: []bson.M{{"_id": "sub_1", "uid": "uid-1"}}}
	dst := repository.NewMemoryStore()

	n, err := migrate(context.Background(), cur, dst, "stripeSubscriptions", true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, dst.Len("stripeSubscriptions"))
}

func TestMigrate_WriteFailureStops(t *testing.T) {
	cur := &fakeCursor{docs: []bson.M{{"_id": "a"}, {"_id": "b"}}}

	n, err := migrate(context.Background(), cur, failingStore{}, "users", false)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "users/a")
}

func TestMigrate_CursorError(t *testing.T) {
	cur := &fakeCursor{err: errors.New("cursor killed")}

	_, err := migrate(context.Background(), cur, repository.NewMemoryStore(), "users", false)
	assert.EqualError(t, err, "cursor killed")
}
