package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/chat-billing/services/billing-service/repository"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	store := repository.NewMemoryStore()
	_, err := store.Get(context.Background(), "users", "U1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMemoryStore_MergePreservesFields(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "users", "U1", repository.Document{"plan": "Pro", "email": "a@example.com"}, repository.SetOptions{Merge: true}))
	require.NoError(t, store.Set(ctx, "users", "U1", repository.Document{"plan": "Free"}, repository.SetOptions{Merge: true}))

	doc, err := store.Get(ctx, "users", "U1")
	require.NoError(t, err)
	assert.Equal(t, repository.Document{"plan": "Free", "email": "a@example.com"}, doc)
}

func TestMemoryStore_ReplaceWithoutMerge(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "users", "U1", repository.Document{"plan": "Pro", "email": "a@example.com"}, repository.SetOptions{}))
	require.NoError(t, store.Set(ctx, "users", "U1", repository.Document{"plan": "Team"}, repository.SetOptions{}))

	doc, err := store.Get(ctx, "users", "U1")
	require.NoError(t, err)
	assert.Equal(t, repository.Document{"plan": "Team"}, doc)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	patch := repository.Document{"plan": "Pro"}
	require.NoError(t, store.Set(ctx, "users", "U1", patch, repository.SetOptions{Merge: true}))
	patch["plan"] = "mutated"

	doc, err := store.Get(ctx, "users", "U1")
	require.NoError(t, err)
	doc["plan"] = "mutated again"

	again, err := store.Get(ctx, "users", "U1")
	require.NoError(t, err)
	assert.Equal(t, "Pro", again["plan"])
	assert.Equal(t, 1, store.Len("users"))
	assert.Equal(t, 0, store.Len("stripeSubscriptions"))
}
