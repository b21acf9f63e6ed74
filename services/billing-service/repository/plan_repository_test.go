package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"github.com/yashrajoria/chat-billing/services/billing-service/repository"
)

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string, string) (repository.Document, error) {
	return nil, f.err
}
func (f failingStore) Set(context.Context, string, string, repository.Document, repository.SetOptions) error {
	return f.err
}

func TestPlanRepository_UserPlanMerge(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	repo := repository.NewPlanRepository(store)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertUserPlan(ctx, "U1", models.UserPlanPatch{Plan: models.PlanPro, Email: "a@example.com", UpdatedAt: now}))
	require.NoError(t, repo.UpsertUserPlan(ctx, "U1", models.UserPlanPatch{Status: "active", CurrentPeriodEnd: 1700000000}))

	rec, err := repo.GetUserPlan(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, rec.Plan)
	assert.Equal(t, "a@example.com", rec.Email)
	assert.Equal(t, "active", rec.StripeStatus)
	assert.Equal(t, int64(1700000000), rec.StripeCurrentPeriodEnd)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestPlanRepository_EmptyIDsAreNoops(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	repo := repository.NewPlanRepository(store)

	require.NoError(t, repo.UpsertUserPlan(ctx, "", models.UserPlanPatch{Plan: models.PlanPro}))
	require.NoError(t, repo.UpsertSubscription(ctx, "", models.SubscriptionMapPatch{UID: "U1"}))
	require.NoError(t, repo.UpsertSubscription(ctx, "sub_1", models.SubscriptionMapPatch{Plan: models.PlanPro}))

	assert.Equal(t, 0, store.Len(models.CollectionUsers))
	assert.Equal(t, 0, store.Len(models.CollectionSubscriptions))

	_, err := repo.GetUserPlan(ctx, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPlanRepository_SubscriptionLookup(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPlanRepository(repository.NewMemoryStore())

	entry, err := repo.LookupSubscription(ctx, "sub_1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, repo.UpsertSubscription(ctx, "sub_1", models.SubscriptionMapPatch{UID: "U1", Plan: models.PlanTeam, CustomerID: "cus_1"}))

	entry, err = repo.LookupSubscription(ctx, "sub_1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "U1", entry.UID)
	assert.Equal(t, models.PlanTeam, entry.Plan)
	assert.Equal(t, "cus_1", entry.CustomerID)
}

func TestPlanRepository_PropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPlanRepository(failingStore{err: errors.New("store down")})

	_, err := repo.LookupSubscription(ctx, "sub_1")
	assert.ErrorContains(t, err, "store down")
	assert.ErrorContains(t, repo.UpsertUserPlan(ctx, "U1", models.UserPlanPatch{Plan: models.PlanPro}), "store down")
	assert.ErrorContains(t, repo.UpsertSubscription(ctx, "sub_1", models.SubscriptionMapPatch{UID: "U1"}), "store down")
}
