package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yashrajoria/chat-billing/services/billing-service/models"
)

// PlanRepository reads and merge-writes user plan records and the
// subscription id → uid map.
type PlanRepository interface {
	GetUserPlan(ctx context.Context, uid string) (*models.UserPlanRecord, error)
	UpsertUserPlan(ctx context.Context, uid string, patch models.UserPlanPatch) error
	LookupSubscription(ctx context.Context, subscriptionID string) (*models.SubscriptionMapEntry, error)
	UpsertSubscription(ctx context.Context, subscriptionID string, patch models.SubscriptionMapPatch) error
}

type documentPlanRepository struct {
	store DocumentStore
}

// NewPlanRepository creates a PlanRepository over any DocumentStore.
func NewPlanRepository(store DocumentStore) PlanRepository {
	return &documentPlanRepository{store: store}
}

// GetUserPlan returns ErrNotFound when the user has no record.
func (r *documentPlanRepository) GetUserPlan(ctx context.Context, uid string) (*models.UserPlanRecord, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, ErrNotFound
	}
	doc, err := r.store.Get(ctx, models.CollectionUsers, uid)
	if err != nil {
		return nil, err
	}
	rec := models.UserPlanRecordFromFields(uid, doc)
	return &rec, nil
}

// UpsertUserPlan is a no-op for an empty uid.
func (r *documentPlanRepository) UpsertUserPlan(ctx context.Context, uid string, patch models.UserPlanPatch) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil
	}
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	if err := r.store.Set(ctx, models.CollectionUsers, uid, fields, SetOptions{Merge: true}); err != nil {
		return fmt.Errorf("upsert user plan %s: %w", uid, err)
	}
	return nil
}

// LookupSubscription returns (nil, nil) when the subscription is unmapped.
func (r *documentPlanRepository) LookupSubscription(ctx context.Context, subscriptionID string) (*models.SubscriptionMapEntry, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, nil
	}
	doc, err := r.store.Get(ctx, models.CollectionSubscriptions, subscriptionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup subscription %s: %w", subscriptionID, err)
	}
	entry := models.SubscriptionMapEntryFromFields(subscriptionID, doc)
	return &entry, nil
}

// UpsertSubscription is a no-op unless both the subscription id and the
// patch uid are present.
func (r *documentPlanRepository) UpsertSubscription(ctx context.Context, subscriptionID string, patch models.SubscriptionMapPatch) error {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" || strings.TrimSpace(patch.UID) == "" {
		return nil
	}
	if err := r.store.Set(ctx, models.CollectionSubscriptions, subscriptionID, patch.Fields(), SetOptions{Merge: true}); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", subscriptionID, err)
	}
	return nil
}
