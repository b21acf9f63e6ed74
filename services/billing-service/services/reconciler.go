package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/chat-billing/services/billing-service/config"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"github.com/yashrajoria/chat-billing/services/billing-service/repository"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
	"github.com/yashrajoria/chat-billing/services/common/logger"
	"go.uber.org/zap"
)

// Clock is the timestamp provider for updatedAt fields.
type Clock func() time.Time

// ReconcileResult describes what a webhook event did.
type ReconcileResult struct {
	Kind           models.EventKind
	Ignored        bool
	UID            string
	Plan           models.Plan
	SubscriptionID string
	Status         string
}

// Reconciler applies verified Stripe events to user plan records.
type Reconciler interface {
	Reconcile(ctx context.Context, event *stripe.Event) (*ReconcileResult, error)
}

type reconciler struct {
	repo     repository.PlanRepository
	prices   config.Provider
	notifier PlanNotifier
	clock    Clock
	logger   *zap.Logger
}

// NewReconciler creates a Reconciler. notifier may be nil.
func NewReconciler(repo repository.PlanRepository, prices config.Provider, notifier PlanNotifier, clock Clock, logger *zap.Logger) Reconciler {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reconciler{repo: repo, prices: prices, notifier: notifier, clock: clock, logger: logger}
}

// Reconcile dispatches on the event type. Payload shape problems come back
// wrapped in ErrInvalidPayload; store failures are returned as-is so the
// sender retries.
func (r *reconciler) Reconcile(ctx context.Context, event *stripe.Event) (*ReconcileResult, error) {
	if event == nil || event.Data == nil {
		return nil, apperrors.ErrInvalidPayload
	}

	kind := models.ParseEventKind(string(event.Type))
	switch {
	case kind == models.EventCheckoutCompleted:
		var sess models.CheckoutSession
		if err := decodeObject(event, &sess); err != nil {
			return nil, err
		}
		return r.checkoutCompleted(ctx, event, &sess)
	case kind.IsSubscriptionLifecycle():
		var sub models.Subscription
		if err := decodeObject(event, &sub); err != nil {
			return nil, err
		}
		if sub.ID == "" {
			return nil, apperrors.Wrap(apperrors.ErrInvalidPayload, errors.New("subscription without id"))
		}
		return r.subscriptionChanged(ctx, event, kind, &sub)
	default:
		return &ReconcileResult{Kind: kind, Ignored: true}, nil
	}
}

func decodeObject(event *stripe.Event, v any) error {
	raw := bytes.TrimSpace(event.Data.Raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return apperrors.ErrInvalidPayload
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidPayload, err)
	}
	return nil
}

func (r *reconciler) checkoutCompleted(ctx context.Context, event *stripe.Event, sess *models.CheckoutSession) (*ReconcileResult, error) {
	result := &ReconcileResult{Kind: models.EventCheckoutCompleted}
	if sess.Mode != models.CheckoutModeSubscription {
		result.Ignored = true
		return result, nil
	}

	uid := sess.UID()
	plan := sess.DeclaredPlan()
	subID := sess.Subscription.String()
	customerID := sess.Customer.String()
	now := r.clock()

	r.warnUnknownPlan(ctx, plan, uid)

	if err := r.repo.UpsertUserPlan(ctx, uid, models.UserPlanPatch{
		Plan:           plan,
		Email:          sess.Email(),
		CustomerID:     customerID,
		SubscriptionID: subID,
		Status:         models.StatusCheckoutCompleted,
		UpdatedAt:      now,
	}); err != nil {
		return nil, err
	}
	if err := r.repo.UpsertSubscription(ctx, subID, models.SubscriptionMapPatch{
		UID:        uid,
		Plan:       plan,
		CustomerID: customerID,
		UpdatedAt:  now,
	}); err != nil {
		return nil, err
	}

	result.UID, result.Plan, result.SubscriptionID, result.Status = uid, plan, subID, models.StatusCheckoutCompleted
	r.applied(ctx, event, result)
	return result, nil
}

func (r *reconciler) subscriptionChanged(ctx context.Context, event *stripe.Event, kind models.EventKind, sub *models.Subscription) (*ReconcileResult, error) {
	entry, err := r.repo.LookupSubscription(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	var uid, customerID string
	if entry != nil {
		uid, customerID = entry.UID, entry.CustomerID
	}
	if c := sub.Customer.String(); c != "" {
		customerID = c
	}

	priceID := sub.FirstPriceID()
	plan := models.PlanFree
	if kind != models.EventSubscriptionDeleted {
		plan = r.planForPrice(priceID)
	}
	now := r.clock()

	if err := r.repo.UpsertUserPlan(ctx, uid, models.UserPlanPatch{
		Plan:             plan,
		CustomerID:       customerID,
		SubscriptionID:   sub.ID,
		PriceID:          priceID,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.PeriodEnd(),
		UpdatedAt:        now,
	}); err != nil {
		return nil, err
	}
	if err := r.repo.UpsertSubscription(ctx, sub.ID, models.SubscriptionMapPatch{
		UID:        uid,
		Plan:       plan,
		CustomerID: customerID,
		UpdatedAt:  now,
	}); err != nil {
		return nil, err
	}

	result := &ReconcileResult{Kind: kind, UID: uid, Plan: plan, SubscriptionID: sub.ID, Status: sub.Status}
	if uid == "" {
		r.logger.Warn("Subscription has no uid mapping; skipped user update",
			zap.String("event_id", event.ID),
			zap.String("event_type", kind.String()),
			zap.String("subscription_id", sub.ID),
			zap.String(logger.RequestIDKey, logger.RequestID(ctx)),
		)
		return result, nil
	}
	r.applied(ctx, event, result)
	return result, nil
}

// planForPrice falls back to Pro for prices missing from the table.
func (r *reconciler) planForPrice(priceID string) models.Plan {
	if r.prices != nil {
		if plan, ok := r.prices.PlanForPrice(priceID); ok {
			return plan
		}
	}
	return models.PlanPro
}

func (r *reconciler) warnUnknownPlan(ctx context.Context, plan models.Plan, uid string) {
	if !plan.Known() {
		r.logger.Warn("Checkout declared an unrecognised plan; storing as-is",
			zap.String("plan", string(plan)),
			zap.String("uid", uid),
			zap.String(logger.RequestIDKey, logger.RequestID(ctx)),
		)
	}
}

func (r *reconciler) applied(ctx context.Context, event *stripe.Event, res *ReconcileResult) {
	r.logger.Info("Stripe event reconciled",
		zap.String("event_id", event.ID),
		zap.String("event_type", res.Kind.String()),
		zap.String("subscription_id", res.SubscriptionID),
		zap.String("uid", res.UID),
		zap.String("plan", string(res.Plan)),
		zap.String(logger.RequestIDKey, logger.RequestID(ctx)),
	)
	if res.UID == "" || r.notifier == nil {
		return
	}
	r.notifier.NotifyPlanChanged(ctx, models.PlanChangedEvent{
		Type:           models.PlanChangedEventType,
		UID:            res.UID,
		Plan:           res.Plan,
		Status:         res.Status,
		SubscriptionID: res.SubscriptionID,
		EventType:      res.Kind.String(),
		Timestamp:      r.clock().UTC().Format(time.RFC3339),
	})
}
