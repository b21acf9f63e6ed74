package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yashrajoria/chat-billing/services/billing-service/config"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"github.com/yashrajoria/chat-billing/services/billing-service/repository"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
	"go.uber.org/zap"
)

// URLs are the redirect targets handed to Stripe.
type URLs struct {
	CheckoutSuccess string
	CheckoutCancel  string
	PortalReturn    string
}

// BillingService backs the authenticated checkout, portal and plan endpoints.
type BillingService interface {
	CreateCheckout(ctx context.Context, uid, tokenEmail string, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	CreatePortal(ctx context.Context, uid string) (*models.PortalResponse, error)
	GetPlan(ctx context.Context, uid string) (*models.UserPlanRecord, error)
}

type billingServiceImpl struct {
	repo    repository.PlanRepository
	gateway StripeGateway
	prices  config.Provider
	urls    URLs
	logger  *zap.Logger
}

func NewBillingService(repo repository.PlanRepository, gateway StripeGateway, prices config.Provider, urls URLs, logger *zap.Logger) BillingService {
	return &billingServiceImpl{repo: repo, gateway: gateway, prices: prices, urls: urls, logger: logger}
}

// CreateCheckout starts a subscription checkout for a paid plan. The request
// email wins over the token's.
func (s *billingServiceImpl) CreateCheckout(ctx context.Context, uid, tokenEmail string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	plan := models.NormalizePlan(req.Plan)
	if !plan.Paid() {
		return nil, apperrors.ErrInvalidPlan
	}
	priceID := s.prices.PriceForPlan(plan)
	if priceID == "" {
		s.logger.Error("No Stripe price configured for plan",
			zap.String("plan", string(plan)),
			zap.String("mode", string(s.prices.Mode())),
		)
		return nil, apperrors.ErrPriceNotConfigured
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = tokenEmail
	}

	resp, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		UID:        uid,
		Email:      email,
		Plan:       plan,
		PriceID:    priceID,
		SuccessURL: s.urls.CheckoutSuccess,
		CancelURL:  s.urls.CheckoutCancel,
	})
	if err != nil {
		s.logger.Error("Checkout session creation failed", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Checkout session created", zap.String("uid", uid), zap.String("plan", string(plan)), zap.String("session_id", resp.ID))
	return resp, nil
}

// CreatePortal opens the Stripe billing portal for a user with a customer id.
func (s *billingServiceImpl) CreatePortal(ctx context.Context, uid string) (*models.PortalResponse, error) {
	rec, err := s.repo.GetUserPlan(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrNoCustomer
	}
	if err != nil {
		return nil, err
	}
	if rec.StripeCustomerID == "" {
		return nil, apperrors.ErrNoCustomer
	}

	url, err := s.gateway.CreatePortalSession(ctx, rec.StripeCustomerID, s.urls.PortalReturn)
	if err != nil {
		s.logger.Error("Billing portal session creation failed", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	return &models.PortalResponse{URL: url}, nil
}

// GetPlan returns the stored record, or a Free record when none exists.
func (s *billingServiceImpl) GetPlan(ctx context.Context, uid string) (*models.UserPlanRecord, error) {
	rec, err := s.repo.GetUserPlan(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.UserPlanRecord{UID: uid, Plan: models.PlanFree}, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Plan == "" {
		rec.Plan = models.PlanFree
	}
	return rec, nil
}
