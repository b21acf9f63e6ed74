package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
)

// CheckoutParams describes a subscription checkout for one user.
type CheckoutParams struct {
	UID        string
	Email      string
	Plan       models.Plan
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// StripeGateway is the outbound Stripe API surface used by BillingService.
type StripeGateway interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*models.CheckoutResponse, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type stripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a gateway for secretKey. An empty key yields a
// gateway whose calls fail with ErrStripeNotConfigured.
func NewStripeGateway(secretKey string) StripeGateway {
	if secretKey == "" {
		return &stripeGateway{}
	}
	return &stripeGateway{api: client.New(secretKey, nil)}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*models.CheckoutResponse, error) {
	if g.api == nil {
		return nil, apperrors.ErrStripeNotConfigured
	}

	metadata := map[string]string{"uid": p.UID, "plan": string(p.Plan)}
	if p.Email != "" {
		metadata["email"] = p.Email
	}

	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(p.UID),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(p.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &models.CheckoutResponse{ID: sess.ID, URL: sess.URL}, nil
}

func (g *stripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if g.api == nil {
		return "", apperrors.ErrStripeNotConfigured
	}

	sess, err := g.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("stripe billing portal session: %w", err)
	}
	return sess.URL, nil
}
