package models

// CheckoutRequest is the body of POST /api/stripe/checkout.
type CheckoutRequest struct {
	Plan  string `json:"plan" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

type CheckoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PortalResponse struct {
	URL string `json:"url"`
}

// WebhookResult is the 200 body of the webhook endpoint.
type WebhookResult struct {
	OK      bool `json:"ok"`
	Ignored bool `json:"ignored,omitempty"`
}

// PlanChangedEvent is published to SNS after a user record changes.
type PlanChangedEvent struct {
	Type           string `json:"type"`
	UID            string `json:"uid"`
	Plan           Plan   `json:"plan"`
	Status         string `json:"status,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	EventType      string `json:"eventType"`
	Timestamp      string `json:"timestamp"`
}

const PlanChangedEventType = "plan_changed"
