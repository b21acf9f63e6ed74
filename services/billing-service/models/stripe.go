package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CheckoutModeSubscription is the only checkout mode that changes plans.
const CheckoutModeSubscription = "subscription"

// StatusCheckoutCompleted is stored as stripeStatus right after checkout.
const StatusCheckoutCompleted = "checkout_completed"

// StripeRef is an object reference that Stripe sends either as a bare id or,
// when expanded, as an object carrying "id".
type StripeRef string

func (r *StripeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = StripeRef(strings.TrimSpace(s))
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = StripeRef(strings.TrimSpace(obj.ID))
	return nil
}

func (r StripeRef) String() string { return string(r) }

// UnixTime holds Unix seconds. Numbers and numeric strings are accepted;
// anything unparseable decodes to 0 rather than failing.
type UnixTime int64

func (u *UnixTime) UnmarshalJSON(data []byte) error {
	*u = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*u = UnixTime(n)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		*u = UnixTime(int64(f))
	}
	return nil
}

type CustomerDetails struct {
	Email string `json:"email"`
}

// CheckoutSession is the subset of a Stripe Checkout Session the reconciler reads.
type CheckoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Metadata          map[string]string `json:"metadata"`
	Subscription      StripeRef         `json:"subscription"`
	Customer          StripeRef         `json:"customer"`
	CustomerDetails   *CustomerDetails  `json:"customer_details"`
	CustomerEmail     string            `json:"customer_email"`
	ClientReferenceID string            `json:"client_reference_id"`
}

// UID returns metadata.uid.
func (s *CheckoutSession) UID() string {
	return strings.TrimSpace(s.Metadata["uid"])
}

// Email prefers metadata.email, then customer_details.email, then customer_email.
func (s *CheckoutSession) Email() string {
	if v := strings.TrimSpace(s.Metadata["email"]); v != "" {
		return v
	}
	if s.CustomerDetails != nil {
		if v := strings.TrimSpace(s.CustomerDetails.Email); v != "" {
			return v
		}
	}
	return strings.TrimSpace(s.CustomerEmail)
}

// DeclaredPlan returns the normalised metadata.plan, Free when absent.
func (s *CheckoutSession) DeclaredPlan() Plan {
	if p := NormalizePlan(s.Metadata["plan"]); p != "" {
		return p
	}
	return PlanFree
}

type Price struct {
	ID string `json:"id"`
}

type SubscriptionItem struct {
	Price            Price    `json:"price"`
	CurrentPeriodEnd UnixTime `json:"current_period_end"`
}

type SubscriptionItems struct {
	Data []SubscriptionItem `json:"data"`
}

// Subscription is the subset of a Stripe Subscription the reconciler reads.
type Subscription struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Customer         StripeRef         `json:"customer"`
	Items            SubscriptionItems `json:"items"`
	CurrentPeriodEnd UnixTime          `json:"current_period_end"`
}

// FirstPriceID returns the price id of the first line item, or "".
func (s *Subscription) FirstPriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return strings.TrimSpace(s.Items.Data[0].Price.ID)
}

// PeriodEnd returns current_period_end, falling back to the first item's.
func (s *Subscription) PeriodEnd() int64 {
	if s.CurrentPeriodEnd > 0 {
		return int64(s.CurrentPeriodEnd)
	}
	if len(s.Items.Data) > 0 && s.Items.Data[0].CurrentPeriodEnd > 0 {
		return int64(s.Items.Data[0].CurrentPeriodEnd)
	}
	return 0
}
