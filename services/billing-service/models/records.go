package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	CollectionUsers         = "users"
	CollectionSubscriptions = "stripeSubscriptions"
)

// UserPlanRecord field names.
const (
	FieldPlan                   = "plan"
	FieldEmail                  = "email"
	FieldStripeCustomerID       = "stripeCustomerId"
	FieldStripeSubscriptionID   = "stripeSubscriptionId"
	FieldStripePriceID          = "stripePriceId"
	FieldStripeStatus           = "stripeStatus"
	FieldStripeCurrentPeriodEnd = "stripeCurrentPeriodEnd"
	FieldUpdatedAt              = "updatedAt"
)

// SubscriptionMapEntry field names.
const (
	FieldUID        = "uid"
	FieldCustomerID = "customerId"
)

// UserPlanRecord is the billing state of one user, keyed by uid.
type UserPlanRecord struct {
	UID                    string    `json:"uid"`
	Plan                   Plan      `json:"plan"`
	Email                  string    `json:"email,omitempty"`
	StripeCustomerID       string    `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID   string    `json:"stripeSubscriptionId,omitempty"`
	StripePriceID          string    `json:"stripePriceId,omitempty"`
	StripeStatus           string    `json:"stripeStatus,omitempty"`
	StripeCurrentPeriodEnd int64     `json:"stripeCurrentPeriodEnd,omitempty"`
	UpdatedAt              time.Time `json:"updatedAt,omitzero"`
}

// SubscriptionMapEntry resolves a Stripe subscription id to a uid.
type SubscriptionMapEntry struct {
	SubscriptionID string    `json:"subscriptionId"`
	UID            string    `json:"uid"`
	Plan           Plan      `json:"plan"`
	CustomerID     string    `json:"customerId,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitzero"`
}

// UserPlanPatch is a merge patch for a UserPlanRecord. Zero values are left
// out of Fields so stored values survive.
type UserPlanPatch struct {
	Plan             Plan
	Email            string
	CustomerID       string
	SubscriptionID   string
	PriceID          string
	Status           string
	CurrentPeriodEnd int64
	UpdatedAt        time.Time
}

func (p UserPlanPatch) Fields() map[string]any {
	f := map[string]any{}
	putString(f, FieldPlan, string(p.Plan))
	putString(f, FieldEmail, p.Email)
	putString(f, FieldStripeCustomerID, p.CustomerID)
	putString(f, FieldStripeSubscriptionID, p.SubscriptionID)
	putString(f, FieldStripePriceID, p.PriceID)
	putString(f, FieldStripeStatus, p.Status)
	if p.CurrentPeriodEnd > 0 {
		f[FieldStripeCurrentPeriodEnd] = p.CurrentPeriodEnd
	}
	putTime(f, FieldUpdatedAt, p.UpdatedAt)
	return f
}

// SubscriptionMapPatch is a merge patch for a SubscriptionMapEntry.
type SubscriptionMapPatch struct {
	UID        string
	Plan       Plan
	CustomerID string
	UpdatedAt  time.Time
}

func (p SubscriptionMapPatch) Fields() map[string]any {
	f := map[string]any{}
	putString(f, FieldUID, p.UID)
	putString(f, FieldPlan, string(p.Plan))
	putString(f, FieldCustomerID, p.CustomerID)
	putTime(f, FieldUpdatedAt, p.UpdatedAt)
	return f
}

func putString(f map[string]any, key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		f[key] = v
	}
}

func putTime(f map[string]any, key string, t time.Time) {
	if !t.IsZero() {
		f[key] = t.UTC().Format(time.RFC3339Nano)
	}
}

// UserPlanRecordFromFields decodes a stored document.
func UserPlanRecordFromFields(uid string, f map[string]any) UserPlanRecord {
	return UserPlanRecord{
		UID:                    uid,
		Plan:                   NormalizePlan(StringField(f, FieldPlan)),
		Email:                  StringField(f, FieldEmail),
		StripeCustomerID:       StringField(f, FieldStripeCustomerID),
		StripeSubscriptionID:   StringField(f, FieldStripeSubscriptionID),
		StripePriceID:          StringField(f, FieldStripePriceID),
		StripeStatus:           StringField(f, FieldStripeStatus),
		StripeCurrentPeriodEnd: Int64Field(f, FieldStripeCurrentPeriodEnd),
		UpdatedAt:              TimeField(f, FieldUpdatedAt),
	}
}

// SubscriptionMapEntryFromFields decodes a stored document.
func SubscriptionMapEntryFromFields(subscriptionID string, f map[string]any) SubscriptionMapEntry {
	return SubscriptionMapEntry{
		SubscriptionID: subscriptionID,
		UID:            StringField(f, FieldUID),
		Plan:           NormalizePlan(StringField(f, FieldPlan)),
		CustomerID:     StringField(f, FieldCustomerID),
		UpdatedAt:      TimeField(f, FieldUpdatedAt),
	}
}

// StringField reads a string value; non-strings yield "".
func StringField(f map[string]any, key string) string {
	s, _ := f[key].(string)
	return strings.TrimSpace(s)
}

// Int64Field reads an integer that a backend may have stored as any numeric
// type or as a decimal string.
func Int64Field(f map[string]any, key string) int64 {
	switch v := f[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	default:
		return 0
	}
}

// TimeField reads a timestamp stored as time.Time or an RFC3339 string.
func TimeField(f map[string]any, key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	default:
		return time.Time{}
	}
}
