package models

// EventKind is the closed set of Stripe event types the reconciler acts on.
type EventKind int

const (
	EventUnsupported EventKind = iota
	EventCheckoutCompleted
	EventSubscriptionCreated
	EventSubscriptionUpdated
	EventSubscriptionDeleted
)

const (
	TypeCheckoutSessionCompleted    = "checkout.session.completed"
	TypeCustomerSubscriptionCreated = "customer.subscription.created"
	TypeCustomerSubscriptionUpdated = "customer.subscription.updated"
	TypeCustomerSubscriptionDeleted = "customer.subscription.deleted"
)

// ParseEventKind classifies a Stripe event type string.
func ParseEventKind(eventType string) EventKind {
	switch eventType {
	case TypeCheckoutSessionCompleted:
		return EventCheckoutCompleted
	case TypeCustomerSubscriptionCreated:
		return EventSubscriptionCreated
	case TypeCustomerSubscriptionUpdated:
		return EventSubscriptionUpdated
	case TypeCustomerSubscriptionDeleted:
		return EventSubscriptionDeleted
	default:
		return EventUnsupported
	}
}

// IsSubscriptionLifecycle reports whether k carries a subscription object.
func (k EventKind) IsSubscriptionLifecycle() bool {
	return k == EventSubscriptionCreated || k == EventSubscriptionUpdated || k == EventSubscriptionDeleted
}

func (k EventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return TypeCheckoutSessionCompleted
	case EventSubscriptionCreated:
		return TypeCustomerSubscriptionCreated
	case EventSubscriptionUpdated:
		return TypeCustomerSubscriptionUpdated
	case EventSubscriptionDeleted:
		return TypeCustomerSubscriptionDeleted
	default:
		return "unsupported"
	}
}
