package billing

import (
	"time"

	"github.com/studyforge/billing/pkg/quota"
)

// Status represents the provider-reported state of a subscription.
type Status string

const (
	StatusActive     Status = "active"
	StatusTrialing   Status = "trialing"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
)

// ParseStatus maps a provider status string onto the closed Status set.
// Unknown provider statuses degrade to incomplete rather than leaking
// through as free-form strings.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusIncomplete:
		return Status(s)
	case "cancelled":
		return StatusCanceled
	}
	return StatusIncomplete
}

// Snapshot is the read model the UI consumes: the subscription plus the
// current month's usage counters.
type Snapshot struct {
	Subscription *Subscription  `json:"subscription"`
	Usage        quota.Counters `json:"usage"`
}

// PlanChange is the outcome of a plan-change request. When CheckoutRequired
// is true the caller must navigate the user to RedirectURL; otherwise the
// change was applied in place with immediate proration and the caller should
// re-fetch state.
type PlanChange struct {
	CheckoutRequired bool   `json:"checkout_required"`
	RedirectURL      string `json:"redirect_url,omitempty"`
}

// CheckoutOptions carries the caller-supplied parts of a checkout session.
type CheckoutOptions struct {
	Email      string // pre-fill billing email if known
	SuccessURL string // redirect after successful payment
	CancelURL  string // redirect if the customer abandons checkout
}

// CheckoutMode distinguishes recurring subscriptions from one-shot payments.
type CheckoutMode string

const (
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModePayment      CheckoutMode = "payment"
)

// CheckoutRequest contains everything a provider needs to open a hosted
// checkout session.
type CheckoutRequest struct {
	PriceID    string
	Mode       CheckoutMode
	CustomerID string // our user ID, echoed back in webhooks
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession represents a hosted checkout the user is redirected to.
type CheckoutSession struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// EventType is the normalized billing event type. Each provider maps its
// own event names onto these.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventMinutesPurchased    EventType = "minutes_purchased"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventPaymentFailed       EventType = "payment_failed"
)

// WebhookEvent is a normalized provider webhook.
type WebhookEvent struct {
	Type               EventType
	ProviderEvent      string // original provider event name
	SubscriptionID     string // provider's subscription ID
	CustomerID         string // our user ID echoed from checkout metadata
	ProviderCustomerID string
	Status             Status
	PriceID            string // price the event refers to
	CancelAtPeriodEnd  bool
	CurrentPeriodEnd   *time.Time
	Raw                []byte
}
