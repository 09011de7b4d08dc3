package billing

import "errors"

var (
	// ErrStateUnavailable wraps failures to load the subscription or usage
	// snapshot. Callers show a retry-capable loading state; nothing here
	// retries automatically.
	ErrStateUnavailable = errors.New("subscription state unavailable")

	// ErrPaymentInit wraps checkout/session creation failures. Surfaced as a
	// dismissible notice; the user retries manually.
	ErrPaymentInit = errors.New("failed to initiate payment")

	ErrCancelFailed         = errors.New("failed to cancel subscription")
	ErrReactivateFailed     = errors.New("failed to reactivate subscription")
	ErrNoActiveSubscription = errors.New("no active paid subscription")

	ErrAlreadyOnPlan     = errors.New("already subscribed to this plan")
	ErrChangeInProgress  = errors.New("another plan change is already in flight")
	ErrInvalidTransition = errors.New("plan transition not allowed from current state")

	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvariantViolated    = errors.New("subscription record violates invariants")

	// Provider errors
	ErrMissingAPIKey             = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret      = errors.New("billing provider webhook secret is required")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
	ErrNoCheckoutURL             = errors.New("no checkout URL returned from provider")
	ErrUnhandledEvent            = errors.New("unhandled provider event")
)
