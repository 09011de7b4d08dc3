package billing

import "context"

// BillingProvider is the minimal surface this service needs from a payment
// provider. All payment complexity stays behind hosted checkouts and the
// provider's API; this module only requests changes and mirrors the results
// delivered back through webhooks.
//
// Implementations use the official provider SDKs and absorb provider quirks
// internally (Stripe's metadata fields, Paddle's custom data, etc).
type BillingProvider interface {
	// CreateCheckoutSession opens a hosted checkout for a subscription or a
	// one-shot payment.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// ChangePlan switches an existing subscription to another price in
	// place, with immediate proration. No checkout is involved.
	ChangePlan(ctx context.Context, providerSubID, priceID string) error

	// CancelAtPeriodEnd schedules cancellation for the period boundary; the
	// plan stays usable until then.
	CancelAtPeriodEnd(ctx context.Context, providerSubID string) error

	// CancelNow ends the subscription immediately (downgrade to basic).
	CancelNow(ctx context.Context, providerSubID string) error

	// Reactivate removes a scheduled cancellation.
	Reactivate(ctx context.Context, providerSubID string) error

	// ParseWebhook verifies the signature and normalizes the event.
	// Must reject unverifiable payloads to prevent webhook spoofing.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}
