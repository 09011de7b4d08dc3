package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds the Stripe credentials.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

type stripeProvider struct {
	webhookSecret string
}

// NewStripeProvider configures the Stripe SDK and returns a BillingProvider
// backed by Stripe Checkout and the Subscriptions API.
func NewStripeProvider(cfg StripeConfig) (BillingProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	stripe.Key = cfg.SecretKey
	return &stripeProvider{webhookSecret: cfg.WebhookSecret}, nil
}

func (p *stripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	mode := stripe.CheckoutSessionModeSubscription
	if req.Mode == CheckoutModePayment {
		mode = stripe.CheckoutSessionModePayment
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		ClientReferenceID: stripe.String(req.CustomerID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata("user_id", req.CustomerID)
	params.AddMetadata("price_id", req.PriceID)

	// Subscription metadata travels with every later webhook for this
	// subscription, so the user can be resolved without a session lookup.
	if mode == stripe.CheckoutSessionModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id":  req.CustomerID,
				"price_id": req.PriceID,
			},
		}
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	if sess.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{
		URL:       sess.URL,
		SessionID: sess.ID,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC(),
	}, nil
}

// ChangePlan swaps the subscription's single price in place. Stripe invoices
// the prorated difference immediately.
func (p *stripeProvider) ChangePlan(ctx context.Context, providerSubID, priceID string) error {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := subscription.Get(providerSubID, getParams)
	if err != nil {
		return err
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return errors.New("stripe subscription has no items")
	}

	params := &stripe.SubscriptionParams{
		ProrationBehavior: stripe.String("always_invoice"),
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(current.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
	}
	params.Context = ctx
	_, err = subscription.Update(providerSubID, params)
	return err
}

func (p *stripeProvider) CancelAtPeriodEnd(ctx context.Context, providerSubID string) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	_, err := subscription.Update(providerSubID, params)
	return err
}

func (p *stripeProvider) CancelNow(ctx context.Context, providerSubID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := subscription.Cancel(providerSubID, params)
	return err
}

func (p *stripeProvider) Reactivate(ctx context.Context, providerSubID string) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(false)}
	params.Context = ctx
	_, err := subscription.Update(providerSubID, params)
	return err
}

func (p *stripeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		return parseCheckoutCompleted(event)
	case "customer.subscription.updated":
		return parseSubscriptionEvent(event, EventSubscriptionUpdated)
	case "customer.subscription.deleted":
		return parseSubscriptionEvent(event, EventSubscriptionDeleted)
	case "invoice.payment_failed":
		return parsePaymentFailed(event)
	default:
		return nil, errors.Join(ErrUnhandledEvent, errors.New(string(event.Type)))
	}
}

func parseCheckoutCompleted(event stripe.Event) (*WebhookEvent, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}

	out := &WebhookEvent{
		ProviderEvent: string(event.Type),
		CustomerID:    sess.ClientReferenceID,
		PriceID:       sess.Metadata["price_id"],
		Status:        StatusActive,
		Raw:           event.Data.Raw,
	}
	if sess.Customer != nil {
		out.ProviderCustomerID = sess.Customer.ID
	}

	if sess.Mode == stripe.CheckoutSessionModePayment {
		out.Type = EventMinutesPurchased
		return out, nil
	}

	out.Type = EventCheckoutCompleted
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out, nil
}

func parseSubscriptionEvent(event stripe.Event, typ EventType) (*WebhookEvent, error) {
	var su stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &su); err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}

	out := &WebhookEvent{
		Type:              typ,
		ProviderEvent:     string(event.Type),
		SubscriptionID:    su.ID,
		CustomerID:        su.Metadata["user_id"],
		Status:            ParseStatus(string(su.Status)),
		CancelAtPeriodEnd: su.CancelAtPeriodEnd,
		Raw:               event.Data.Raw,
	}
	if su.Customer != nil {
		out.ProviderCustomerID = su.Customer.ID
	}
	if su.Items != nil && len(su.Items.Data) > 0 {
		item := su.Items.Data[0]
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
		if item.CurrentPeriodEnd > 0 {
			end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			out.CurrentPeriodEnd = &end
		}
	}
	return out, nil
}

// parsePaymentFailed reads the invoice as raw JSON. The invoice shape keeps
// moving across stripe-go majors; the two fields needed here are stable in
// the payload itself.
func parsePaymentFailed(event stripe.Event) (*WebhookEvent, error) {
	var inv map[string]any
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}

	out := &WebhookEvent{
		Type:          EventPaymentFailed,
		ProviderEvent: string(event.Type),
		Status:        StatusPastDue,
		Raw:           event.Data.Raw,
	}
	out.SubscriptionID = stringField(inv, "subscription")
	if out.SubscriptionID == "" {
		if parent, ok := inv["parent"].(map[string]any); ok {
			if details, ok := parent["subscription_details"].(map[string]any); ok {
				out.SubscriptionID = stringField(details, "subscription")
			}
		}
	}
	return out, nil
}

// stringField extracts a field that Stripe serializes as either a bare ID
// string or an expanded object with an "id" key.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case map[string]any:
		if id, ok := v["id"].(string); ok {
			return id
		}
	}
	return ""
}
