package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds the Paddle credentials.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

type paddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider returns a BillingProvider backed by Paddle Billing.
// Kept as an alternative to Stripe for markets where Paddle acts as the
// merchant of record.
func NewPaddleProvider(cfg PaddleConfig) (BillingProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &paddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (p *paddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	// Custom data comes back on every webhook for this transaction, which
	// is how the user is identified when Paddle confirms the payment.
	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id":  req.CustomerID,
			"price_id": req.PriceID,
			"mode":     string(req.Mode),
		},
	}
	if req.Email != "" {
		txReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	tx, err := p.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, fmt.Errorf("create paddle transaction: %w", err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{
		URL:       *tx.Checkout.URL,
		SessionID: tx.ID,
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}, nil
}

func (p *paddleProvider) ChangePlan(ctx context.Context, providerSubID, priceID string) error {
	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})

	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       providerSubID,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(paddle.ProrationBillingModeProratedImmediately),
	})
	if err != nil {
		return fmt.Errorf("update paddle subscription: %w", err)
	}
	return nil
}

func (p *paddleProvider) CancelAtPeriodEnd(ctx context.Context, providerSubID string) error {
	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerSubID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return fmt.Errorf("cancel paddle subscription: %w", err)
	}
	return nil
}

func (p *paddleProvider) CancelNow(ctx context.Context, providerSubID string) error {
	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerSubID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromImmediately),
	})
	if err != nil {
		return fmt.Errorf("cancel paddle subscription: %w", err)
	}
	return nil
}

// Reactivate removes the scheduled cancellation by nulling the pending
// change on the subscription.
func (p *paddleProvider) Reactivate(ctx context.Context, providerSubID string) error {
	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:  providerSubID,
		ScheduledChange: paddle.NewNullPatchField[*paddle.SubscriptionScheduledChange](),
	})
	if err != nil {
		return fmt.Errorf("reactivate paddle subscription: %w", err)
	}
	return nil
}

func (p *paddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var raw struct {
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}

	switch raw.EventType {
	case "transaction.completed":
		return parsePaddleTransaction(raw.EventType, raw.Data, payload)
	case "subscription.updated":
		return parsePaddleSubscription(raw.EventType, raw.Data, payload, EventSubscriptionUpdated)
	case "subscription.canceled":
		return parsePaddleSubscription(raw.EventType, raw.Data, payload, EventSubscriptionDeleted)
	case "subscription.past_due", "transaction.payment_failed":
		return parsePaddleSubscription(raw.EventType, raw.Data, payload, EventPaymentFailed)
	default:
		return nil, errors.Join(ErrUnhandledEvent, errors.New(raw.EventType))
	}
}

func parsePaddleTransaction(eventType string, data map[string]any, payload []byte) (*WebhookEvent, error) {
	out := &WebhookEvent{
		ProviderEvent: eventType,
		Status:        StatusActive,
		Raw:           payload,
	}
	if subID, ok := data["subscription_id"].(string); ok {
		out.SubscriptionID = subID
	}
	if custID, ok := data["customer_id"].(string); ok {
		out.ProviderCustomerID = custID
	}

	mode := CheckoutModeSubscription
	if custom, ok := data["custom_data"].(map[string]any); ok {
		if userID, ok := custom["user_id"].(string); ok {
			out.CustomerID = userID
		}
		if priceID, ok := custom["price_id"].(string); ok {
			out.PriceID = priceID
		}
		if m, ok := custom["mode"].(string); ok {
			mode = CheckoutMode(m)
		}
	}

	if mode == CheckoutModePayment {
		out.Type = EventMinutesPurchased
	} else {
		out.Type = EventCheckoutCompleted
	}
	return out, nil
}

func parsePaddleSubscription(eventType string, data map[string]any, payload []byte, typ EventType) (*WebhookEvent, error) {
	out := &WebhookEvent{
		Type:          typ,
		ProviderEvent: eventType,
		Raw:           payload,
	}
	if subID, ok := data["id"].(string); ok {
		out.SubscriptionID = subID
	}
	if custID, ok := data["customer_id"].(string); ok {
		out.ProviderCustomerID = custID
	}
	if status, ok := data["status"].(string); ok {
		out.Status = ParseStatus(status)
	}
	if custom, ok := data["custom_data"].(map[string]any); ok {
		if userID, ok := custom["user_id"].(string); ok {
			out.CustomerID = userID
		}
	}
	if items, ok := data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if price, ok := item["price"].(map[string]any); ok {
				if priceID, ok := price["id"].(string); ok {
					out.PriceID = priceID
				}
			}
		}
	}
	if change, ok := data["scheduled_change"].(map[string]any); ok {
		if action, ok := change["action"].(string); ok && action == "cancel" {
			out.CancelAtPeriodEnd = true
		}
	}
	if period, ok := data["current_billing_period"].(map[string]any); ok {
		if ends, ok := period["ends_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, ends); err == nil {
				t = t.UTC()
				out.CurrentPeriodEnd = &t
			}
		}
	}
	return out, nil
}
