package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/studyforge/billing/pkg/plan"
)

// HandleWebhook verifies and applies a provider event. The provider is the
// system of record: whatever state it reports overwrites the local record,
// even when the transition was not initiated here.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, ErrUnhandledEvent) {
			// Events outside our scope are acknowledged so the provider
			// stops retrying them.
			s.log.DebugContext(ctx, "webhook event ignored", "error", err)
			return nil
		}
		return err
	}

	switch event.Type {
	case EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, event)
	case EventMinutesPurchased:
		return s.applyMinutesPurchased(ctx, event)
	case EventSubscriptionUpdated:
		return s.applySubscriptionUpdated(ctx, event)
	case EventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ctx, event)
	case EventPaymentFailed:
		return s.applyPaymentFailed(ctx, event)
	default:
		s.log.WarnContext(ctx, "webhook event type not recognized", "type", event.Type, "provider_event", event.ProviderEvent)
		return nil
	}
}

func (s *service) userFromEvent(event *WebhookEvent) (uuid.UUID, error) {
	userID, err := uuid.Parse(event.CustomerID)
	if err != nil {
		return uuid.Nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	return userID, nil
}

// subFromEvent resolves the local record for a subscription-scoped event,
// preferring the provider subscription ID over the customer reference.
func (s *service) subFromEvent(ctx context.Context, event *WebhookEvent) (*Subscription, error) {
	if event.SubscriptionID != "" {
		sub, err := s.store.GetByProviderSubID(ctx, event.SubscriptionID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, ErrSubscriptionNotFound) {
			return nil, err
		}
	}

	userID, err := s.userFromEvent(event)
	if err != nil {
		return nil, err
	}
	return s.getOrDefault(ctx, userID)
}

func (s *service) applyCheckoutCompleted(ctx context.Context, event *WebhookEvent) error {
	userID, err := s.userFromEvent(event)
	if err != nil {
		return err
	}

	tier, ok := s.catalog.TierByPriceID(event.PriceID)
	if !ok {
		return fmt.Errorf("%w: price %q", plan.ErrPlanNotFound, event.PriceID)
	}

	sub, err := s.getOrDefault(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	sub.Tier = tier
	sub.Status = StatusActive
	sub.ProviderSubID = event.SubscriptionID
	sub.ProviderCustomerID = event.ProviderCustomerID
	sub.CurrentPeriodEnd = event.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = false
	sub.CancelledAt = nil
	sub.UpdatedAt = now

	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "checkout completed", "user_id", userID, "tier", tier, "provider_sub_id", event.SubscriptionID)
	return nil
}

func (s *service) applyMinutesPurchased(ctx context.Context, event *WebhookEvent) error {
	userID, err := s.userFromEvent(event)
	if err != nil {
		return err
	}

	pack, ok := s.catalog.PackByPriceID(event.PriceID)
	if !ok {
		return fmt.Errorf("%w: price %q", plan.ErrPackNotFound, event.PriceID)
	}

	sub, err := s.getOrDefault(ctx, userID)
	if err != nil {
		return err
	}

	sub.AIMinutesPurchased += pack.Minutes
	if event.ProviderCustomerID != "" {
		sub.ProviderCustomerID = event.ProviderCustomerID
	}
	sub.UpdatedAt = s.now()

	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "minute pack credited", "user_id", userID, "pack", pack.ID, "minutes", pack.Minutes)
	return nil
}

func (s *service) applySubscriptionUpdated(ctx context.Context, event *WebhookEvent) error {
	sub, err := s.subFromEvent(ctx, event)
	if err != nil {
		return err
	}

	now := s.now()
	if event.PriceID != "" {
		if tier, ok := s.catalog.TierByPriceID(event.PriceID); ok {
			sub.Tier = tier
		} else {
			s.log.WarnContext(ctx, "subscription price not in catalog", "price_id", event.PriceID, "user_id", sub.UserID)
		}
	}
	if event.Status != "" {
		sub.Status = event.Status
	}
	if event.SubscriptionID != "" {
		sub.ProviderSubID = event.SubscriptionID
	}
	if event.ProviderCustomerID != "" {
		sub.ProviderCustomerID = event.ProviderCustomerID
	}
	if event.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = event.CurrentPeriodEnd
	}
	if event.CancelAtPeriodEnd && !sub.CancelAtPeriodEnd {
		sub.CancelledAt = &now
	}
	if !event.CancelAtPeriodEnd {
		sub.CancelledAt = nil
	}
	sub.CancelAtPeriodEnd = event.CancelAtPeriodEnd
	sub.UpdatedAt = now

	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "subscription synced", "user_id", sub.UserID, "tier", sub.Tier, "status", sub.Status, "cancel_at_period_end", sub.CancelAtPeriodEnd)
	return nil
}

// applySubscriptionDeleted reverts the user to the implicit basic plan.
// Purchased AI minutes survive; only the paid entitlement ends.
func (s *service) applySubscriptionDeleted(ctx context.Context, event *WebhookEvent) error {
	sub, err := s.subFromEvent(ctx, event)
	if err != nil {
		return err
	}

	now := s.now()
	sub.Tier = plan.TierBasic
	sub.Status = StatusCanceled
	sub.ProviderSubID = ""
	sub.CurrentPeriodEnd = nil
	sub.CancelAtPeriodEnd = false
	sub.CancelledAt = &now
	sub.UpdatedAt = now

	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "subscription ended", "user_id", sub.UserID)
	s.notifier.SubscriptionEnded(ctx, sub.UserID)
	return nil
}

func (s *service) applyPaymentFailed(ctx context.Context, event *WebhookEvent) error {
	sub, err := s.subFromEvent(ctx, event)
	if err != nil {
		return err
	}
	if !sub.OnPaidPlan() {
		// A charge failure for someone with no paid record carries nothing
		// to sync; the provider handles retries on its side.
		s.log.WarnContext(ctx, "payment failure for user without paid plan", "user_id", sub.UserID)
		return nil
	}

	sub.Status = StatusPastDue
	sub.UpdatedAt = s.now()

	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "subscription past due", "user_id", sub.UserID)
	s.notifier.PaymentFailed(ctx, sub.UserID)
	return nil
}
