package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/billing/pkg/billing"
	"github.com/studyforge/billing/pkg/plan"
)

// dispatch installs the event on the fake provider and runs HandleWebhook.
func dispatch(t *testing.T, env *testEnv, event *billing.WebhookEvent) error {
	t.Helper()

	env.provider.parseWebhook = func(context.Context, []byte, string) (*billing.WebhookEvent, error) {
		return event, nil
	}
	return env.svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
}

func TestHandleWebhookCheckoutCompleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()
	periodEnd := time.Now().UTC().Add(30 * 24 * time.Hour)

	err := dispatch(t, env, &billing.WebhookEvent{
		Type:               billing.EventCheckoutCompleted,
		CustomerID:         userID.String(),
		ProviderCustomerID: "cus_42",
		SubscriptionID:     "sub_42",
		PriceID:            "price_premium_monthly",
		CurrentPeriodEnd:   &periodEnd,
	})
	require.NoError(t, err)

	sub, err := env.store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, plan.TierPremium, sub.Tier)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Equal(t, "sub_42", sub.ProviderSubID)
	assert.Equal(t, "cus_42", sub.ProviderCustomerID)
	assert.NoError(t, sub.Validate())
}

func TestHandleWebhookMinutesPurchased(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("credits exactly the pack size", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()

		err := dispatch(t, env, &billing.WebhookEvent{
			Type:       billing.EventMinutesPurchased,
			CustomerID: userID.String(),
			PriceID:    "price_minutes_60",
		})
		require.NoError(t, err)

		sub, err := env.store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(60), sub.AIMinutesPurchased)
		assert.Equal(t, plan.TierBasic, sub.Tier)
		assert.NoError(t, sub.Validate())
	})

	t.Run("balance only ever grows", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()

		for _, priceID := range []string{"price_minutes_30", "price_minutes_120"} {
			require.NoError(t, dispatch(t, env, &billing.WebhookEvent{
				Type:       billing.EventMinutesPurchased,
				CustomerID: userID.String(),
				PriceID:    priceID,
			}))
		}

		sub, err := env.store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(150), sub.AIMinutesPurchased)
	})

	t.Run("unknown price rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		err := dispatch(t, env, &billing.WebhookEvent{
			Type:       billing.EventMinutesPurchased,
			CustomerID: uuid.NewString(),
			PriceID:    "price_unknown",
		})
		assert.ErrorIs(t, err, plan.ErrPackNotFound)
	})
}

func TestHandleWebhookSubscriptionUpdated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("cancellation scheduled sets only the flag", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		seeded := seedPaid(t, env, userID, plan.TierPremium)

		err := dispatch(t, env, &billing.WebhookEvent{
			Type:              billing.EventSubscriptionUpdated,
			SubscriptionID:    seeded.ProviderSubID,
			Status:            billing.StatusActive,
			PriceID:           "price_premium_monthly",
			CancelAtPeriodEnd: true,
			CurrentPeriodEnd:  seeded.CurrentPeriodEnd,
		})
		require.NoError(t, err)

		sub, err := env.store.Get(ctx, userID)
		require.NoError(t, err)
		assert.True(t, sub.CancelAtPeriodEnd)
		assert.Equal(t, plan.TierPremium, sub.Tier)
		assert.Equal(t, seeded.CurrentPeriodEnd.Unix(), sub.CurrentPeriodEnd.Unix())
		assert.NotNil(t, sub.CancelledAt)
		assert.NoError(t, sub.Validate())
	})

	t.Run("reactivation clears the flag", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		seeded := seedPaid(t, env, userID, plan.TierPremium)
		seeded.CancelAtPeriodEnd = true
		now := time.Now().UTC()
		seeded.CancelledAt = &now
		require.NoError(t, env.store.Save(ctx, seeded))

		err := dispatch(t, env, &billing.WebhookEvent{
			Type:              billing.EventSubscriptionUpdated,
			SubscriptionID:    seeded.ProviderSubID,
			Status:            billing.StatusActive,
			PriceID:           "price_premium_monthly",
			CancelAtPeriodEnd: false,
			CurrentPeriodEnd:  seeded.CurrentPeriodEnd,
		})
		require.NoError(t, err)

		sub, err := env.store.Get(ctx, userID)
		require.NoError(t, err)
		assert.False(t, sub.CancelAtPeriodEnd)
		assert.Nil(t, sub.CancelledAt)
		assert.Equal(t, billing.StatusActive, sub.Status)
	})

	t.Run("plan switch confirmed by provider", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		seeded := seedPaid(t, env, userID, plan.TierPremium)

		err := dispatch(t, env, &billing.WebhookEvent{
			Type:             billing.EventSubscriptionUpdated,
			SubscriptionID:   seeded.ProviderSubID,
			Status:           billing.StatusActive,
			PriceID:          "price_pro_monthly",
			CurrentPeriodEnd: seeded.CurrentPeriodEnd,
		})
		require.NoError(t, err)

		sub, err := env.store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, plan.TierPro, sub.Tier)
	})
}

func TestHandleWebhookSubscriptionDeleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	userID := uuid.New()
	seeded := seedPaid(t, env, userID, plan.TierPro)
	seeded.AIMinutesPurchased = 45
	require.NoError(t, env.store.Save(ctx, seeded))
	env.notifier.On("SubscriptionEnded", mock.Anything, userID).Once()

	err := dispatch(t, env, &billing.WebhookEvent{
		Type:           billing.EventSubscriptionDeleted,
		SubscriptionID: seeded.ProviderSubID,
		Status:         billing.StatusCanceled,
	})
	require.NoError(t, err)

	sub, err := env.store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, plan.TierBasic, sub.Tier)
	assert.Empty(t, sub.ProviderSubID)
	assert.False(t, sub.CancelAtPeriodEnd)
	assert.Nil(t, sub.CurrentPeriodEnd)
	assert.NotNil(t, sub.CancelledAt)

	// Purchased minutes survive the downgrade.
	assert.Equal(t, int64(45), sub.AIMinutesPurchased)
	assert.NoError(t, sub.Validate())
	env.notifier.AssertExpectations(t)
}

func TestHandleWebhookPaymentFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("marks paid subscription past due", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		userID := uuid.New()
		seeded := seedPaid(t, env, userID, plan.TierPremium)
		env.notifier.On("PaymentFailed", mock.Anything, userID).Once()

		err := dispatch(t, env, &billing.WebhookEvent{
			Type:           billing.EventPaymentFailed,
			SubscriptionID: seeded.ProviderSubID,
		})
		require.NoError(t, err)

		sub, err := env.store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusPastDue, sub.Status)
		assert.Equal(t, plan.TierPremium, sub.Tier)
		env.notifier.AssertExpectations(t)
	})

	t.Run("ignored for users without a paid plan", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		err := dispatch(t, env, &billing.WebhookEvent{
			Type:       billing.EventPaymentFailed,
			CustomerID: uuid.NewString(),
		})
		assert.NoError(t, err)
	})
}

func TestHandleWebhookUnhandledEvent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.provider.parseWebhook = func(context.Context, []byte, string) (*billing.WebhookEvent, error) {
		return nil, billing.ErrUnhandledEvent
	}

	// Unhandled events are acknowledged so the provider stops retrying.
	assert.NoError(t, env.svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
}

func TestHandleWebhookVerificationFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.provider.parseWebhook = func(context.Context, []byte, string) (*billing.WebhookEvent, error) {
		return nil, billing.ErrWebhookVerificationFailed
	}

	err := env.svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
	assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
}
