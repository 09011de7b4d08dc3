package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/billing/pkg/plan"
)

func paidSub(tier plan.Tier) *Subscription {
	end := time.Now().UTC().Add(30 * 24 * time.Hour)
	return &Subscription{
		UserID:             uuid.New(),
		Tier:               tier,
		Status:             StatusActive,
		ProviderSubID:      "sub_123",
		ProviderCustomerID: "cus_123",
		CurrentPeriodEnd:   &end,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
}

func TestSubscriptionValidate(t *testing.T) {
	t.Parallel()

	t.Run("implicit basic is valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, NewBasic(uuid.New()).Validate())
	})

	t.Run("paid subscription is valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, paidSub(plan.TierPremium).Validate())
	})

	t.Run("basic with provider sub id", func(t *testing.T) {
		t.Parallel()

		sub := NewBasic(uuid.New())
		sub.ProviderSubID = "sub_123"
		assert.ErrorIs(t, sub.Validate(), ErrInvariantViolated)
	})

	t.Run("paid without provider sub id", func(t *testing.T) {
		t.Parallel()

		sub := paidSub(plan.TierPro)
		sub.ProviderSubID = ""
		assert.ErrorIs(t, sub.Validate(), ErrInvariantViolated)
	})

	t.Run("cancel scheduled on basic", func(t *testing.T) {
		t.Parallel()

		sub := NewBasic(uuid.New())
		sub.CancelAtPeriodEnd = true
		assert.ErrorIs(t, sub.Validate(), ErrInvariantViolated)
	})

	t.Run("cancel scheduled without period end", func(t *testing.T) {
		t.Parallel()

		sub := paidSub(plan.TierPremium)
		sub.CancelAtPeriodEnd = true
		sub.CurrentPeriodEnd = nil
		assert.ErrorIs(t, sub.Validate(), ErrInvariantViolated)
	})

	t.Run("negative purchased minutes", func(t *testing.T) {
		t.Parallel()

		sub := paidSub(plan.TierPremium)
		sub.AIMinutesPurchased = -1
		assert.ErrorIs(t, sub.Validate(), ErrInvariantViolated)
	})

	t.Run("unknown tier", func(t *testing.T) {
		t.Parallel()

		sub := paidSub(plan.TierPremium)
		sub.Tier = "enterprise"
		assert.ErrorIs(t, sub.Validate(), ErrInvariantViolated)
	})
}

func TestSubscriptionStateHelpers(t *testing.T) {
	t.Parallel()

	basic := NewBasic(uuid.New())
	assert.False(t, basic.OnPaidPlan())
	assert.True(t, basic.IsActive())

	sub := paidSub(plan.TierPremium)
	require.True(t, sub.OnPaidPlan())

	sub.CancelAtPeriodEnd = true
	assert.True(t, sub.IsCancelScheduled())
	assert.True(t, sub.IsActive())

	sub.Status = StatusPastDue
	assert.False(t, sub.IsActive())
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("state derivation", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, stateBasic, stateOf(NewBasic(uuid.New())))

		sub := paidSub(plan.TierPremium)
		assert.Equal(t, statePaidActive, stateOf(sub))

		sub.CancelAtPeriodEnd = true
		assert.Equal(t, stateCancelScheduled, stateOf(sub))

		sub.Status = StatusPastDue
		assert.Equal(t, statePastDue, stateOf(sub))
	})

	t.Run("valid transitions", func(t *testing.T) {
		t.Parallel()

		assert.True(t, canFire(stateBasic, eventUpgrade))
		assert.True(t, canFire(statePaidActive, eventChangePlan))
		assert.True(t, canFire(statePaidActive, eventCancel))
		assert.True(t, canFire(stateCancelScheduled, eventReactivate))
		assert.True(t, canFire(stateCancelScheduled, eventDowngradeBasic))
		assert.True(t, canFire(statePastDue, eventChangePlan))
	})

	t.Run("invalid transitions", func(t *testing.T) {
		t.Parallel()

		assert.False(t, canFire(stateBasic, eventCancel))
		assert.False(t, canFire(stateBasic, eventReactivate))
		assert.False(t, canFire(statePaidActive, eventUpgrade))
		assert.False(t, canFire(statePaidActive, eventReactivate))
		assert.False(t, canFire(statePastDue, eventUpgrade))
	})

	t.Run("plan change classification", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, eventUpgrade, planChangeEvent(plan.TierBasic, plan.TierPremium))
		assert.Equal(t, eventDowngradeBasic, planChangeEvent(plan.TierPro, plan.TierBasic))
		assert.Equal(t, eventChangePlan, planChangeEvent(plan.TierPremium, plan.TierPro))
		assert.Equal(t, eventChangePlan, planChangeEvent(plan.TierPro, plan.TierPremium))
	})
}
