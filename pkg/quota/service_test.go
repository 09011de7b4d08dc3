package quota_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/billing/pkg/plan"
	"github.com/studyforge/billing/pkg/quota"
)

func timeNow() time.Time {
	return time.Now().UTC()
}

func fixedResolver(tier plan.Tier, purchased int64) quota.TierResolver {
	return func(context.Context, uuid.UUID) (plan.Tier, int64, error) {
		return tier, purchased, nil
	}
}

func newTestService(t *testing.T, store quota.UsageStore, resolver quota.TierResolver) quota.Service {
	t.Helper()

	plans, packs := plan.Default()
	svc, err := quota.NewService(context.Background(), plan.NewInMemSource(plans, packs), store, resolver)
	require.NoError(t, err)
	return svc
}

func TestServiceCanCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("allows under limit", func(t *testing.T) {
		t.Parallel()

		store := quota.NewMemoryStore()
		svc := newTestService(t, store, fixedResolver(plan.TierPremium, 0))

		assert.NoError(t, svc.CanCreate(ctx, userID, plan.ResourceCourses))
	})

	t.Run("denies at limit", func(t *testing.T) {
		t.Parallel()

		store := quota.NewMemoryStore()
		svc := newTestService(t, store, fixedResolver(plan.TierBasic, 0))

		month := quota.MonthKey(timeNow())
		for range 2 {
			require.NoError(t, store.IncrementCreated(ctx, userID, month, plan.ResourceCourses))
		}

		assert.ErrorIs(t, svc.CanCreate(ctx, userID, plan.ResourceCourses), quota.ErrLimitExceeded)
	})

	t.Run("rejects unknown resource", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, quota.NewMemoryStore(), fixedResolver(plan.TierBasic, 0))
		_, err := svc.Check(ctx, userID, plan.Resource("widgets"))
		assert.ErrorIs(t, err, quota.ErrInvalidResource)
	})
}

func TestServicePremiumLimitBoundary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	store := quota.NewMemoryStore()
	svc := newTestService(t, store, fixedResolver(plan.TierPremium, 0))

	month := quota.MonthKey(timeNow())
	for range 10 {
		require.NoError(t, store.IncrementCreated(ctx, userID, month, plan.ResourceCourses))
	}

	d, err := svc.Check(ctx, userID, plan.ResourceCourses)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(0), d.Remaining)
	assert.NotEmpty(t, d.Message)
}

func TestServiceGetAllUsage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	store := quota.NewMemoryStore()
	svc := newTestService(t, store, fixedResolver(plan.TierPremium, 0))

	month := quota.MonthKey(timeNow())
	for range 5 {
		require.NoError(t, store.IncrementCreated(ctx, userID, month, plan.ResourceCourses))
	}
	require.NoError(t, store.AddMinutesUsed(ctx, userID, month, 2.5))

	usage, err := svc.GetAllUsage(ctx, userID)
	require.NoError(t, err)
	require.Len(t, usage, 4)

	assert.Equal(t, int64(5), usage[plan.ResourceCourses].Current)
	assert.Equal(t, int64(10), usage[plan.ResourceCourses].Limit)
	assert.Equal(t, 50, usage[plan.ResourceCourses].Percentage)

	assert.Equal(t, int64(0), usage[plan.ResourceExercises].Current)
	assert.Equal(t, 0, usage[plan.ResourceExercises].Percentage)

	// Premium has no monthly AI allowance, so any use reads as exhausted.
	assert.Equal(t, int64(0), usage[plan.ResourceAIMinutes].Limit)
	assert.Equal(t, 0, usage[plan.ResourceAIMinutes].Percentage)
}

func TestServiceCanDowngrade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()

	t.Run("usage within target limits", func(t *testing.T) {
		t.Parallel()

		store := quota.NewMemoryStore()
		svc := newTestService(t, store, fixedResolver(plan.TierPro, 0))

		month := quota.MonthKey(timeNow())
		for range 3 {
			require.NoError(t, store.IncrementCreated(ctx, userID, month, plan.ResourceCourses))
		}

		assert.NoError(t, svc.CanDowngrade(ctx, userID, plan.TierPremium))
	})

	t.Run("usage exceeds target limits", func(t *testing.T) {
		t.Parallel()

		store := quota.NewMemoryStore()
		svc := newTestService(t, store, fixedResolver(plan.TierPro, 0))

		month := quota.MonthKey(timeNow())
		for range 15 {
			require.NoError(t, store.IncrementCreated(ctx, userID, month, plan.ResourceCourses))
		}

		assert.ErrorIs(t, svc.CanDowngrade(ctx, userID, plan.TierPremium), quota.ErrDowngradeNotPossible)
	})

	t.Run("minutes never block a downgrade", func(t *testing.T) {
		t.Parallel()

		store := quota.NewMemoryStore()
		svc := newTestService(t, store, fixedResolver(plan.TierPremium, 0))

		month := quota.MonthKey(timeNow())
		require.NoError(t, store.AddMinutesUsed(ctx, userID, month, 500))

		assert.NoError(t, svc.CanDowngrade(ctx, userID, plan.TierBasic))
	})
}
