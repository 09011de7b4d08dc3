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

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userID := uuid.New()
	store := quota.NewMemoryStore()

	t.Run("zero counters for unknown month", func(t *testing.T) {
		c, err := store.Counters(ctx, userID, "2026-01")
		require.NoError(t, err)
		assert.Zero(t, c.CoursesCreated)
		assert.Zero(t, c.AIMinutesUsed)
	})

	t.Run("increments accumulate per month", func(t *testing.T) {
		require.NoError(t, store.IncrementCreated(ctx, userID, "2026-02", plan.ResourceCourses))
		require.NoError(t, store.IncrementCreated(ctx, userID, "2026-02", plan.ResourceCourses))
		require.NoError(t, store.IncrementCreated(ctx, userID, "2026-02", plan.ResourceFiches))
		require.NoError(t, store.AddMinutesUsed(ctx, userID, "2026-02", 1.25))

		c, err := store.Counters(ctx, userID, "2026-02")
		require.NoError(t, err)
		assert.Equal(t, int64(2), c.CoursesCreated)
		assert.Equal(t, int64(1), c.FichesCreated)
		assert.InDelta(t, 1.25, c.AIMinutesUsed, 1e-9)

		// A new month starts from zero; nothing carries over.
		next, err := store.Counters(ctx, userID, "2026-03")
		require.NoError(t, err)
		assert.Zero(t, next.CoursesCreated)
	})
}

func TestMonthKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2026-08", quota.MonthKey(time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)))

	// Local times convert to UTC before keying, so month boundaries are
	// consistent across instances.
	loc := time.FixedZone("UTC+5", 5*3600)
	assert.Equal(t, "2026-07", quota.MonthKey(time.Date(2026, 8, 1, 2, 0, 0, 0, loc)))
}
