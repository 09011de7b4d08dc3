package plan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/billing/pkg/plan"
)

const catalogYAML = `
plans:
  - tier: basic
    name: Basic
    interval: none
    limits: {courses: 2, exercises: 2, fiches: 2, ai_minutes: 3}
    max_days_per_course: 10
  - tier: premium
    name: Premium
    stripe_price_id: price_premium_monthly
    interval: monthly
    price: {amount: 990, currency: EUR}
    limits: {courses: 10, exercises: 10, fiches: 10, ai_minutes: 0}
    max_days_per_course: 10
packs:
  - id: pack_60
    minutes: 60
    stripe_price_id: price_minutes_60
    price: {amount: 890, currency: EUR}
`

func TestFileSource(t *testing.T) {
	t.Parallel()

	t.Run("loads catalog", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))

		c, err := plan.NewFileSource(path).Load(context.Background())
		require.NoError(t, err)

		premium, err := c.Plan(plan.TierPremium)
		require.NoError(t, err)
		assert.Equal(t, "price_premium_monthly", premium.StripePriceID)
		assert.Equal(t, int64(990), premium.Price.Amount)
		assert.Equal(t, 10, premium.MaxDaysPerCourse)

		pack, err := c.Pack("pack_60")
		require.NoError(t, err)
		assert.Equal(t, int64(60), pack.Minutes)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := plan.NewFileSource("/does/not/exist.yaml").Load(context.Background())
		assert.ErrorIs(t, err, plan.ErrFailedToLoad)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte("plans: ["), 0o644))

		_, err := plan.NewFileSource(path).Load(context.Background())
		assert.ErrorIs(t, err, plan.ErrFailedToLoad)
	})

	t.Run("invalid catalog rejected", func(t *testing.T) {
		t.Parallel()

		// Paid tier without a price ID fails catalog validation.
		path := filepath.Join(t.TempDir(), "plans.yaml")
		broken := `
plans:
  - tier: premium
    name: Premium
    interval: monthly
    limits: {courses: 10, exercises: 10, fiches: 10, ai_minutes: 0}
`
		require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

		_, err := plan.NewFileSource(path).Load(context.Background())
		assert.ErrorIs(t, err, plan.ErrInvalidCatalog)
	})
}

func TestInMemSource(t *testing.T) {
	t.Parallel()

	plans, packs := plan.Default()
	c, err := plan.NewInMemSource(plans, packs).Load(context.Background())
	require.NoError(t, err)

	_, err = c.Plan(plan.TierPro)
	assert.NoError(t, err)

	assert.Panics(t, func() { plan.NewInMemSource(nil, nil) })
}
