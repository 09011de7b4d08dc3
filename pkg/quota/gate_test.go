package quota_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyforge/billing/pkg/plan"
	"github.com/studyforge/billing/pkg/quota"
)

func premiumPlan() plan.Plan {
	return plan.Plan{
		Tier: plan.TierPremium,
		Limits: map[plan.Resource]int64{
			plan.ResourceCourses:   10,
			plan.ResourceExercises: 10,
			plan.ResourceFiches:    10,
			plan.ResourceAIMinutes: 0,
		},
	}
}

func basicPlan() plan.Plan {
	return plan.Plan{
		Tier: plan.TierBasic,
		Limits: map[plan.Resource]int64{
			plan.ResourceCourses:   2,
			plan.ResourceExercises: 2,
			plan.ResourceFiches:    2,
			plan.ResourceAIMinutes: 3,
		},
	}
}

func TestCheckCountables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		p             plan.Plan
		created       int64
		wantAllowed   bool
		wantRemaining int64
	}{
		{"under limit", premiumPlan(), 3, true, 7},
		{"one below limit", premiumPlan(), 9, true, 1},
		{"at limit", premiumPlan(), 10, false, 0},
		{"over limit", premiumPlan(), 12, false, 0},
		{"zero usage", basicPlan(), 0, true, 2},
		{"basic at limit", basicPlan(), 2, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := quota.Check(tt.p, quota.Counters{CoursesCreated: tt.created}, 0, plan.ResourceCourses)
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			assert.Equal(t, tt.wantRemaining, d.Remaining)
			if !tt.wantAllowed {
				assert.NotEmpty(t, d.Message)
			}
		})
	}

	t.Run("unlimited always allows", func(t *testing.T) {
		t.Parallel()

		p := premiumPlan()
		p.Limits[plan.ResourceCourses] = plan.Unlimited
		d := quota.Check(p, quota.Counters{CoursesCreated: 100000}, 0, plan.ResourceCourses)
		assert.True(t, d.Allowed)
	})
}

func TestCheckAIMinutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		allowance      int64
		used           float64
		purchased      int64
		wantAllowed    bool
		wantRemaining  float64
		wantPurchased  float64
	}{
		{"fresh month", 3, 0, 0, true, 3, 0},
		{"partial allowance", 3, 1.5, 0, true, 1.5, 0},
		{"allowance exhausted no pack", 3, 3, 0, false, 0, 0},
		{"allowance exhausted with pack", 3, 3, 30, true, 0, 30},
		{"overflow draws purchased", 3, 10, 30, true, 0, 23},
		{"everything exhausted", 3, 33, 30, false, 0, 0},
		{"no allowance pack only", 0, 12, 60, true, 0, 48},
		{"no allowance no pack", 0, 0, 0, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := basicPlan()
			p.Limits[plan.ResourceAIMinutes] = tt.allowance

			d := quota.Check(p, quota.Counters{AIMinutesUsed: tt.used}, tt.purchased, plan.ResourceAIMinutes)
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			assert.InDelta(t, tt.wantRemaining, d.MinutesRemaining, 1e-9)
			assert.InDelta(t, tt.wantPurchased, d.PurchasedRemaining, 1e-9)
		})
	}
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		used  int64
		limit int64
		want  int
	}{
		{"zero usage", 0, 10, 0},
		{"half", 5, 10, 50},
		{"full", 10, 10, 100},
		{"over limit capped at 100", 25, 10, 100},
		{"zero limit", 5, 0, 0},
		{"negative usage", -3, 10, 0},
		{"unlimited", 5, plan.Unlimited, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, quota.Percentage(tt.used, tt.limit))
		})
	}

	t.Run("bounded for any positive limit", func(t *testing.T) {
		t.Parallel()

		for used := int64(0); used <= 50; used++ {
			for limit := int64(1); limit <= 20; limit++ {
				got := quota.Percentage(used, limit)
				assert.GreaterOrEqual(t, got, 0)
				assert.LessOrEqual(t, got, 100)
			}
		}
	})
}

func TestMinutesPercentage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 50, quota.MinutesPercentage(1.5, 3))
	assert.Equal(t, 100, quota.MinutesPercentage(99.5, 3))
	assert.Equal(t, 0, quota.MinutesPercentage(1.5, 0))
	assert.Equal(t, -1, quota.MinutesPercentage(1.5, plan.Unlimited))
}
