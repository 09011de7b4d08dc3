package quota

import (
	"fmt"

	"github.com/studyforge/billing/pkg/plan"
)

// Check decides whether one more unit of a resource may be consumed, given
// already-fetched counters. Pure computation: it never touches the network.
//
// For ai_minutes the monthly allowance is drawn down first; once exhausted,
// consumption continues against the purchased balance. The purchased balance
// itself is only ever reduced by this derivation, never mutated.
func Check(p plan.Plan, c Counters, purchasedMinutes int64, res plan.Resource) Decision {
	d := Decision{Resource: res}

	if res == plan.ResourceAIMinutes {
		allowance := p.Limit(res)
		if allowance == plan.Unlimited {
			d.Allowed = true
			d.MinutesRemaining = float64(allowance)
			return d
		}

		used := c.AIMinutesUsed
		if used < 0 {
			used = 0
		}
		d.MinutesRemaining = max(0, float64(allowance)-used)

		// Overflow past the allowance is what the purchased balance absorbs.
		overflow := max(0, used-float64(allowance))
		d.PurchasedRemaining = max(0, float64(purchasedMinutes)-overflow)

		d.Allowed = d.MinutesRemaining > 0 || d.PurchasedRemaining > 0
		if !d.Allowed {
			d.Message = "No AI minutes left this month. Buy a minute pack or upgrade your plan."
		}
		return d
	}

	limit := p.Limit(res)
	if limit == plan.Unlimited {
		d.Allowed = true
		d.Remaining = limit
		return d
	}

	used := c.Created(res)
	d.Remaining = max(0, limit-used)
	d.Allowed = d.Remaining > 0
	if !d.Allowed {
		d.Message = fmt.Sprintf("Monthly %s limit reached (%d of %d used). Upgrade your plan to create more.", res, used, limit)
	}
	return d
}

// Percentage returns usage as a percentage capped at 100.
// A zero or missing limit yields 0 to avoid dividing by zero, and Unlimited
// yields -1 so dashboards can render "unlimited" instead of a bar.
func Percentage(used, limit int64) int {
	if limit == plan.Unlimited {
		return -1
	}
	if limit <= 0 || used <= 0 {
		return 0
	}
	return min(int(used*100/limit), 100)
}

// MinutesPercentage is Percentage for the fractional ai_minutes counter.
func MinutesPercentage(used float64, limit int64) int {
	if limit == plan.Unlimited {
		return -1
	}
	if limit <= 0 || used <= 0 {
		return 0
	}
	return min(int(used*100/float64(limit)), 100)
}
